package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"ChurnInsight/src/config"
	"ChurnInsight/src/storage"
)

func main() {
	configDir := flag.String("config", "./config", "配置文件目录")
	mode := flag.String("mode", "", "运行模式: once|schedule|watch|mail，默认取配置文件")
	pidFile := flag.String("pid", "", "写入进程号的文件，配合reopen工具使用")
	types := flag.String("types", "", "覆盖列类型，如 SeniorCitizen=string,tenure=int")
	flag.Parse()

	cfg, dcfg, err := config.LoadConfig(*configDir, "config.json", "dataconfig.json")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if *mode != "" {
		if !config.ValidMode(*mode) {
			log.Fatalf("未知的运行模式: %s", *mode)
		}
		cfg.Mode = *mode
	}
	if err := applyTypes(dcfg, *types); err != nil {
		log.Fatal("Invalid -types:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	if *pidFile != "" {
		if err := os.WriteFile(*pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			log.Fatal("Failed to write pid file:", err)
		}
		defer os.Remove(*pidFile)
	}

	a, err := newApp(cfg, dcfg, logger, os.Stdout)
	if err != nil {
		logger.Fatal(err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(cancel, logger)

	logger.Infof("ChurnInsight 启动，模式: %s", cfg.Mode)
	if err := a.run(ctx); err != nil {
		logger.Error(fmt.Sprintf("运行失败: %v", err))
		logger.Close()
		os.Exit(1)
	}
}

// handleSignals SIGINT/SIGTERM退出，SIGHUP重新打开日志文件
func handleSignals(cancel context.CancelFunc, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)

	go func() {
		for sig := range sigChan {
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("Received signal: " + sig.String() + ", shutting down...")
				cancel()
				return

			case syscall.SIGHUP:
				logger.Info("Received SIGHUP, reopening log file...")
				if err := logger.Reopen(""); err != nil {
					log.Printf("Failed to reopen log: %v", err)
				}
			}
		}
	}()
}
