package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向正在运行的ChurnInsight发送SIGHUP，让它重新打开日志文件
func main() {
	pidFile := flag.String("pid", "churninsight.pid", "ChurnInsight -pid 写入的文件")
	flag.Parse()

	pid, err := readPID(*pidFile)
	if err != nil {
		log.Fatal(err)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("已向进程 %d 发送 SIGHUP", pid)
}

// readPID 读取进程号文件
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("读取进程号文件失败: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("进程号文件 %s 内容无效", path)
	}
	return pid, nil
}
