// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ChurnInsight/src/datasource/file"
	"ChurnInsight/src/storage"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 把目标邮件的CSV/XLSX附件保存到本地目录
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	logger        *storage.Logger // 日志记录器
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	saved         []string        // 已保存的文件
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject, dataDir string, logger *storage.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentHandler) markAsProcessed(uid uint32, paths []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
	h.saved = append(h.saved, paths...)
}

// Saved 已保存的附件路径
func (h *AttachmentHandler) Saved() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.saved...)
}

// Handle 处理单个邮件
func (h *AttachmentHandler) Handle(email *Email) error {
	if h.IsProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.logger.Debugf("跳过主题不匹配的邮件: %s", email.Subject)
		return nil
	}

	h.logger.Infof("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05"))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	var paths []string
	for _, attachment := range email.Attachments {
		if !file.Supported(attachment.Filename) {
			continue
		}

		// 附件名只取文件名部分，避免写出目录
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}

		h.logger.Infof("附件已保存到: %s", filePath)
		paths = append(paths, filePath)
	}

	// 有数据附件才标记为已处理
	if len(paths) > 0 {
		h.markAsProcessed(email.UID, paths)
	}
	return nil
}
