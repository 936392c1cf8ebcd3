// send.go
package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"ChurnInsight/src/config"
)

// buildReport 组装带图表附件的报告邮件
func buildReport(from string, to []string, subject, body string, attachments []string) (*email.Email, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("没有配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("ChurnInsight <%s>", from)
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件 %s 添加失败: %w", path, err)
		}
	}
	return e, nil
}

// smtpAddr 确保服务器地址包含端口，默认SSL端口465
func smtpAddr(server string) (addr, host string) {
	if h, _, err := net.SplitHostPort(server); err == nil {
		return server, h
	}
	server = strings.TrimSpace(server)
	return server + ":465", server
}

// SendReport 通过SMTP(显式TLS)发送分析报告
func SendReport(c *config.Config, body string, attachments []string) error {
	from := c.SendEmail.Username
	e, err := buildReport(from, c.SendEmail.To, c.SendEmail.Subject, body, attachments)
	if err != nil {
		return err
	}

	addr, host := smtpAddr(c.SendEmail.Server)
	err = e.SendWithTLS(
		addr,
		smtp.PlainAuth("", from, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, addr)
	}
	return nil
}
