// data_handler.go
package email

import (
	"errors"
	"fmt"
	"sync"

	"ChurnInsight/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
)

// ErrNoDataAttachment 邮件中没有可加载的CSV/XLSX附件
var ErrNoDataAttachment = errors.New("邮件中没有数据附件")

// DataFrameWrapper 保存最近一次从邮件加载的数据表，提供线程安全访问
type DataFrameWrapper struct {
	df     dataframe.DataFrame // 存储DataFrame数据
	source string              // 来源附件名
	uid    uint32              // 来源邮件UID
	mu     sync.RWMutex        // 读写锁保证线程安全
}

// GetDF 获取当前DataFrame(线程安全)
func (d *DataFrameWrapper) GetDF() dataframe.DataFrame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df
}

// SetDF 设置当前DataFrame及其来源(线程安全)
func (d *DataFrameWrapper) SetDF(df dataframe.DataFrame, source string, uid uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.df = df
	d.source = source
	d.uid = uid
}

// Source 当前数据的来源附件名和邮件UID
func (d *DataFrameWrapper) Source() (string, uint32) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.source, d.uid
}

// LoadAttachment 加载邮件中第一个CSV/XLSX附件，返回附件名
func (d *DataFrameWrapper) LoadAttachment(email *Email, opts file.Options) (string, error) {
	att := DataAttachment(email)
	if att == nil {
		return "", fmt.Errorf("%w: %s", ErrNoDataAttachment, email.Subject)
	}

	df, err := file.LoadBytes(att.Filename, att.Content, opts)
	if err != nil {
		return "", fmt.Errorf("加载附件 %s 失败: %w", att.Filename, err)
	}

	d.SetDF(df, att.Filename, email.UID)
	return att.Filename, nil
}

// DataAttachment 返回邮件中第一个可加载的附件，没有时返回nil
func DataAttachment(email *Email) *Attachment {
	for _, att := range email.Attachments {
		if file.Supported(att.Filename) {
			return att
		}
	}
	return nil
}
