package api

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type exportDownload struct {
	filePath  string
	asciiName string
	filename  string
	expiresAt time.Time
}

// downloadStore 一次性下载链接；过期项在存取时顺带清理（连同文件）
type downloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
}

func newDownloadStore() *downloadStore {
	return &downloadStore{
		items: make(map[string]exportDownload),
	}
}

func (s *downloadStore) put(filePath, asciiName, filename string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = uuid.NewString()
	s.items[token] = exportDownload{
		filePath:  filePath,
		asciiName: asciiName,
		filename:  filename,
		expiresAt: time.Now().Add(ttl),
	}
	return token
}

// take 取出并作废
func (s *downloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return v, ok
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			_ = os.Remove(v.filePath)
			delete(s.items, k)
		}
	}
}

// contentDisposition ASCII 文件名 + UTF-8 文件名
func contentDisposition(asciiName, name string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", asciiName, url.PathEscape(name))
}

// exportFilename 导出文件名（ASCII 与越南语两种）
func exportFilename(now time.Time) (asciiName, name string) {
	day := now.Format("2006-01-02")
	return "machines-" + day + ".xlsx", "Danh sách thiết bị " + day + ".xlsx"
}
