package core

import (
	"os"
	"sync"
)

// SourceCache 源文件内容缓存
// 结构化匹配输入可能多次引用同一文件，这里保证每个文件只读一次
type SourceCache struct {
	mu    sync.Mutex
	files map[string]string
}

// NewSourceCache 创建缓存
func NewSourceCache() *SourceCache {
	return &SourceCache{files: make(map[string]string)}
}

// Get 读取文件内容，命中缓存时不再访问磁盘
func (c *SourceCache) Get(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text, ok := c.files[path]; ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := string(data)
	c.files[path] = text
	return text, nil
}
