// internal/storage/file_cache.go
package storage

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Corphon/RevidClone/internal/models"
)

// ProjectCache 提供已解析项目的内存缓存，文件被修改或条目过期后失效
type ProjectCache struct {
	cache      map[string]*projectCacheEntry
	mutex      sync.RWMutex
	maxSize    int           // 最大缓存条目数
	expiration time.Duration // 缓存过期时间
}

type projectCacheEntry struct {
	project   models.Project
	createdAt time.Time
	lastRead  time.Time
	modTime   time.Time // 用于检测文件是否被修改
	size      int64
}

// NewProjectCache 创建项目缓存
func NewProjectCache(maxSize int, expiration time.Duration) *ProjectCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}

	return &ProjectCache{
		cache:      make(map[string]*projectCacheEntry),
		maxSize:    maxSize,
		expiration: expiration,
	}
}

// Get 返回缓存的项目；文件信息与缓存不一致或已过期时视为未命中
func (c *ProjectCache) Get(path string, info os.FileInfo) (models.Project, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.cache[path]
	if !exists {
		return models.Project{}, false
	}

	modified := !info.ModTime().Equal(entry.modTime) || info.Size() != entry.size
	if modified || time.Since(entry.createdAt) > c.expiration {
		delete(c.cache, path)
		return models.Project{}, false
	}

	entry.lastRead = time.Now()
	return detach(entry.project), true
}

// Put 缓存项目，超出容量时淘汰最久未读的 20%
func (c *ProjectCache) Put(path string, info os.FileInfo, project models.Project) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.cache[path] = &projectCacheEntry{
		project:   detach(project),
		createdAt: now,
		lastRead:  now,
		modTime:   info.ModTime(),
		size:      info.Size(),
	}

	if len(c.cache) > c.maxSize {
		c.cleanupLRU(max(1, c.maxSize/5))
	}
}

// Delete 从缓存中删除条目
func (c *ProjectCache) Delete(path string) {
	c.mutex.Lock()
	delete(c.cache, path)
	c.mutex.Unlock()
}

// Len 返回缓存条目数
func (c *ProjectCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// cleanupLRU 删除最少使用的条目，调用方需持有写锁
func (c *ProjectCache) cleanupLRU(count int) {
	type keyAge struct {
		key  string
		time time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.lastRead})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := 0; i < min(count, len(entries)); i++ {
		delete(c.cache, entries[i].key)
	}
}

// detach copies the scene slice so callers never share it with the cache.
func detach(project models.Project) models.Project {
	project.Scenes = models.CopyScenes(project.Scenes)
	return project
}
