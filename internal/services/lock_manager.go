// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager 按项目 ID 管理互斥锁，串行化同一进程内的读-改-写
type LockManager struct {
	projectLocks map[string]*LockInfo
	globalLock   sync.Mutex
	lockTTL      time.Duration
	maxLocks     int
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex          *sync.Mutex
	LastUsed       time.Time
	ReferenceCount int32 // 正在使用的次数，大于 0 时不会被清理
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{
		projectLocks: make(map[string]*LockInfo),
		lockTTL:      30 * time.Minute,
		maxLocks:     200,
	}
}

func (lm *LockManager) acquire(projectID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.projectLocks[projectID]
	if !exists {
		lm.cleanupUnusedLocks()
		info = &LockInfo{Mutex: &sync.Mutex{}}
		lm.projectLocks[projectID] = info
	}
	info.ReferenceCount++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info.ReferenceCount--
	info.LastUsed = time.Now()
}

// ExecuteWithProjectLock 在项目锁保护下执行操作
func (lm *LockManager) ExecuteWithProjectLock(projectID string, fn func() error) error {
	info := lm.acquire(projectID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()

	return fn()
}

// LockCount 返回当前持有的锁条目数
func (lm *LockManager) LockCount() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.projectLocks)
}

// cleanupUnusedLocks must be called with globalLock held. It only runs once
// the table has grown past maxLocks.
func (lm *LockManager) cleanupUnusedLocks() {
	if len(lm.projectLocks) < lm.maxLocks {
		return
	}

	now := time.Now()
	for projectID, info := range lm.projectLocks {
		if info.ReferenceCount == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.projectLocks, projectID)
		}
	}
}
