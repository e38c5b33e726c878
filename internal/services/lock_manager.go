// internal/services/lock_manager.go
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// LockManager hands out per-chat-session locks so two requests for the same
// session serialize without a single global mutex across all sessions. Idle
// locks are reaped after the TTL.
type LockManager struct {
	sessionLocks  map[string]*lockInfo
	globalLock    sync.RWMutex
	lockTTL       time.Duration
	cleanupTicker *time.Ticker
}

// lastUsed holds unix nanos and is updated atomically: GetSessionLock
// touches it while holding only the read lock.
type lockInfo struct {
	mutex    *sync.Mutex
	lastUsed atomic.Int64
}

// NewLockManager creates the manager and starts its background reaper.
func NewLockManager() *LockManager {
	lm := &LockManager{
		sessionLocks: make(map[string]*lockInfo),
		lockTTL:      10 * time.Minute,
	}
	lm.startCleanup()
	return lm
}

// GetSessionLock returns the lock for a session id, creating it on first use.
func (lm *LockManager) GetSessionLock(sessionID string) *sync.Mutex {
	lm.globalLock.RLock()
	if info, exists := lm.sessionLocks[sessionID]; exists {
		lm.globalLock.RUnlock()
		info.lastUsed.Store(time.Now().UnixNano())
		return info.mutex
	}
	lm.globalLock.RUnlock()

	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// Double check under the write lock.
	if info, exists := lm.sessionLocks[sessionID]; exists {
		info.lastUsed.Store(time.Now().UnixNano())
		return info.mutex
	}

	info := &lockInfo{mutex: &sync.Mutex{}}
	info.lastUsed.Store(time.Now().UnixNano())
	lm.sessionLocks[sessionID] = info
	return info.mutex
}

// ExecuteWithSessionLock runs fn while holding the session's lock.
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	lock := lm.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ReleaseSessionLock drops the lock entry for a closed session.
func (lm *LockManager) ReleaseSessionLock(sessionID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	delete(lm.sessionLocks, sessionID)
}

func (lm *LockManager) startCleanup() {
	lm.cleanupTicker = time.NewTicker(5 * time.Minute)
	go func() {
		for range lm.cleanupTicker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	now := time.Now().UnixNano()
	for id, info := range lm.sessionLocks {
		if now-info.lastUsed.Load() > int64(lm.lockTTL) {
			delete(lm.sessionLocks, id)
		}
	}
}

// Stop halts the background reaper.
func (lm *LockManager) Stop() {
	if lm.cleanupTicker != nil {
		lm.cleanupTicker.Stop()
	}
}
