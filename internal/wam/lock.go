package wam

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrLockTimeout is returned when lock acquisition times out.
var ErrLockTimeout = errors.New("speaker lock timeout")

// DefaultLockTimeout is the default timeout for lock acquisition.
const DefaultLockTimeout = 30 * time.Second

type speakerMutex struct {
	mu       sync.Mutex
	locked   bool
	lockTime time.Time
}

// SpeakerLock serializes commands per speaker address. The device races its
// own internal state when calls interleave, so everything that talks to a
// speaker goes through its lock: direct commands, hydration, and every step
// of a grouping run. One shared instance covers the whole process.
type SpeakerLock struct {
	mu      sync.Mutex
	mutexes map[string]*speakerMutex
	timeout time.Duration
	logger  *log.Logger
}

// NewSpeakerLock creates a SpeakerLock. timeout bounds every acquisition;
// zero selects DefaultLockTimeout.
func NewSpeakerLock(timeout time.Duration, logger *log.Logger) *SpeakerLock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SpeakerLock{
		mutexes: make(map[string]*speakerMutex),
		timeout: timeout,
		logger:  logger,
	}
}

// WithLock executes fn while holding the lock for a speaker address. The
// lock is released when fn returns. If the lock cannot be acquired within
// the configured timeout, ErrLockTimeout is returned and fn never runs.
func (sl *SpeakerLock) WithLock(addr string, fn func() error) error {
	sm := sl.getOrCreate(addr)

	acquired := make(chan struct{})
	go func() {
		sm.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(sl.timeout):
		// The helper goroutine will eventually acquire the mutex; release
		// it again so the holder's unlock is not lost.
		go func() {
			<-acquired
			sm.mu.Unlock()
		}()
		sl.logger.Printf("Lock wait for %s timed out after %s", addr, sl.timeout)
		return ErrLockTimeout
	}

	sm.locked = true
	sm.lockTime = time.Now()

	defer func() {
		sm.locked = false
		sm.mu.Unlock()
	}()

	return fn()
}

// TryLock attempts to acquire the lock without blocking.
func (sl *SpeakerLock) TryLock(addr string) bool {
	sm := sl.getOrCreate(addr)
	if sm.mu.TryLock() {
		sm.locked = true
		sm.lockTime = time.Now()
		return true
	}
	return false
}

// Unlock releases a lock acquired via TryLock.
func (sl *SpeakerLock) Unlock(addr string) {
	sm := sl.getOrCreate(addr)
	if sm.locked {
		sm.locked = false
		sm.mu.Unlock()
	}
}

// IsLocked reports whether a speaker is currently locked without blocking.
func (sl *SpeakerLock) IsLocked(addr string) bool {
	sl.mu.Lock()
	sm, exists := sl.mutexes[addr]
	sl.mu.Unlock()
	if !exists {
		return false
	}
	return sm.locked
}

func (sl *SpeakerLock) getOrCreate(addr string) *speakerMutex {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sm, exists := sl.mutexes[addr]
	if !exists {
		sm = &speakerMutex{}
		sl.mutexes[addr] = sm
	}
	return sm
}
