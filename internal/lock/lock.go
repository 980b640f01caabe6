// Package lock provides in-process keyed mutexes and a host-wide file lock.
package lock

import (
	"fmt"
	"os"
	"sync"
	"syscall"
)

// MutexMap hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits on them, so the map stays proportional to the
// number of keys in use.
type MutexMap struct {
	mu      sync.Mutex
	mutexes map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func NewMutexMap() *MutexMap {
	return &MutexMap{
		mutexes: make(map[string]*refMutex),
	}
}

func (m *MutexMap) Lock(key string) {
	m.acquire(key).Lock()
}

func (m *MutexMap) Unlock(key string) {
	m.mu.Lock()
	mu, ok := m.mutexes[key]
	if !ok {
		m.mu.Unlock()
		panic(fmt.Sprintf("lock: unlock of unlocked key %q", key))
	}
	mu.refs--
	if mu.refs == 0 {
		delete(m.mutexes, key)
	}
	m.mu.Unlock()
	mu.Unlock()
}

// Len returns the number of keys currently held or awaited.
func (m *MutexMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mutexes)
}

func (m *MutexMap) acquire(key string) *refMutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	mu, ok := m.mutexes[key]
	if !ok {
		mu = &refMutex{}
		m.mutexes[key] = mu
	}
	mu.refs++
	return mu
}

// FileLock is an exclusive advisory lock on a file, used to keep a single
// scheduler running per database.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("acquire lock (another scheduler may be running): %w", err)
	}

	if err := f.Truncate(0); err != nil {
		fl.abort(f)
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		fl.abort(f)
		return fmt.Errorf("write PID to lock file: %w", err)
	}

	fl.file = f
	return nil
}

func (fl *FileLock) abort(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	f.Close()
}

func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		fl.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	if err := fl.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	os.Remove(fl.path)
	fl.file = nil
	return nil
}
