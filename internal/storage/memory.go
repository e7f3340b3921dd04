package storage

import (
	"sync"
	"time"
)

type MemoryStorage struct {
	jobs   map[string]*Job
	latest string
	closed bool
	// keepSuperseded 为 false 时，新任务会释放尚未取走的上一个最新任务
	keepSuperseded bool
	mu             sync.RWMutex
}

var _ Storage = (*MemoryStorage)(nil)

type MemoryOption func(*MemoryStorage)

// WithKeepSuperseded 保留被新提交取代的任务，供按 session_id 取用的客户端使用
func WithKeepSuperseded(keep bool) MemoryOption {
	return func(m *MemoryStorage) {
		m.keepSuperseded = keep
	}
}

func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	m := &MemoryStorage{
		jobs: make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStorage) Put(job *Job) error {
	if job == nil || job.ID == "" {
		return ErrInvalidJob
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if old, exists := m.jobs[job.ID]; exists && old != job {
		old.Release()
	}
	if !m.keepSuperseded && m.latest != "" && m.latest != job.ID {
		if prev, exists := m.jobs[m.latest]; exists {
			delete(m.jobs, m.latest)
			prev.Release()
		}
	}
	m.jobs[job.ID] = job
	m.latest = job.ID
	return nil
}

func (m *MemoryStorage) Take(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.latest
	}

	job, exists := m.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	delete(m.jobs, id)
	if m.latest == id {
		m.latest = ""
	}
	return job, nil
}

func (m *MemoryStorage) Expire(before time.Time) int {
	m.mu.Lock()
	var expired []*Job
	for id, job := range m.jobs {
		if job.CreatedAt.Before(before) {
			expired = append(expired, job)
			delete(m.jobs, id)
			if m.latest == id {
				m.latest = ""
			}
		}
	}
	m.mu.Unlock()

	for _, job := range expired {
		job.Release()
	}
	return len(expired)
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.jobs)
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	jobs := m.jobs
	m.jobs = make(map[string]*Job)
	m.latest = ""
	m.closed = true
	m.mu.Unlock()

	for _, job := range jobs {
		job.Release()
	}
	return nil
}
