package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dinomed-server/models"
)

// MemoryStore keeps sessions in a mutex-guarded map with TTL eviction and a
// bounded session count. Suitable as the default backend; sessions do not
// survive a restart.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*models.Session
	runs        []models.Run
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

// NewMemoryStore creates an in-memory store. ttl of zero disables time-based
// eviction; maxSessions of zero disables the count bound.
func NewMemoryStore(ttl time.Duration, maxSessions int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*models.Session),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

func (m *MemoryStore) expired(s *models.Session) bool {
	return m.ttl > 0 && m.now().Sub(s.CreatedAt) > m.ttl
}

func (m *MemoryStore) Put(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked(len(m.sessions) - m.maxSessions + 1)
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

// evictOldestLocked drops the n sessions with the earliest creation time.
func (m *MemoryStore) evictOldestLocked(n int) {
	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, aged{id, s.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	for i := 0; i < n && i < len(all); i++ {
		delete(m.sessions, all[i].id)
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Finish(_ context.Context, id string, answers map[string]string, result *models.SubmissionResult) (*models.SubmissionResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, false, ErrNotFound
	}
	if s.Finished {
		return s.Result, false, nil
	}
	s.Finished = true
	s.Answers = answers
	s.Result = result
	return result, true, nil
}

func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) RecordRun(_ context.Context, run models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryStore) RunsByEmail(_ context.Context, email string) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Run
	for _, r := range m.runs {
		if strings.EqualFold(r.Email, email) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
