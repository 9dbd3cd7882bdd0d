package storage

import (
	"context"
	"gitviewer/internal/models"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. State is lost on restart.
// Put never lowers a stored count or moves lastVisit backwards.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*models.ViewRecord
	cooldowns models.CooldownTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]*models.ViewRecord),
		cooldowns: make(models.CooldownTable),
	}
}

func (s *MemoryStore) Get(_ context.Context, username string) (*models.ViewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[username].Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, username string, record *models.ViewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := record.Clone()
	if cur, ok := s.records[username]; ok {
		keepLatest(cur, cp)
	}
	s.records[username] = cp
	return nil
}

func (s *MemoryStore) IncrementCount(_ context.Context, username string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[username]
	if !ok {
		rec = models.NewViewRecord(username, now)
		s.records[username] = rec
	}
	rec.Count++
	if now.After(rec.LastVisit) {
		rec.LastVisit = now
	}
	return rec.Count, nil
}

func (s *MemoryStore) GetCooldown(_ context.Context, username, visitorID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.cooldowns.Get(username, visitorID)
	return at, ok, nil
}

func (s *MemoryStore) PutCooldown(_ context.Context, username, visitorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns.Set(username, visitorID, at)
	return nil
}

func (s *MemoryStore) PruneCooldowns(_ context.Context, username string, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldowns.Prune(username, olderThan), nil
}

func (s *MemoryStore) ClaimCooldown(_ context.Context, username, visitorID string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.cooldowns.Get(username, visitorID); ok && models.InCooldown(at, now, window) {
		return false, nil
	}
	s.cooldowns.Set(username, visitorID, now)
	return true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// keepLatest carries the higher count and the later lastVisit of cur into next.
func keepLatest(cur, next *models.ViewRecord) {
	if cur.Count > next.Count {
		next.Count = cur.Count
	}
	if cur.LastVisit.After(next.LastVisit) {
		next.LastVisit = cur.LastVisit
	}
}
