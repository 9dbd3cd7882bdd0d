package testutil

import (
	"context"
	"errors"
	"gitviewer/internal/models"
	"gitviewer/internal/providers"
	"sync"
	"time"
)

var ErrInjected = errors.New("injected failure")

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockViewStore is a map-backed store whose operations can be forced to fail.
// It implements only the base contract, so callers take the get/put path.
type MockViewStore struct {
	mu        sync.Mutex
	Records   map[string]*models.ViewRecord
	Cooldowns models.CooldownTable

	FailGet         bool
	FailPut         bool
	FailGetCooldown bool
	FailPutCooldown bool
	FailPrune       bool

	PutCalls   int
	PruneCalls int
}

func NewMockViewStore() *MockViewStore {
	return &MockViewStore{
		Records:   make(map[string]*models.ViewRecord),
		Cooldowns: make(models.CooldownTable),
	}
}

func (m *MockViewStore) Get(_ context.Context, username string) (*models.ViewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet {
		return nil, ErrInjected
	}
	return m.Records[username].Clone(), nil
}

func (m *MockViewStore) Put(_ context.Context, username string, record *models.ViewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.FailPut {
		return ErrInjected
	}
	m.Records[username] = record.Clone()
	return nil
}

func (m *MockViewStore) GetCooldown(_ context.Context, username, visitorID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGetCooldown {
		return time.Time{}, false, ErrInjected
	}
	at, ok := m.Cooldowns.Get(username, visitorID)
	return at, ok, nil
}

func (m *MockViewStore) PutCooldown(_ context.Context, username, visitorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPutCooldown {
		return ErrInjected
	}
	m.Cooldowns.Set(username, visitorID, at)
	return nil
}

func (m *MockViewStore) PruneCooldowns(_ context.Context, username string, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PruneCalls++
	if m.FailPrune {
		return 0, ErrInjected
	}
	return m.Cooldowns.Prune(username, olderThan), nil
}

func (m *MockViewStore) Close() error { return nil }

// BlockingViewStore waits for its context on Get and Put, to exercise timeouts.
type BlockingViewStore struct {
	MockViewStore
}

func NewBlockingViewStore() *BlockingViewStore {
	return &BlockingViewStore{MockViewStore: MockViewStore{
		Records:   make(map[string]*models.ViewRecord),
		Cooldowns: make(models.CooldownTable),
	}}
}

func (b *BlockingViewStore) Get(ctx context.Context, _ string) (*models.ViewRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *BlockingViewStore) Put(ctx context.Context, _ string, _ *models.ViewRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() { m.Closed = true }

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	Visits          map[string]int
	StorageFailures map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Visits: map[string]int{}, StorageFailures: map[string]int{}}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}
func (m *MockMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncVisits(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Visits[outcome]++
}

func (m *MockMetrics) IncStorageFailures(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StorageFailures[op]++
}
