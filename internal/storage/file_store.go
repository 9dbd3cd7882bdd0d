package storage

import (
	"context"
	"fmt"
	"gitviewer/internal/models"
	"gitviewer/internal/storage/interfaces"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const cooldownSuffix = ".cooldowns"

// FileStore keeps one JSON document mapping username to ViewRecord, plus a
// sidecar document for cooldown entries. Every call re-reads the file.
// Increments and cooldown claims run under the store mutex, so one process
// never loses updates. There is no file locking: two processes sharing the
// path can interleave read-modify-write cycles and under-count.
type FileStore struct {
	mu           sync.Mutex
	path         string
	cooldownPath string
	compressor   interfaces.CompressorInterface
}

func NewFileStore(path string, compressor interfaces.CompressorInterface) *FileStore {
	return &FileStore{
		path:         path,
		cooldownPath: path + cooldownSuffix,
		compressor:   compressor,
	}
}

func (s *FileStore) Get(ctx context.Context, username string) (*models.ViewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords(ctx)
	if err != nil {
		return nil, err
	}
	return records[username], nil
}

func (s *FileStore) Put(ctx context.Context, username string, record *models.ViewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords(ctx)
	if err != nil {
		return err
	}
	next := record.Clone()
	if cur, ok := records[username]; ok && cur != nil {
		keepLatest(cur, next)
	}
	records[username] = next
	return s.writeDocument(ctx, s.path, records)
}

func (s *FileStore) IncrementCount(ctx context.Context, username string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords(ctx)
	if err != nil {
		return 0, err
	}
	rec := records[username]
	if rec == nil {
		rec = models.NewViewRecord(username, now)
		records[username] = rec
	}
	rec.Count++
	if now.After(rec.LastVisit) {
		rec.LastVisit = now
	}
	if err := s.writeDocument(ctx, s.path, records); err != nil {
		return 0, err
	}
	return rec.Count, nil
}

func (s *FileStore) GetCooldown(ctx context.Context, username, visitorID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readCooldowns(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	at, ok := table.Get(username, visitorID)
	return at, ok, nil
}

func (s *FileStore) PutCooldown(ctx context.Context, username, visitorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readCooldowns(ctx)
	if err != nil {
		return err
	}
	table.Set(username, visitorID, at)
	return s.writeDocument(ctx, s.cooldownPath, table)
}

func (s *FileStore) ClaimCooldown(ctx context.Context, username, visitorID string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readCooldowns(ctx)
	if err != nil {
		return false, err
	}
	if at, ok := table.Get(username, visitorID); ok && models.InCooldown(at, now, window) {
		return false, nil
	}
	table.Set(username, visitorID, now)
	if err := s.writeDocument(ctx, s.cooldownPath, table); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) PruneCooldowns(ctx context.Context, username string, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.readCooldowns(ctx)
	if err != nil {
		return 0, err
	}
	removed := table.Prune(username, olderThan)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeDocument(ctx, s.cooldownPath, table)
}

func (s *FileStore) Close() error {
	s.compressor.Close()
	return nil
}

func (s *FileStore) readRecords(ctx context.Context) (map[string]*models.ViewRecord, error) {
	records := make(map[string]*models.ViewRecord)
	if err := s.readDocument(ctx, s.path, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = make(map[string]*models.ViewRecord)
	}
	return records, nil
}

func (s *FileStore) readCooldowns(ctx context.Context) (models.CooldownTable, error) {
	table := make(models.CooldownTable)
	if err := s.readDocument(ctx, s.cooldownPath, &table); err != nil {
		return nil, err
	}
	if table == nil {
		table = make(models.CooldownTable)
	}
	return table, nil
}

// readDocument leaves v untouched when the file does not exist yet.
func (s *FileStore) readDocument(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	decompressed, err := s.compressor.Decompress(data)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}
	if err := json.Unmarshal(decompressed, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeDocument checks ctx before the rename, so an expired call leaves the
// previous document in place.
func (s *FileStore) writeDocument(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jsonData, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data, err := s.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, path)
}
