package storage

import (
	"bytes"
	"context"
	"fmt"
	"gitviewer/internal/models"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const maxBlobSize = 1 << 20

// BlobStore keeps each counter as a flat text blob holding the count, and the
// cooldown entries of a user in a JSON blob next to it. The blob API has no
// compare-and-swap, so concurrent visits for the same user can overwrite each
// other and under-count. Recent visitors are not persisted.
type BlobStore struct {
	client  *http.Client
	baseURL string
	token   string
	prefix  string
}

func NewBlobStore(baseURL, token, prefix string, client *http.Client) *BlobStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &BlobStore{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		prefix:  prefix,
	}
}

func (s *BlobStore) countKey(username string) string {
	return s.prefix + username + "-view-counter.txt"
}

func (s *BlobStore) cooldownKey(username string) string {
	return s.prefix + username + "-cooldowns.json"
}

func (s *BlobStore) Get(ctx context.Context, username string) (*models.ViewRecord, error) {
	body, modified, ok, err := s.fetch(ctx, s.countKey(username))
	if err != nil || !ok {
		return nil, err
	}
	count, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: %q", ErrCorruptCount, body)
	}
	return &models.ViewRecord{
		Username:  username,
		Count:     count,
		LastVisit: modified,
	}, nil
}

func (s *BlobStore) Put(ctx context.Context, username string, record *models.ViewRecord) error {
	return s.store(ctx, s.countKey(username), []byte(strconv.FormatInt(record.Count, 10)), "text/plain")
}

func (s *BlobStore) GetCooldown(ctx context.Context, username, visitorID string) (time.Time, bool, error) {
	visitors, err := s.readCooldowns(ctx, username)
	if err != nil {
		return time.Time{}, false, err
	}
	at, ok := visitors[visitorID]
	return at, ok, nil
}

func (s *BlobStore) PutCooldown(ctx context.Context, username, visitorID string, at time.Time) error {
	visitors, err := s.readCooldowns(ctx, username)
	if err != nil {
		return err
	}
	visitors[visitorID] = at
	return s.writeCooldowns(ctx, username, visitors)
}

func (s *BlobStore) PruneCooldowns(ctx context.Context, username string, olderThan time.Time) (int, error) {
	visitors, err := s.readCooldowns(ctx, username)
	if err != nil {
		return 0, err
	}
	table := models.CooldownTable{username: visitors}
	removed := table.Prune(username, olderThan)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeCooldowns(ctx, username, table[username])
}

func (s *BlobStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *BlobStore) readCooldowns(ctx context.Context, username string) (map[string]time.Time, error) {
	visitors := make(map[string]time.Time)
	body, _, ok, err := s.fetch(ctx, s.cooldownKey(username))
	if err != nil || !ok {
		return visitors, err
	}
	if err := json.Unmarshal(body, &visitors); err != nil {
		return nil, fmt.Errorf("parse cooldown blob for %s: %w", username, err)
	}
	if visitors == nil {
		visitors = make(map[string]time.Time)
	}
	return visitors, nil
}

func (s *BlobStore) writeCooldowns(ctx context.Context, username string, visitors map[string]time.Time) error {
	if visitors == nil {
		visitors = map[string]time.Time{}
	}
	body, err := json.Marshal(visitors)
	if err != nil {
		return err
	}
	return s.store(ctx, s.cooldownKey(username), body, "application/json")
}

func (s *BlobStore) blobURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}

func (s *BlobStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// fetch returns ok=false for a missing blob.
func (s *BlobStore) fetch(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blobURL(key), nil)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, time.Time{}, false, nil
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, time.Time{}, false, fmt.Errorf("%w: GET %s returned %d", ErrBlobStatus, key, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return nil, time.Time{}, false, err
	}
	modified, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	return body, modified, true, nil
}

func (s *BlobStore) store(ctx context.Context, key string, body []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.blobURL(key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: PUT %s returned %d", ErrBlobStatus, key, resp.StatusCode)
	}
	return nil
}
