package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pricescout/internal/types"
)

// JSONLStore appends order records to a newline-delimited JSON file.
// Meant for development and single-node deployments; reads rescan the
// file, which is fine at the order volumes a chat bot produces.
type JSONLStore struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStore opens (or creates) the order log for appending.
func NewJSONLStore(path string, logger *slog.Logger) (*JSONLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create dir: %w", err)}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("open: %w", err)}
	}

	return &JSONLStore{
		path:   path,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_store"),
	}, nil
}

func (s *JSONLStore) Name() string { return "jsonl" }

func (s *JSONLStore) SaveOrder(_ context.Context, userID string, info types.ProductInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := types.OrderRecord{
		UserID:    userID,
		Product:   info,
		CreatedAt: time.Now(),
	}
	if err := s.enc.Encode(rec); err != nil {
		return &types.StorageError{Backend: "jsonl", Err: err}
	}
	s.count++
	s.logger.Debug("order appended", "user_id", userID, "total", s.count)
	return nil
}

func (s *JSONLStore) DistinctUsers(_ context.Context) ([]string, error) {
	records, err := s.scan()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var users []string
	for _, rec := range records {
		if !seen[rec.UserID] {
			seen[rec.UserID] = true
			users = append(users, rec.UserID)
		}
	}
	return users, nil
}

func (s *JSONLStore) OrdersSince(_ context.Context, since time.Time) ([]types.OrderRecord, error) {
	records, err := s.scan()
	if err != nil {
		return nil, err
	}

	var matched []types.OrderRecord
	for _, rec := range records {
		if !rec.CreatedAt.Before(since) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("jsonl store closing", "path", s.path, "appended", s.count)
	return s.file.Close()
}

// scan re-reads the whole log.
func (s *JSONLStore) scan() ([]types.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: err}
	}
	defer f.Close()

	var records []types.OrderRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec types.OrderRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("skipping malformed line", "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: err}
	}
	return records, nil
}
