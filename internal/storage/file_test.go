package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricescout/internal/config"
	"pricescout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestJSONLStore(t *testing.T) *JSONLStore {
	t.Helper()
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "orders.jsonl"), testLogger)
	if err != nil {
		t.Fatalf("new jsonl store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJSONLSaveAndScan(t *testing.T) {
	s := newTestJSONLStore(t)
	ctx := context.Background()

	info := types.ProductInfo{Name: "Test Product", Price: "$19.99"}
	if err := s.SaveOrder(ctx, "42", info); err != nil {
		t.Fatalf("save order: %v", err)
	}
	if err := s.SaveOrder(ctx, "42", types.ProductInfo{Name: "Another", Price: "€9.50"}); err != nil {
		t.Fatalf("save order: %v", err)
	}

	records, err := s.scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Product.Name != "Test Product" {
		t.Errorf("expected first record to be the first saved, got %q", records[0].Product.Name)
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected a save timestamp")
	}
}

func TestJSONLDistinctUsers(t *testing.T) {
	s := newTestJSONLStore(t)
	ctx := context.Background()

	for _, userID := range []string{"1", "2", "1", "3", "2"} {
		if err := s.SaveOrder(ctx, userID, types.ProductInfo{Name: "P", Price: "$1"}); err != nil {
			t.Fatalf("save order: %v", err)
		}
	}

	users, err := s.DistinctUsers(ctx)
	if err != nil {
		t.Fatalf("distinct users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 distinct users, got %v", users)
	}
	want := []string{"1", "2", "3"}
	for i, u := range want {
		if users[i] != u {
			t.Errorf("expected users in first-seen order %v, got %v", want, users)
			break
		}
	}
}

func TestJSONLOrdersSince(t *testing.T) {
	s := newTestJSONLStore(t)
	ctx := context.Background()

	if err := s.SaveOrder(ctx, "1", types.ProductInfo{Name: "Old", Price: "$1"}); err != nil {
		t.Fatalf("save order: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)
	if err := s.SaveOrder(ctx, "2", types.ProductInfo{Name: "New", Price: "$2"}); err != nil {
		t.Fatalf("save order: %v", err)
	}

	recent, err := s.OrdersSince(ctx, cutoff)
	if err != nil {
		t.Fatalf("orders since: %v", err)
	}
	if len(recent) != 1 || recent[0].Product.Name != "New" {
		t.Fatalf("expected only the post-cutoff order, got %+v", recent)
	}

	all, err := s.OrdersSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("orders since: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
	if all[0].Product.Name != "New" {
		t.Errorf("expected newest-first ordering, got %q first", all[0].Product.Name)
	}
}

func TestJSONLSkipsMalformedLines(t *testing.T) {
	s := newTestJSONLStore(t)
	ctx := context.Background()

	if err := s.SaveOrder(ctx, "1", types.ProductInfo{Name: "Good", Price: "$5"}); err != nil {
		t.Fatalf("save order: %v", err)
	}
	if _, err := s.file.WriteString("not json\n"); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}
	if err := s.SaveOrder(ctx, "2", types.ProductInfo{Name: "Also Good", Price: "$6"}); err != nil {
		t.Fatalf("save order: %v", err)
	}

	records, err := s.scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected malformed line skipped, got %d records", len(records))
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := &config.StorageConfig{Type: "cassandra"}
	if _, err := New(cfg, testLogger); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewJSONLBackend(t *testing.T) {
	cfg := &config.StorageConfig{
		Type: "jsonl",
		Path: filepath.Join(t.TempDir(), "orders.jsonl"),
	}
	s, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()
	if s.Name() != "jsonl" {
		t.Errorf("expected jsonl backend, got %s", s.Name())
	}
}
