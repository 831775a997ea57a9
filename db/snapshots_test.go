package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/notblessy/coinsnap/models"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	// A named in-memory database so the pool's connections all see one schema.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := NewSnapshotStore(gdb)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func sampleSnapshots(names ...string) []models.CryptoSnapshot {
	snapshots := make([]models.CryptoSnapshot, len(names))
	for i, name := range names {
		snapshots[i] = models.CryptoSnapshot{
			Rank:              i + 1,
			Name:              name,
			Price:             "$100.00",
			Change1h:          "0.1%",
			Change24h:         "-0.2%",
			Change7d:          "0.3%",
			MarketCap:         "$1,000,000",
			Volume24h:         "$500,000",
			CirculatingSupply: "21,000,000",
		}
	}
	return snapshots
}

func TestSaveAll_InsertsAll(t *testing.T) {
	store := newTestStore(t)
	capturedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if err := store.SaveAll(sampleSnapshots("Bitcoin", "Ethereum", "Tether"), capturedAt); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	rows, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d; want 3", len(rows))
	}
	for _, row := range rows {
		if !row.ScrapedAt.Equal(capturedAt) {
			t.Errorf("row %q ScrapedAt = %v; want %v", row.Name, row.ScrapedAt, capturedAt)
		}
	}
}

func TestSaveAll_SecondPassAppends(t *testing.T) {
	store := newTestStore(t)
	first := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	second := first.Add(1 * time.Hour)

	if err := store.SaveAll(sampleSnapshots("Bitcoin", "Ethereum"), first); err != nil {
		t.Fatalf("first SaveAll: %v", err)
	}
	if err := store.SaveAll(sampleSnapshots("Bitcoin", "Ethereum"), second); err != nil {
		t.Fatalf("second SaveAll: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d; want 4 (no dedup)", stats.TotalRecords)
	}
}

func TestSaveAll_EmptyInput(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveAll(nil, time.Now())
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("SaveAll(nil) = %v; want ErrNoRows", err)
	}
}

func TestRecent_OrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	older := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	if err := store.SaveAll(sampleSnapshots("OldCoin1", "OldCoin2"), older); err != nil {
		t.Fatalf("SaveAll older: %v", err)
	}
	if err := store.SaveAll(sampleSnapshots("NewCoin1", "NewCoin2"), newer); err != nil {
		t.Fatalf("SaveAll newer: %v", err)
	}

	rows, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}
	if rows[0].Name != "NewCoin1" || rows[1].Name != "NewCoin2" {
		t.Errorf("Recent order = [%q %q]; want newest pass, rank ascending", rows[0].Name, rows[1].Name)
	}
}

func TestSearchByName(t *testing.T) {
	store := newTestStore(t)
	capturedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if err := store.SaveAll(sampleSnapshots("Bitcoin", "Bitcoin Cash", "Ethereum"), capturedAt); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	rows, err := store.SearchByName("Bitcoin")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}

	rows, err = store.SearchByName("Dogecoin")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d; want 0", len(rows))
	}
}

func TestSaveAll_DoesNotMutateInput(t *testing.T) {
	store := newTestStore(t)
	capturedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	input := sampleSnapshots("Bitcoin", "Ethereum")
	if err := store.SaveAll(input, capturedAt); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	for _, row := range input {
		if !row.ScrapedAt.IsZero() {
			t.Errorf("input row %q ScrapedAt = %v; want untouched zero value", row.Name, row.ScrapedAt)
		}
	}
}

func changeSnapshots(changes map[string]string) []models.CryptoSnapshot {
	snapshots := make([]models.CryptoSnapshot, 0, len(changes))
	rank := 1
	for name, change := range changes {
		snapshots = append(snapshots, models.CryptoSnapshot{
			Rank:      rank,
			Name:      name,
			Price:     "$1.00",
			Change24h: change,
		})
		rank++
	}
	return snapshots
}

func TestTopGainers(t *testing.T) {
	store := newTestStore(t)
	older := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	// The older pass's huge gainer must not leak into the result.
	if err := store.SaveAll(changeSnapshots(map[string]string{
		"StaleRocket": "+900.00%",
	}), older); err != nil {
		t.Fatalf("SaveAll older: %v", err)
	}
	if err := store.SaveAll(changeSnapshots(map[string]string{
		"BigGainer":   "+12.40%",
		"SmallGainer": "0.75%",
		"Loser":       "-3.10%",
		"Flat":        "0.00%",
		"Broken":      "--",
	}), newer); err != nil {
		t.Fatalf("SaveAll newer: %v", err)
	}

	rows, err := store.TopGainers(10)
	if err != nil {
		t.Fatalf("TopGainers: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}
	if rows[0].Name != "BigGainer" || rows[1].Name != "SmallGainer" {
		t.Errorf("gainers = [%q %q]; want strongest first", rows[0].Name, rows[1].Name)
	}

	rows, err = store.TopGainers(1)
	if err != nil {
		t.Fatalf("TopGainers limit 1: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "BigGainer" {
		t.Errorf("limited gainers = %v; want only BigGainer", rows)
	}
}

func TestTopLosers(t *testing.T) {
	store := newTestStore(t)
	capturedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if err := store.SaveAll(changeSnapshots(map[string]string{
		"Gainer":    "+4.00%",
		"MildLoser": "-0.90%",
		"DeepLoser": "-7.25%",
	}), capturedAt); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	rows, err := store.TopLosers(10)
	if err != nil {
		t.Fatalf("TopLosers: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}
	if rows[0].Name != "DeepLoser" || rows[1].Name != "MildLoser" {
		t.Errorf("losers = [%q %q]; want most negative first", rows[0].Name, rows[1].Name)
	}
}

func TestTopGainers_EmptyTable(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.TopGainers(10)
	if err != nil {
		t.Fatalf("TopGainers: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d; want 0", len(rows))
	}
}

func TestParsePercent(t *testing.T) {
	cases := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"-1.94%", -1.94, true},
		{"+12.40%", 12.4, true},
		{"0.75%", 0.75, true},
		{"+1,204.50%", 1204.5, true},
		{" 3.2% ", 3.2, true},
		{"--", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePercent(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("parsePercent(%q) = (%v, %v); want (%v, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestPurgeOlderThan(t *testing.T) {
	store := newTestStore(t)
	old := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	if err := store.SaveAll(sampleSnapshots("Stale1", "Stale2", "Stale3"), old); err != nil {
		t.Fatalf("SaveAll old: %v", err)
	}
	if err := store.SaveAll(sampleSnapshots("Fresh1"), fresh); err != nil {
		t.Fatalf("SaveAll fresh: %v", err)
	}

	deleted, err := store.PurgeOlderThan(fresh.Add(-1 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d; want 3", deleted)
	}

	rows, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Fresh1" {
		t.Errorf("remaining rows = %v; want only Fresh1", rows)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats on empty table: %v", err)
	}
	if stats.TotalRecords != 0 || stats.FirstScrape != nil || stats.LastScrape != nil {
		t.Errorf("empty stats = %+v; want zero values", stats)
	}

	first := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	last := first.Add(6 * time.Hour)
	if err := store.SaveAll(sampleSnapshots("Bitcoin", "Ethereum"), first); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := store.SaveAll(sampleSnapshots("Bitcoin"), last); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	stats, err = store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d; want 3", stats.TotalRecords)
	}
	if stats.UniqueNames != 2 {
		t.Errorf("UniqueNames = %d; want 2", stats.UniqueNames)
	}
	if stats.FirstScrape == nil || !stats.FirstScrape.Equal(first) {
		t.Errorf("FirstScrape = %v; want %v", stats.FirstScrape, first)
	}
	if stats.LastScrape == nil || !stats.LastScrape.Equal(last) {
		t.Errorf("LastScrape = %v; want %v", stats.LastScrape, last)
	}
}
