package db

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/notblessy/coinsnap/models"
)

// insertBatchSize bounds a single INSERT statement; the whole pass still
// commits as one transaction.
const insertBatchSize = 100

// ErrNoRows is returned when a save is attempted with nothing to save.
var ErrNoRows = errors.New("no snapshots to save")

// SnapshotStore wraps all reads and writes on the crypto_snapshots table.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Migrate creates the snapshots table if it does not exist yet.
func (s *SnapshotStore) Migrate() error {
	return s.db.AutoMigrate(&models.CryptoSnapshot{})
}

// SaveAll stamps every row with the same capture time and inserts them in a
// single transaction, so a failed pass never leaves partial rows behind.
// The caller's slice is not modified.
func (s *SnapshotStore) SaveAll(snapshots []models.CryptoSnapshot, capturedAt time.Time) error {
	if len(snapshots) == 0 {
		return ErrNoRows
	}
	rows := make([]models.CryptoSnapshot, len(snapshots))
	copy(rows, snapshots)
	for i := range rows {
		rows[i].ScrapedAt = capturedAt
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("insert snapshots: %w", err)
	}
	return nil
}

// Recent returns the newest rows, newest pass first, rank ascending within
// a pass.
func (s *SnapshotStore) Recent(limit int) ([]models.CryptoSnapshot, error) {
	var snapshots []models.CryptoSnapshot
	err := s.db.
		Order("scraped_at DESC").
		Order("rank ASC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	return snapshots, nil
}

// SearchByName returns rows whose name contains the term, newest first.
func (s *SnapshotStore) SearchByName(name string) ([]models.CryptoSnapshot, error) {
	var snapshots []models.CryptoSnapshot
	err := s.db.
		Where("name LIKE ?", "%"+name+"%").
		Order("scraped_at DESC").
		Order("rank ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("search snapshots: %w", err)
	}
	return snapshots, nil
}

// TopGainers returns rows of the newest pass with a positive 24h change,
// strongest first. Rows whose change cell does not parse are left out.
func (s *SnapshotStore) TopGainers(limit int) ([]models.CryptoSnapshot, error) {
	return s.rankByChange24h(limit, false)
}

// TopLosers returns rows of the newest pass with a negative 24h change,
// most negative first.
func (s *SnapshotStore) TopLosers(limit int) ([]models.CryptoSnapshot, error) {
	return s.rankByChange24h(limit, true)
}

func (s *SnapshotStore) rankByChange24h(limit int, losers bool) ([]models.CryptoSnapshot, error) {
	rows, err := s.latestPass()
	if err != nil {
		return nil, err
	}

	type scored struct {
		row    models.CryptoSnapshot
		change float64
	}
	var picked []scored
	for _, row := range rows {
		change, ok := parsePercent(row.Change24h)
		if !ok {
			continue
		}
		if (losers && change < 0) || (!losers && change > 0) {
			picked = append(picked, scored{row: row, change: change})
		}
	}

	sort.Slice(picked, func(i, j int) bool {
		if losers {
			return picked[i].change < picked[j].change
		}
		return picked[i].change > picked[j].change
	})
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]models.CryptoSnapshot, len(picked))
	for i, p := range picked {
		out[i] = p.row
	}
	return out, nil
}

// latestPass returns every row sharing the newest ScrapedAt.
func (s *SnapshotStore) latestPass() ([]models.CryptoSnapshot, error) {
	var newest models.CryptoSnapshot
	err := s.db.Order("scraped_at DESC").First(&newest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest pass: %w", err)
	}

	var rows []models.CryptoSnapshot
	if err := s.db.Where("scraped_at = ?", newest.ScrapedAt).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("latest pass rows: %w", err)
	}
	return rows, nil
}

// parsePercent reads a listing percent cell like "-1.94%" or "+1,204.50%".
func parsePercent(cell string) (float64, bool) {
	cleaned := strings.TrimSpace(cell)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimPrefix(cleaned, "+")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Stats summarizes what the table holds.
type Stats struct {
	TotalRecords int64      `json:"total_records"`
	UniqueNames  int64      `json:"unique_names"`
	FirstScrape  *time.Time `json:"first_scrape"`
	LastScrape   *time.Time `json:"last_scrape"`
}

func (s *SnapshotStore) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.Model(&models.CryptoSnapshot{}).Count(&stats.TotalRecords).Error; err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	if err := s.db.Model(&models.CryptoSnapshot{}).Distinct("name").Count(&stats.UniqueNames).Error; err != nil {
		return nil, fmt.Errorf("count distinct names: %w", err)
	}
	if stats.TotalRecords == 0 {
		return stats, nil
	}

	var first, last models.CryptoSnapshot
	if err := s.db.Order("scraped_at ASC").First(&first).Error; err != nil {
		return nil, fmt.Errorf("first scrape: %w", err)
	}
	if err := s.db.Order("scraped_at DESC").First(&last).Error; err != nil {
		return nil, fmt.Errorf("last scrape: %w", err)
	}
	stats.FirstScrape = &first.ScrapedAt
	stats.LastScrape = &last.ScrapedAt
	return stats, nil
}

// PurgeOlderThan deletes rows captured before the cutoff and reports how
// many went away.
func (s *SnapshotStore) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("scraped_at < ?", cutoff).Delete(&models.CryptoSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
