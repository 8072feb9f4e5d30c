// Package store implements the persistent, dedup-enforcing link queue on
// an embedded SQLite database.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pansave/internal"
)

// Store is the SQLite-backed link queue. Every method runs as a
// self-contained transaction; no transaction ever spans a network call.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the
// link table
func Open(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, internal.NewPersistenceError("open", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, internal.NewPersistenceError("open", err)
	}

	// WAL keeps readers (stats queries) from blocking the writer
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, internal.NewPersistenceError("pragma", err)
	}

	if err := db.AutoMigrate(&internal.LinkRecord{}); err != nil {
		return nil, internal.NewPersistenceError("migrate", err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory database, used by tests
func OpenInMemory() (*Store, error) {
	return Open("file::memory:?cache=shared&_pragma=busy_timeout(5000)")
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return internal.NewPersistenceError("close", err)
	}
	return sqlDB.Close()
}

// Insert stores every record whose (url, origin) key is absent and returns
// the count of newly stored rows. A conflicting key is a silent no-op, not
// an error.
func (s *Store) Insert(records []*internal.LinkRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
	if result.Error != nil {
		return 0, internal.NewPersistenceError("insert", result.Error)
	}
	return int(result.RowsAffected), nil
}

// PullPending returns up to limit pending records ordered most recent
// first. An empty platform matches all platforms.
func (s *Store) PullPending(limit int, platform internal.Platform) ([]internal.LinkRecord, error) {
	var records []internal.LinkRecord

	query := s.db.Where("status = ?", internal.StatusPending)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	// id breaks created_at ties from same-moment inserts
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, internal.NewPersistenceError("pull_pending", err)
	}
	return records, nil
}

// SetStatus updates a single record's status. The orchestrator is the sole
// caller and is trusted to respect the status state machine; no transition
// validation happens here.
func (s *Store) SetStatus(id uint, status internal.Status) error {
	result := s.db.Model(&internal.LinkRecord{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return internal.NewPersistenceError("set_status", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.NewPersistenceError("set_status", fmt.Errorf("no record with id %d", id))
	}
	return nil
}

// statusCount is the scan target for grouped aggregates
type statusCount struct {
	Key   string
	Count int64
}

// CountByStatus returns record counts grouped by status
func (s *Store) CountByStatus() (map[internal.Status]int64, error) {
	var rows []statusCount
	err := s.db.Model(&internal.LinkRecord{}).
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("count_by_status", err)
	}

	counts := make(map[internal.Status]int64, len(rows))
	for _, row := range rows {
		counts[internal.Status(row.Key)] = row.Count
	}
	return counts, nil
}

// CountByPlatform returns record counts grouped by platform
func (s *Store) CountByPlatform() (map[internal.Platform]int64, error) {
	var rows []statusCount
	err := s.db.Model(&internal.LinkRecord{}).
		Select("platform as key, count(*) as count").
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("count_by_platform", err)
	}

	counts := make(map[internal.Platform]int64, len(rows))
	for _, row := range rows {
		counts[internal.Platform(row.Key)] = row.Count
	}
	return counts, nil
}

// CountSince counts records created within the trailing window
func (s *Store) CountSince(window time.Duration) (int64, error) {
	var count int64
	err := s.db.Model(&internal.LinkRecord{}).
		Where("created_at >= ?", time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return 0, internal.NewPersistenceError("count_since", err)
	}
	return count, nil
}
