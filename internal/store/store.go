// Package store persists which (sheet, record id) pairs have already been
// notified about.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 200

// ProcessedRecord marks one sheet row as handled. The (sheet_name,
// record_id) index is not unique: callers check IsProcessed before inserting.
type ProcessedRecord struct {
	ID          uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	SheetName   string    `json:"sheet" gorm:"type:varchar(255);not null;index:idx_processed_sheet_record,priority:1"`
	RecordID    string    `json:"id" gorm:"type:varchar(255);not null;index:idx_processed_sheet_record,priority:2"`
	ProcessedAt time.Time `json:"enviado_el" gorm:"not null"`
}

func (ProcessedRecord) TableName() string {
	return "processed_records"
}

// Key identifies a record within a tracked sheet.
type Key struct {
	SheetName string
	RecordID  string
}

type Store struct {
	db *gorm.DB
}

// Open connects using dsn. postgres:// and postgresql:// URLs and key=value
// DSNs containing host= go through lib/pq; anything else is a sqlite path.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	cfg := &gorm.Config{Logger: newGormLogger()}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
		log.Debug().Msg("Using postgres processed-record store")
	} else {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
		log.Debug().Str("path", dsn).Msg("Using sqlite processed-record store")
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the processed_records table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ProcessedRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate processed_records: %w", err)
	}
	return &Store{db: db}, nil
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// IsProcessed reports whether the exact (sheet, record) pair exists.
func (s *Store) IsProcessed(ctx context.Context, sheetName, recordID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ProcessedRecord{}).
		Where("sheet_name = ? AND record_id = ?", sheetName, recordID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query processed record %s/%s: %w", sheetName, recordID, err)
	}
	return count > 0, nil
}

// MarkProcessed inserts one row. It does not check for an existing pair.
func (s *Store) MarkProcessed(ctx context.Context, sheetName, recordID string, at time.Time) error {
	record := ProcessedRecord{SheetName: sheetName, RecordID: recordID, ProcessedAt: at.UTC()}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert processed record %s/%s: %w", sheetName, recordID, err)
	}
	return nil
}

// BulkMarkProcessed inserts every key in a single transaction.
func (s *Store) BulkMarkProcessed(ctx context.Context, keys []Key, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([]ProcessedRecord, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, ProcessedRecord{SheetName: k.SheetName, RecordID: k.RecordID, ProcessedAt: at.UTC()})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to bulk insert %d processed records: %w", len(keys), err)
	}
	return nil
}

// Count returns the total number of processed records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ProcessedRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count processed records: %w", err)
	}
	return count, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ProcessedRecord, error) {
	var records []ProcessedRecord
	err := s.db.WithContext(ctx).
		Order("processed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list processed records: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newGormLogger routes gorm's SQL logging through zerolog.
func newGormLogger() logger.Interface {
	gormLog := log.With().Str("component", "gorm").Logger()
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(&gormLog, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
