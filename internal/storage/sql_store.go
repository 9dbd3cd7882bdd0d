package storage

import (
	"context"
	"errors"
	"fmt"
	"gitviewer/internal/models"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type viewRow struct {
	Username  string    `gorm:"primaryKey;size:64"`
	Count     int64     `gorm:"not null;default:0"`
	LastVisit time.Time `gorm:"not null"`
	Ips       []string  `gorm:"serializer:json"`
}

func (viewRow) TableName() string {
	return "view_records"
}

type cooldownRow struct {
	Username  string    `gorm:"primaryKey;size:64;index:idx_cooldown_user_at,priority:1"`
	VisitorID string    `gorm:"primaryKey;size:128"`
	At        time.Time `gorm:"not null;index:idx_cooldown_user_at,priority:2"`
}

func (cooldownRow) TableName() string {
	return "cooldown_entries"
}

// SQLStore persists counters in SQLite through gorm. Increments are done in
// SQL so concurrent visits do not lose updates. Times are stored in UTC so
// that range comparisons on the text column stay ordered.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sql store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection turns lock errors into waits.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&viewRow{}, &cooldownRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sql store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, username string) (*models.ViewRecord, error) {
	var row viewRow
	err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &models.ViewRecord{
		Username:       row.Username,
		Count:          row.Count,
		LastVisit:      row.LastVisit,
		RecentVisitors: row.Ips,
	}, nil
}

func (s *SQLStore) Put(ctx context.Context, username string, record *models.ViewRecord) error {
	row := viewRow{
		Username:  username,
		Count:     record.Count,
		LastVisit: record.LastVisit.UTC(),
		Ips:       record.RecentVisitors,
	}
	updates := append(clause.AssignmentColumns([]string{"ips"}),
		clause.Assignment{
			Column: clause.Column{Name: "count"},
			Value:  gorm.Expr("MAX(view_records.count, excluded.count)"),
		},
		clause.Assignment{
			Column: clause.Column{Name: "last_visit"},
			Value:  gorm.Expr("MAX(view_records.last_visit, excluded.last_visit)"),
		},
	)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: updates,
	}).Create(&row).Error
}

func (s *SQLStore) IncrementCount(ctx context.Context, username string, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := viewRow{Username: username, Count: 1, LastVisit: now.UTC(), Ips: []string{}}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("view_records.count + 1")}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Model(&viewRow{}).Select("count").Where("username = ?", username).Row().Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLStore) GetCooldown(ctx context.Context, username, visitorID string) (time.Time, bool, error) {
	var row cooldownRow
	err := s.db.WithContext(ctx).First(&row, "username = ? AND visitor_id = ?", username, visitorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return row.At, true, nil
}

func (s *SQLStore) PutCooldown(ctx context.Context, username, visitorID string, at time.Time) error {
	return s.upsertCooldown(s.db.WithContext(ctx), username, visitorID, at)
}

func (s *SQLStore) upsertCooldown(tx *gorm.DB, username, visitorID string, at time.Time) error {
	row := cooldownRow{Username: username, VisitorID: visitorID, At: at.UTC()}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *SQLStore) PruneCooldowns(ctx context.Context, username string, olderThan time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("username = ? AND at < ?", username, olderThan.UTC()).
		Delete(&cooldownRow{})
	return int(res.RowsAffected), res.Error
}

func (s *SQLStore) ClaimCooldown(ctx context.Context, username, visitorID string, now time.Time, window time.Duration) (bool, error) {
	claimed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row cooldownRow
		err := tx.First(&row, "username = ? AND visitor_id = ?", username, visitorID).Error
		switch {
		case err == nil:
			if models.InCooldown(row.At, now, window) {
				return nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		claimed = true
		return s.upsertCooldown(tx, username, visitorID, now)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
