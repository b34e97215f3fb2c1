// Package sqlite keeps the community data in an on-device SQLite database.
// It backs local-only mode when no hosted store is reachable.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// identityRow is the table layout. The full record is kept as JSON so new
// profile fields need no migration; the indexed columns serve lookups.
type identityRow struct {
	FriendCode string `gorm:"primaryKey"`
	IGN        string `gorm:"index"`
	IsAdmin    bool
	Data       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (identityRow) TableName() string { return "identities" }

func toRow(identity *model.Identity) (*identityRow, error) {
	data, err := json.Marshal(identity)
	if err != nil {
		return nil, err
	}
	return &identityRow{
		FriendCode: string(identity.FriendCode),
		IGN:        identity.IGN,
		IsAdmin:    identity.IsAdmin,
		Data:       data,
		CreatedAt:  identity.CreatedAt,
		UpdatedAt:  identity.UpdatedAt,
	}, nil
}

func (r *identityRow) identity() (*model.Identity, error) {
	var identity model.Identity
	if err := json.Unmarshal(r.Data, &identity); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", r.FriendCode, err)
	}
	return &identity, nil
}

// Storage is a storage.Storage over a gorm SQLite database
type Storage struct {
	db *gorm.DB
}

var _ storage.Storage = (*Storage)(nil)

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection serializes transactions
	// instead of failing them with SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&identityRow{}, &recordRow{}, &queueEntryRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close releases the database
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database answers
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) GetIdentity(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	var row identityRow
	err := s.db.WithContext(ctx).First(&row, "friend_code = ?", string(fc)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.identity()
}

// CreateIdentity inserts the identity unless the friend code is taken
func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	row, err := toRow(identity)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrIdentityExists
	}
	return nil
}

// UpdateIdentity reads, patches and writes back inside one transaction
func (s *Storage) UpdateIdentity(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error) {
	var result *model.Identity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row identityRow
		err := tx.First(&row, "friend_code = ?", string(fc)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrIdentityNotFound
		}
		if err != nil {
			return err
		}

		identity, err := row.identity()
		if err != nil {
			return err
		}
		patch.Apply(identity)

		updated, err := toRow(identity)
		if err != nil {
			return err
		}
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		result = identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, fc model.FriendCode) error {
	return s.db.WithContext(ctx).Delete(&identityRow{}, "friend_code = ?", string(fc)).Error
}

func (s *Storage) IdentityExists(ctx context.Context, fc model.FriendCode) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&identityRow{}).Where("friend_code = ?", string(fc)).Count(&n).Error
	return n > 0, err
}

// ListIdentities returns every identity ordered by friend code
func (s *Storage) ListIdentities(ctx context.Context) ([]*model.Identity, error) {
	var rows []identityRow
	if err := s.db.WithContext(ctx).Order("friend_code").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*model.Identity, 0, len(rows))
	for i := range rows {
		identity, err := rows[i].identity()
		if err != nil {
			continue // Skip undecodable rows
		}
		result = append(result, identity)
	}
	return result, nil
}
