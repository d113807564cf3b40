// Package store persists lightning address pay links in sqlite via gorm.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PayLink is an address record: who receives, what the descriptor advertises
// and how the success action is rendered. Min and Max are denominated in the
// link's Currency, or in satoshi when Currency is empty.
type PayLink struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	Wallet       string
	Description  string
	Min          float64
	Max          float64
	Currency     string
	CommentChars int64

	// ServedMeta counts descriptor fetches. Only ever incremented, and
	// only through IncrementPayLink.
	ServedMeta int64

	// Success action configuration, see lnaddy.SuccessActionConfig.
	SuccessTag     string
	SuccessMessage string
	SuccessURL     string
	SuccessSecret  string
}

type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the sqlite database at path.
func Open(path string) (*Store, error) {
	orm, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	if err := orm.AutoMigrate(&PayLink{}); err != nil {
		return nil, err
	}

	return &Store{db: orm}, nil
}

// GetAddressData looks up the pay link behind a lightning address username.
// Returns nil without error when no such address exists.
func (s *Store) GetAddressData(ctx context.Context, username string) (*PayLink,
	error) {

	var link PayLink
	tx := s.db.WithContext(ctx).Where("username = ?", username).
		First(&link)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &link, nil
}

// GetPayLink fetches a pay link by id. Returns nil without error when the
// link does not exist.
func (s *Store) GetPayLink(ctx context.Context, id string) (*PayLink, error) {
	var link PayLink
	tx := s.db.WithContext(ctx).Where("id = ?", id).First(&link)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &link, nil
}

// IncrementPayLink bumps the served-meta counter of a link and returns the
// updated record. The increment happens in a single UPDATE so concurrent
// descriptor fetches never lose counts. Returns nil without error when the
// link does not exist.
func (s *Store) IncrementPayLink(ctx context.Context, id string) (*PayLink,
	error) {

	tx := s.db.WithContext(ctx).Model(&PayLink{}).Where("id = ?", id).
		UpdateColumn("served_meta", gorm.Expr("served_meta + ?", 1))
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	return s.GetPayLink(ctx, id)
}

// CreatePayLink inserts a new link, assigning it a fresh id.
func (s *Store) CreatePayLink(ctx context.Context, link *PayLink) (*PayLink,
	error) {

	link.ID = uuid.NewString()
	if tx := s.db.WithContext(ctx).Create(link); tx.Error != nil {
		return nil, tx.Error
	}

	log.Debugf("[store] Created pay link %s for %s", link.ID,
		link.Username)

	return link, nil
}
