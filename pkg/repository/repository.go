package repository

import (
	"context"
	"errors"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is the shared gorm-backed store used by services for the simple
// query-by-example lookups. Anything transactional or conditional goes
// through *gorm.DB directly.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, id string, values any) error
	BatchCreate(ctx context.Context, records []*T) error
	Count(ctx context.Context, query *T) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	tx := s.db.WithContext(ctx).Where(query)
	for _, opt := range opts {
		tx = opt(tx)
	}

	var records []*T
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// FindOne returns (nil, nil) when no record matches.
func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	tx := s.db.WithContext(ctx).Where(query)
	for _, opt := range opts {
		tx = opt(tx)
	}

	var record T
	if err := tx.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) Update(ctx context.Context, id string, values any) error {
	var model T
	return s.db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(values).Error
}

func (s *store[T]) BatchCreate(ctx context.Context, records []*T) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(records).Error
}

func (s *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	var model T
	if err := s.db.WithContext(ctx).Model(&model).Where(query).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
