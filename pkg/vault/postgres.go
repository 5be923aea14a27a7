package vault

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore is the gorm-backed DocumentStore. Conditional creates lean
// on the database's per-row atomicity: an insert with ON CONFLICT DO NOTHING
// either lands the row or affects nothing, and zero rows affected is the
// "already exists" signal.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&TokenRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate vault tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, pk string) (*TokenRecord, error) {
	var record TokenRecord
	err := s.db.WithContext(ctx).First(&record, "pk = ?", pk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, record *TokenRecord) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pk"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, pk string) error {
	return s.db.WithContext(ctx).Delete(&TokenRecord{}, "pk = ?", pk).Error
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]TokenRecord, error) {
	cond := map[string]interface{}{"identifier": filter.Identifier}
	if filter.Identity != nil {
		cond["identity"] = *filter.Identity
	}
	if filter.IdentityToken != nil {
		cond["identity_token"] = *filter.IdentityToken
	}
	if filter.Token != nil {
		cond["token"] = *filter.Token
	}
	if filter.Field != nil {
		cond["field"] = *filter.Field
	}

	var records []TokenRecord
	if err := s.db.WithContext(ctx).Where(cond).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
