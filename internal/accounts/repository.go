package accounts

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	var list []Account
	if err := r.db.WithContext(ctx).Order("username").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return list, nil
}
