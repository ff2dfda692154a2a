// Package repository wraps database access for durable chat records.
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"propchat/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Create(ctx context.Context, record *model.TurnRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create turn record failed: %w", err)
	}
	return nil
}

// ListBySession returns a session's persisted turns, oldest first.
func (r *TurnRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.TurnRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list turn records failed: %w", err)
	}
	return records, nil
}
