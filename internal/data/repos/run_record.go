package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

type RunRecordRepo interface {
	Create(ctx context.Context, rec *domain.RunRecord) (*domain.RunRecord, error)
	ListByNotebook(ctx context.Context, notebookName string, limit int) ([]*domain.RunRecord, error)
}

type runRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRecordRepo(db *gorm.DB, baseLog *logger.Logger) RunRecordRepo {
	return &runRecordRepo{
		db:  db,
		log: baseLog.With("repo", "RunRecordRepo"),
	}
}

func (r *runRecordRepo) Create(ctx context.Context, rec *domain.RunRecord) (*domain.RunRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *runRecordRepo) ListByNotebook(ctx context.Context, notebookName string, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.RunRecord
	err := r.db.WithContext(ctx).
		Where("notebook_name = ?", notebookName).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
