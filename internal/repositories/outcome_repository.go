package repositories

import (
	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/pkg/errors"
	"gorm.io/gorm"
)

type OutcomeRepository struct {
	db *gorm.DB
}

func NewOutcomeRepository(db *gorm.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Log appends an outcome record. Outcomes are append-only and may repeat per
// request; they never touch request status.
func (r *OutcomeRepository) Log(outcome *models.Outcome) error {
	if err := r.db.Create(outcome).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to log outcome")
	}
	return nil
}

// ListByRequest retrieves all outcomes logged against a request, oldest first.
func (r *OutcomeRepository) ListByRequest(requestID string) ([]models.Outcome, error) {
	var outcomes []models.Outcome
	err := r.db.
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&outcomes).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list outcomes")
	}

	return outcomes, nil
}
