package repositories

import (
	stderrors "errors"

	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/pkg/errors"
	"gorm.io/gorm"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Insert persists a new request.
func (r *RequestRepository) Insert(request *models.Request) error {
	if err := r.db.Create(request).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create request")
	}
	return nil
}

// GetByID retrieves a request with its requester profile and response history.
func (r *RequestRepository) GetByID(id string) (*models.Request, error) {
	var request models.Request
	result := r.db.
		Preload("Requester").
		Preload("Requester.Profile").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responses.created_at ASC")
		}).
		First(&request, "id = ?", id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "request not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorageFailure, "failed to get request")
	}

	return &request, nil
}

// ListByRequester retrieves requests posted by a user, newest first.
func (r *RequestRepository) ListByRequester(requesterID string) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list requests")
	}

	return requests, nil
}

// ListOpenExcluding retrieves pending requests posted by anyone but the given
// user, newest first. This is the incoming feed for a potential helper.
func (r *RequestRepository) ListOpenExcluding(userID string, limit int) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.
		Preload("Requester").
		Preload("Requester.Profile").
		Where("requester_id != ? AND status = ?", userID, models.StatusPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list open requests")
	}

	return requests, nil
}

// InsertResponseAndSetStatus commits a response row and the derived request
// status in a single transaction. The composite unique index on
// (request_id, responder_id) is the ledger guard: a duplicate submission loses
// at the store and surfaces as ALREADY_RESPONDED, with neither write applied.
func (r *RequestRepository) InsertResponseAndSetStatus(response *models.Response, status string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Request{}).
			Where("id = ?", response.RequestID).
			Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})

	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.New(errors.ErrCodeAlreadyResponded, "you already responded to this request")
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.ErrCodeNotFound, "request not found")
	}
	return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to record response")
}

// ListResponses retrieves all responses for a request ordered by creation
// time. The full history is kept regardless of which response owns the status
// pointer.
func (r *RequestRepository) ListResponses(requestID string) ([]models.Response, error) {
	var responses []models.Response
	err := r.db.
		Preload("Responder").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&responses).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list responses")
	}

	return responses, nil
}

// HasResponded reports whether a responder already has a row in the ledger
// for this request. Read path only; the write path relies on the unique
// index, not on this check.
func (r *RequestRepository) HasResponded(requestID, responderID string) (bool, error) {
	var count int64
	result := r.db.Model(&models.Response{}).
		Where("request_id = ? AND responder_id = ?", requestID, responderID).
		Count(&count)

	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeStorageFailure, "failed to check response ledger")
	}

	return count > 0, nil
}
