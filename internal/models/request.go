package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request is a time-bounded ask for help posted by a student-athlete or
// alumnus. Status is mutated only by the lifecycle service; rows are never
// deleted in normal operation.
type Request struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	RequesterID    string    `gorm:"type:uuid;not null;index"`
	Requester      User      `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE"`
	RequestType    string    `gorm:"type:varchar(20);not null"`
	Context        string    `gorm:"type:text;not null"`
	TimeCommitment string    `gorm:"type:varchar(20);not null"`
	OfferInReturn  string    `gorm:"type:text"`
	AIAssisted     bool      `gorm:"default:false;not null"` // provenance only, never drives logic
	Status         string    `gorm:"type:varchar(20);default:'pending';not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
	ExpiresAt      time.Time `gorm:"not null"`

	Responses []Response `gorm:"foreignKey:RequestID"`
}

// Request status constants. StatusExpired is a read-time derivation and is
// never written to the status column.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
	StatusReferred = "referred"
	StatusExpired  = "expired"
)

// Request type constants
const (
	RequestTypeAdvice     = "advice"
	RequestTypeInternship = "internship"
	RequestTypeFulltime   = "fulltime"
	RequestTypeReferral   = "referral"
)

// Time commitment buckets
const (
	TimeCommitment15Min     = "15min"
	TimeCommitment30Min     = "30min"
	TimeCommitmentEmail     = "email"
	TimeCommitmentReview    = "review"
	TimeCommitmentMentoring = "ongoing"
)

func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeAdvice, RequestTypeInternship, RequestTypeFulltime, RequestTypeReferral:
		return true
	}
	return false
}

func ValidTimeCommitment(t string) bool {
	switch t {
	case TimeCommitment15Min, TimeCommitment30Min, TimeCommitmentEmail,
		TimeCommitmentReview, TimeCommitmentMentoring:
		return true
	}
	return false
}

// BeforeCreate assigns the id and validates enumerated fields. Validation
// lives on create rather than save so that the engine's column-level status
// update does not re-run it against an empty model value. StatusExpired is
// rejected on purpose: expiration is derived at read time, a stored
// "expired" would let a later write regress the status.
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if !ValidRequestType(r.RequestType) {
		return gorm.ErrInvalidData
	}
	if !ValidTimeCommitment(r.TimeCommitment) {
		return gorm.ErrInvalidData
	}
	switch r.Status {
	case StatusPending, StatusAccepted, StatusDeclined, StatusReferred:
	default:
		return gorm.ErrInvalidData
	}
	return nil
}

func (Request) TableName() string {
	return "requests"
}

// Response is a single reply by a non-owner to a Request, immutable once
// created. The composite unique index is the response ledger's at-most-one
// guard; inserts racing on the same (request, responder) pair resolve at the
// store, not in application code.
type Response struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	RequestID    string    `gorm:"type:uuid;not null;index:idx_response_ledger,unique"`
	ResponderID  string    `gorm:"type:uuid;not null;index:idx_response_ledger,unique"`
	Responder    User      `gorm:"foreignKey:ResponderID;constraint:OnDelete:CASCADE"`
	ResponseType string    `gorm:"type:varchar(20);not null"`
	Message      string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Response type constants
const (
	ResponseTypeAccept  = "accept"
	ResponseTypeDecline = "decline"
	ResponseTypeRefer   = "refer"
)

func ValidResponseType(t string) bool {
	switch t {
	case ResponseTypeAccept, ResponseTypeDecline, ResponseTypeRefer:
		return true
	}
	return false
}

// StatusForResponse maps a response type to the terminal request status it
// drives.
func StatusForResponse(responseType string) string {
	switch responseType {
	case ResponseTypeAccept:
		return StatusAccepted
	case ResponseTypeDecline:
		return StatusDeclined
	case ResponseTypeRefer:
		return StatusReferred
	}
	return ""
}

func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if !ValidResponseType(r.ResponseType) {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Response) TableName() string {
	return "responses"
}

// Outcome is an append-only record of what came out of an accepted intro.
// Many may exist per request; outcomes never feed back into request status.
type Outcome struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	RequestID   string    `gorm:"type:uuid;not null;index"`
	OutcomeType string    `gorm:"type:varchar(100);not null"`
	LoggedBy    string    `gorm:"type:uuid;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (o *Outcome) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (Outcome) TableName() string {
	return "outcomes"
}
