package services

import (
	"time"

	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/internal/repositories"
	"github.com/relayhq/relay-server/internal/security"
	"github.com/relayhq/relay-server/pkg/clock"
	"github.com/relayhq/relay-server/pkg/errors"
)

// RequestHorizon is the fixed window after which a pending request is treated
// as expired. Owned here; callers never add their own horizon math.
const RequestHorizon = 7 * 24 * time.Hour

// feedLimit caps the incoming-request feed, matching the dashboard page size.
const feedLimit = 20

// Notifier receives lifecycle events. Implementations must not block the
// calling request and must swallow their own failures.
type Notifier interface {
	RequestCreated(request *models.Request)
	ResponseSubmitted(request *models.Request, response *models.Response)
}

// RequestService owns the request lifecycle: creation with the expiration
// horizon, response submission with its precondition chain, and the read-time
// expiration derivation. All status mutations happen here.
type RequestService struct {
	requests *repositories.RequestRepository
	outcomes *repositories.OutcomeRepository
	users    *repositories.UserRepository
	clock    clock.Clock
	notifier Notifier
}

func NewRequestService(
	requests *repositories.RequestRepository,
	outcomes *repositories.OutcomeRepository,
	users *repositories.UserRepository,
	clk clock.Clock,
	notifier Notifier,
) *RequestService {
	return &RequestService{
		requests: requests,
		outcomes: outcomes,
		users:    users,
		clock:    clk,
		notifier: notifier,
	}
}

type CreateRequestInput struct {
	RequesterID    string
	RequestType    string
	Context        string
	TimeCommitment string
	OfferInReturn  string
	AIAssisted     bool
}

func (s *RequestService) CreateRequest(in CreateRequestInput) (*models.Request, error) {
	if in.RequesterID == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "login required")
	}
	if !models.ValidRequestType(in.RequestType) {
		return nil, errors.New(errors.ErrCodeValidationFailed, "unknown request type")
	}
	if !models.ValidTimeCommitment(in.TimeCommitment) {
		return nil, errors.New(errors.ErrCodeValidationFailed, "unknown time commitment")
	}

	context := security.SanitizeText(in.Context)
	if context == "" {
		return nil, errors.New(errors.ErrCodeValidationFailed, "context is required")
	}

	now := s.clock.Now()
	request := &models.Request{
		RequesterID:    in.RequesterID,
		RequestType:    in.RequestType,
		Context:        context,
		TimeCommitment: in.TimeCommitment,
		OfferInReturn:  security.SanitizeText(in.OfferInReturn),
		AIAssisted:     in.AIAssisted,
		Status:         models.StatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(RequestHorizon),
	}

	if err := s.requests.Insert(request); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.RequestCreated(request)
	}

	return request, nil
}

// SubmitResponse is the single mutating entry point of the state machine.
// Preconditions, in order: request exists; responder is not the requester;
// the effective status right now is pending (a stale stored "pending" past
// the horizon counts as closed); the responder has no prior response, which
// the store's unique index decides. On success the response row and the
// terminal status commit together.
func (s *RequestService) SubmitResponse(requestID, responderID, responseType, message string) (*models.Response, error) {
	if responderID == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "login required")
	}
	if !models.ValidResponseType(responseType) {
		return nil, errors.New(errors.ErrCodeValidationFailed, "unknown response type")
	}

	request, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if responderID == request.RequesterID {
		return nil, errors.New(errors.ErrCodeSelfResponseForbidden, "you cannot respond to your own request")
	}

	if s.EffectiveStatus(request, s.clock.Now()) != models.StatusPending {
		return nil, errors.New(errors.ErrCodeRequestClosed, "this request is no longer accepting responses")
	}

	response := &models.Response{
		RequestID:    request.ID,
		ResponderID:  responderID,
		ResponseType: responseType,
		Message:      security.SanitizeText(message),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.requests.InsertResponseAndSetStatus(response, models.StatusForResponse(responseType)); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.ResponseSubmitted(request, response)
	}

	return response, nil
}

// EffectiveStatusAt derives the status a reader should treat the request as
// having at the given instant. Pure: the stored row may still say pending
// after the horizon has passed, and no write-back ever happens. Terminal
// statuses are returned as stored; only pending decays to expired.
// Package-level so read paths outside the service (reporting) share the one
// rule.
func EffectiveStatusAt(request *models.Request, now time.Time) string {
	if request.Status == models.StatusPending && !now.Before(request.ExpiresAt) {
		return models.StatusExpired
	}
	return request.Status
}

// EffectiveStatus is EffectiveStatusAt exposed on the service for callers
// already holding one.
func (s *RequestService) EffectiveStatus(request *models.Request, now time.Time) string {
	return EffectiveStatusAt(request, now)
}

// GetRequest retrieves a request with its response history.
func (s *RequestService) GetRequest(id string) (*models.Request, error) {
	return s.requests.GetByID(id)
}

// HasResponded is the defensive read path for the UI layer; the submit path
// never consults it.
func (s *RequestService) HasResponded(requestID, responderID string) (bool, error) {
	return s.requests.HasResponded(requestID, responderID)
}

// ListSent returns the caller's own requests, newest first.
func (s *RequestService) ListSent(requesterID string) ([]models.Request, error) {
	return s.requests.ListByRequester(requesterID)
}

// IncomingRequest is a feed entry: a pending request from someone else plus
// the overlap tags between the viewer and its author.
type IncomingRequest struct {
	Request models.Request
	Tags    []OverlapTag
}

// ListIncoming builds the viewer's feed: pending requests from other users,
// already-expired ones filtered out, overlap-tagged cards ranked ahead of
// untagged ones, recency preserved within each band.
func (s *RequestService) ListIncoming(viewerID string) ([]IncomingRequest, error) {
	if viewerID == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "login required")
	}

	viewerProfile, err := s.users.GetProfile(viewerID)
	if err != nil {
		return nil, err
	}

	requests, err := s.requests.ListOpenExcluding(viewerID, feedLimit)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var tagged, untagged []IncomingRequest
	for _, request := range requests {
		if s.EffectiveStatus(&request, now) != models.StatusPending {
			continue
		}

		tags := ComputeOverlap(viewerProfile, request.Requester.Profile)
		entry := IncomingRequest{Request: request, Tags: tags}
		if hasMatchTag(tags) {
			tagged = append(tagged, entry)
		} else {
			untagged = append(untagged, entry)
		}
	}

	return append(tagged, untagged...), nil
}

// LogOutcome appends an outcome record for a request. Outcomes are an
// engagement trail, not a status: any number may be logged and the state
// machine never reads them.
func (s *RequestService) LogOutcome(requestID, userID, outcomeType string) (*models.Outcome, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "login required")
	}

	outcomeType = security.SanitizeText(outcomeType)
	if outcomeType == "" {
		return nil, errors.New(errors.ErrCodeValidationFailed, "outcome type is required")
	}

	if _, err := s.requests.GetByID(requestID); err != nil {
		return nil, err
	}

	outcome := &models.Outcome{
		RequestID:   requestID,
		OutcomeType: outcomeType,
		LoggedBy:    userID,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.outcomes.Log(outcome); err != nil {
		return nil, err
	}

	return outcome, nil
}

// ListOutcomes retrieves the outcome trail for a request.
func (s *RequestService) ListOutcomes(requestID string) ([]models.Outcome, error) {
	return s.outcomes.ListByRequest(requestID)
}
