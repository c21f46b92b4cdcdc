package handlers

import (
	"net/http"

	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/internal/middleware"
	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/internal/services"
	"github.com/relayhq/relay-server/pkg/clock"
	"github.com/relayhq/relay-server/pkg/errors"
)

type RequestHandler struct {
	svc   *services.RequestService
	clock clock.Clock
}

func NewRequestHandler(svc *services.RequestService, clk clock.Clock) *RequestHandler {
	return &RequestHandler{svc: svc, clock: clk}
}

type createRequestInput struct {
	RequestType    string `json:"request_type" validate:"required"`
	Context        string `json:"context" validate:"required"`
	TimeCommitment string `json:"time_commitment" validate:"required"`
	OfferInReturn  string `json:"offer_in_return"`
	AIAssisted     bool   `json:"ai_assisted"`
}

// POST /api/requests
func (h *RequestHandler) Create(ctx iris.Context) {
	var input createRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		JSONError(ctx, http.StatusBadRequest, errors.ErrCodeValidationFailed, "invalid payload")
		return
	}

	request, err := h.svc.CreateRequest(services.CreateRequestInput{
		RequesterID:    middleware.CallerID(ctx),
		RequestType:    input.RequestType,
		Context:        input.Context,
		TimeCommitment: input.TimeCommitment,
		OfferInReturn:  input.OfferInReturn,
		AIAssisted:     input.AIAssisted,
	})
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"data": h.requestView(request)})
}

// GET /api/requests — the caller's own requests plus their incoming feed.
func (h *RequestHandler) List(ctx iris.Context) {
	callerID := middleware.CallerID(ctx)

	sent, err := h.svc.ListSent(callerID)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	incoming, err := h.svc.ListIncoming(callerID)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	sentViews := make([]iris.Map, 0, len(sent))
	for i := range sent {
		sentViews = append(sentViews, h.requestView(&sent[i]))
	}

	incomingViews := make([]iris.Map, 0, len(incoming))
	for i := range incoming {
		view := h.requestView(&incoming[i].Request)
		view["requester_name"] = incoming[i].Request.Requester.Name
		view["overlap_tags"] = incoming[i].Tags
		incomingViews = append(incomingViews, view)
	}

	ctx.JSON(iris.Map{"data": iris.Map{
		"sent":     sentViews,
		"incoming": incomingViews,
	}})
}

// GET /api/requests/{id}
func (h *RequestHandler) Get(ctx iris.Context) {
	request, err := h.svc.GetRequest(ctx.Params().Get("id"))
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	callerID := middleware.CallerID(ctx)
	responded, err := h.svc.HasResponded(request.ID, callerID)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	responses := make([]iris.Map, 0, len(request.Responses))
	for _, response := range request.Responses {
		responses = append(responses, iris.Map{
			"id":            response.ID,
			"responder_id":  response.ResponderID,
			"response_type": response.ResponseType,
			"message":       response.Message,
			"created_at":    response.CreatedAt,
		})
	}

	view := h.requestView(request)
	view["is_owner"] = request.RequesterID == callerID
	view["has_responded"] = responded
	view["responses"] = responses

	ctx.JSON(iris.Map{"data": view})
}

type submitResponseInput struct {
	ResponseType string `json:"response_type" validate:"required,oneof=accept decline refer"`
	Message      string `json:"message"`
}

// POST /api/requests/{id}/responses
func (h *RequestHandler) SubmitResponse(ctx iris.Context) {
	var input submitResponseInput
	if err := ctx.ReadJSON(&input); err != nil {
		JSONError(ctx, http.StatusBadRequest, errors.ErrCodeValidationFailed, "invalid payload")
		return
	}

	response, err := h.svc.SubmitResponse(
		ctx.Params().Get("id"),
		middleware.CallerID(ctx),
		input.ResponseType,
		input.Message,
	)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"data": iris.Map{
		"id":            response.ID,
		"request_id":    response.RequestID,
		"response_type": response.ResponseType,
		"message":       response.Message,
		"created_at":    response.CreatedAt,
	}})
}

type logOutcomeInput struct {
	OutcomeType string `json:"outcome_type" validate:"required"`
}

// POST /api/requests/{id}/outcomes
func (h *RequestHandler) LogOutcome(ctx iris.Context) {
	var input logOutcomeInput
	if err := ctx.ReadJSON(&input); err != nil {
		JSONError(ctx, http.StatusBadRequest, errors.ErrCodeValidationFailed, "invalid payload")
		return
	}

	outcome, err := h.svc.LogOutcome(ctx.Params().Get("id"), middleware.CallerID(ctx), input.OutcomeType)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"data": iris.Map{
		"id":           outcome.ID,
		"request_id":   outcome.RequestID,
		"outcome_type": outcome.OutcomeType,
		"created_at":   outcome.CreatedAt,
	}})
}

type refineDraftInput struct {
	Context string `json:"context" validate:"required"`
	Offer   string `json:"offer"`
}

// POST /api/requests/refine
func (h *RequestHandler) RefineDraft(ctx iris.Context) {
	var input refineDraftInput
	if err := ctx.ReadJSON(&input); err != nil {
		JSONError(ctx, http.StatusBadRequest, errors.ErrCodeValidationFailed, "invalid payload")
		return
	}

	ctx.JSON(iris.Map{"data": services.RefineDraft(input.Context, input.Offer)})
}

// requestView renders the common request fields, including the effective
// status so clients never display a stale pending past the horizon.
func (h *RequestHandler) requestView(request *models.Request) iris.Map {
	return iris.Map{
		"id":               request.ID,
		"requester_id":     request.RequesterID,
		"request_type":     request.RequestType,
		"context":          request.Context,
		"time_commitment":  request.TimeCommitment,
		"offer_in_return":  request.OfferInReturn,
		"ai_assisted":      request.AIAssisted,
		"status":           request.Status,
		"effective_status": h.svc.EffectiveStatus(request, h.clock.Now()),
		"created_at":       request.CreatedAt,
		"expires_at":       request.ExpiresAt,
	}
}
