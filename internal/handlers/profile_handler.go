package handlers

import (
	"net/http"

	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/internal/middleware"
	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/internal/repositories"
	"github.com/relayhq/relay-server/internal/security"
	"github.com/relayhq/relay-server/pkg/errors"
)

type ProfileHandler struct {
	users *repositories.UserRepository
}

func NewProfileHandler(users *repositories.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GET /api/profile
func (h *ProfileHandler) Get(ctx iris.Context) {
	user, err := h.users.GetByID(middleware.CallerID(ctx))
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	view := iris.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}
	if user.Profile != nil {
		view["athlete_profile"] = iris.Map{
			"school":              user.Profile.School,
			"sport":               user.Profile.Sport,
			"ncaa_level":          user.Profile.NCAALevel,
			"years_active":        user.Profile.YearsActive,
			"verification_status": user.Profile.VerificationStatus,
		}
	}

	ctx.JSON(iris.Map{"data": view})
}

type upsertProfileInput struct {
	School      string `json:"school" validate:"required"`
	Sport       string `json:"sport" validate:"required"`
	NCAALevel   string `json:"ncaa_level"`
	YearsActive string `json:"years_active"`
}

// PUT /api/profile — create or replace the caller's athlete profile.
// Verification status is not writable here; it only changes through the
// verification flow.
func (h *ProfileHandler) Upsert(ctx iris.Context) {
	var input upsertProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		JSONError(ctx, http.StatusBadRequest, errors.ErrCodeValidationFailed, "invalid payload")
		return
	}

	callerID := middleware.CallerID(ctx)
	existing, err := h.users.GetProfile(callerID)
	if err != nil {
		WriteAppError(ctx, err)
		return
	}

	profile := &models.AthleteProfile{
		UserID:      callerID,
		School:      security.SanitizeText(input.School),
		Sport:       security.SanitizeText(input.Sport),
		NCAALevel:   security.SanitizeText(input.NCAALevel),
		YearsActive: security.SanitizeText(input.YearsActive),
	}
	if existing != nil {
		profile.VerificationStatus = existing.VerificationStatus
	}

	if err := h.users.UpsertProfile(profile); err != nil {
		WriteAppError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"data": iris.Map{
		"school":              profile.School,
		"sport":               profile.Sport,
		"ncaa_level":          profile.NCAALevel,
		"years_active":        profile.YearsActive,
		"verification_status": profile.VerificationStatus,
	}})
}
