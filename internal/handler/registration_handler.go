package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/service"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/response"
)

type registrationService interface {
	Draft(ctx context.Context, sessionID string) dto.DraftResponse
	Update(ctx context.Context, sessionID string, fields map[string]string) (dto.DraftResponse, error)
	Discard(ctx context.Context, sessionID string) dto.DraftResponse
	Submit(ctx context.Context, sessionID string, meta service.RequestMeta) (*models.Student, error)
}

type countInvalidator interface {
	Invalidate(ctx context.Context)
}

// RegistrationHandler exposes the per-session registration draft.
type RegistrationHandler struct {
	service   registrationService
	dashboard countInvalidator
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(svc registrationService, dashboard countInvalidator) *RegistrationHandler {
	return &RegistrationHandler{service: svc, dashboard: dashboard}
}

// Get godoc
// @Summary Current registration draft
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/registration [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Draft(c.Request.Context(), claims.SessionID), nil)
}

// Update godoc
// @Summary Change registration draft fields
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateDraftRequest true "Field changes keyed by name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/registration [patch]
func (h *RegistrationHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	if len(req.Fields) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "fields are required"))
		return
	}
	draft, err := h.service.Update(c.Request.Context(), claims.SessionID, req.Fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Discard godoc
// @Summary Reset registration draft
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/registration [delete]
func (h *RegistrationHandler) Discard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Discard(c.Request.Context(), claims.SessionID), nil)
}

// Submit godoc
// @Summary Submit registration draft
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/registration/submit [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, err := h.service.Submit(c.Request.Context(), claims.SessionID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.Created(c, student)
}
