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

type tcService interface {
	Issue(ctx context.Context, req dto.IssueTCRequest, opts service.IssueOptions) (*dto.IssueTCResponse, error)
	Lookup(ctx context.Context, admissionNumber, studentID string) (*models.TransferCertificate, error)
	Open(ctx context.Context, tc *models.TransferCertificate) (*service.TCDownload, error)
	Verify(ctx context.Context, token string) (*dto.TCVerifyResponse, error)
}

// TCHandler exposes transfer certificate issuance, search and verification.
type TCHandler struct {
	service   tcService
	dashboard countInvalidator
}

// NewTCHandler constructs the handler.
func NewTCHandler(svc tcService, dashboard countInvalidator) *TCHandler {
	return &TCHandler{service: svc, dashboard: dashboard}
}

// Issue godoc
// @Summary Issue a transfer certificate
// @Tags Transfer Certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.IssueTCRequest true "Certificate values"
// @Param Idempotency-Key header string false "Replay key"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /tc [post]
func (h *TCHandler) Issue(c *gin.Context) {
	var req dto.IssueTCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certificate payload"))
		return
	}
	res, err := h.service.Issue(c.Request.Context(), req, service.IssueOptions{
		IdempotencyKey: c.GetHeader(idempotencyHeader),
		Meta:           requestMeta(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.Created(c, res)
}

// Search godoc
// @Summary Find a transfer certificate
// @Tags Transfer Certificates
// @Produce json
// @Security BearerAuth
// @Param admissionNumber query string true "Admission number"
// @Param studentId query string true "Student ID"
// @Param download query bool false "Stream the certificate as an attachment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tc/search [get]
func (h *TCHandler) Search(c *gin.Context) {
	var query dto.TCSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	tc, err := h.service.Lookup(c.Request.Context(), query.AdmissionNumber, query.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !query.Download {
		response.JSON(c, http.StatusOK, tc, nil)
		return
	}
	file, err := h.service.Open(c.Request.Context(), tc)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close() //nolint:errcheck
	response.Attachment(c, file.FileName, file.ContentType, file.Size, file.Body)
}

// Verify godoc
// @Summary Verify a printed certificate
// @Tags Transfer Certificates
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tc/verify [get]
func (h *TCHandler) Verify(c *gin.Context) {
	res, err := h.service.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
