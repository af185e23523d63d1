package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta identifies the caller of an audited operation.
type RequestMeta struct {
	UserID    string
	IP        string
	UserAgent string
}

// auditRecorder writes audit rows without ever failing the calling operation.
type auditRecorder struct {
	audit  auditLogger
	logger *zap.Logger
}

func (r auditRecorder) record(ctx context.Context, meta RequestMeta, action, resource, resourceID string, values interface{}) {
	if r.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if meta.UserID != "" {
		userID := meta.UserID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			entry.NewValues = raw
		}
	}
	if err := r.audit.CreateAuditLog(ctx, entry); err != nil {
		r.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
