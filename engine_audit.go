package tomeauth

import (
	"context"
	"errors"

	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidFormat      AuditErrorCode = "invalid_format"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrMissingRecord      AuditErrorCode = "missing_record"
	auditErrCorruptRecord      AuditErrorCode = "corrupt_record"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	profile string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if profile == "" {
		profile = ProfileFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		ProfileID: profile,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidFormat):
		return auditErrInvalidFormat
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrThrottled):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, ErrStorageUnavailable):
		return auditErrUnavailable
	case errors.Is(err, session.ErrCorrupt),
		errors.Is(err, ErrStorageCorrupt):
		return auditErrCorruptRecord
	case errors.Is(err, storage.ErrNotFound):
		return auditErrMissingRecord
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
