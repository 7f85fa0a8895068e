package telephony

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"callbridge/internal/audit"
	"callbridge/internal/crm"
	"callbridge/internal/metrics"
	"callbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TagWriter applies CRM tag updates.
type TagWriter interface {
	Upsert(ctx context.Context, u crm.TagUpdate) error
}

// Auditor records raw payloads, best-effort and non-blocking.
type Auditor interface {
	Record(ctx context.Context, apiName string, payload any)
}

// SessionWebhookHandler converts the provider's end-of-call report to internal types,
// writes the derived CRM tags, and echoes a summary.
//
// No call is placed here; tag and audit failures never change the response.
type SessionWebhookHandler struct {
	Tags    TagWriter
	Audit   Auditor
	Metrics *metrics.Metrics
}

func (h SessionWebhookHandler) HandleEndOfCall(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := logger.With(c.Request.Context(), log)

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		log.Warn("end-of-call payload parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if h.Audit != nil {
		h.Audit.Record(ctx, audit.APIEndOfCall, json.RawMessage(raw))
	}

	var report SessionReport
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Warn("end-of-call report decode failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid report"})
		return
	}

	out := DeriveSessionOutcome(report)
	log.Info("end-of-call report", "email", out.Email, "tags", out.Tags, "call_status", out.Stats.CallStatus)

	switch {
	case out.Email == "":
		log.Warn("end-of-call report without contact email, tags not written", "tags", out.Tags)
	case h.Tags != nil:
		err := h.Tags.Upsert(ctx, crm.TagUpdate{Email: out.Email, Tags: out.Tags})
		h.Metrics.TagUpdate(err)
		if err != nil {
			log.Error("end-of-call tag update failed", "email", out.Email, "err", err)
		}
	}

	result := gin.H{
		"received_payload": payload,
		"stats":            out.Stats,
	}
	if h.Audit != nil {
		h.Audit.Record(ctx, audit.APIEndOfCallSummary, result)
	}
	c.JSON(http.StatusOK, result)
}
