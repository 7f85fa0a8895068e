package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"callbridge/internal/audit"
	"callbridge/internal/calls"
	"callbridge/internal/crm"
	"callbridge/internal/schedule"
	"callbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallStarter runs the outbound call flow for one CRM request.
type CallStarter interface {
	Start(ctx context.Context, req calls.CallRequest) (calls.Result, error)
}

// PhoneDirectory finds raw contact rows by phone.
type PhoneDirectory interface {
	LookupByPhoneCandidates(ctx context.Context, raw string) ([]crm.ContactRecord, error)
}

// ContactDirectory resolves CRM enrichment by email.
type ContactDirectory interface {
	LookupByEmail(ctx context.Context, email string) (crm.ContactMetadata, error)
}

// Auditor records raw payloads without blocking.
type Auditor interface {
	Record(ctx context.Context, apiName string, payload any)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls    CallStarter
	Phones   PhoneDirectory
	Contacts ContactDirectory
	Audit    Auditor

	// Now defaults to time.Now.
	Now func() time.Time
}

func (h Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the API"})
}

func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Calls ---

// APIInput starts an outbound call for a CRM-posted contact.
func (h Handlers) APIInput(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	var req calls.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	log := logger.FromGin(c).With("contact_id", req.ContactID)
	ctx := logger.With(c.Request.Context(), log)

	res, err := h.Calls.Start(ctx, req)
	switch {
	case errors.Is(err, calls.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Phone number is required."})
		return
	case errors.Is(err, calls.ErrEnrichment):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve contact details"})
		return
	case errors.Is(err, calls.ErrInitiation):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate call"})
		return
	case err != nil:
		log.Error("call flow failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

// --- Prefetch ---

// Prefetch returns agent metadata for the caller of an inbound session, or {} when the
// caller is unknown.
func (h Handlers) Prefetch(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := logger.With(c.Request.Context(), log)

	query := gin.H{
		"to":         c.Query("to"),
		"from":       c.Query("from"),
		"session_id": c.Query("session_id"),
		"agent_id":   c.Query("agent_id"),
	}
	if h.Audit != nil {
		h.Audit.Record(ctx, audit.APIPrefetch, query)
	}

	from := c.Query("from")
	if from == "" || h.Phones == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	recs, err := h.Phones.LookupByPhoneCandidates(ctx, from)
	if err != nil {
		log.Warn("phone lookup failed", "from", from, "err", err)
	}
	if len(recs) == 0 {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	rec := recs[0]
	md := map[string]any{
		"email":        rec.Email,
		"EmailAddress": rec.Email,
		"name":         crm.FirstName(rec.Name),
	}
	if rec.Email != "" && h.Contacts != nil {
		contact, err := h.Contacts.LookupByEmail(ctx, rec.Email)
		if err != nil {
			log.Warn("prefetch enrichment failed", "email", rec.Email, "err", err)
		} else {
			if contact.FirstName != "" {
				md["name"] = contact.FirstName
			}
			for k, v := range contact.Fields() {
				md[k] = v
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"metadata": md})
}

// --- Business hours ---

// CheckBusinessHours reports whether the phone's local time is inside business hours
// and, if not, how long to wait until the desired call time.
func (h Handlers) CheckBusinessHours(c *gin.Context) {
	window := schedule.DefaultWindow
	if v := c.Query("business_hours"); v != "" {
		w, err := schedule.ParseWindow(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		window = w
	}
	desired := schedule.ClockTime{Hour: 15}
	if v := c.Query("desired_call_time"); v != "" {
		t, err := schedule.ParseClock(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		desired = t
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	av, err := schedule.CheckPhone(now(), c.Query("phone"), window, desired)
	if err != nil {
		logger.FromGin(c).Warn("business hours check failed", "phone", c.Query("phone"), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, av)
}
