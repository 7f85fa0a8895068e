package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"callbridge/internal/audit"
	"callbridge/internal/crm"
	"callbridge/internal/metrics"
	"callbridge/internal/phone"
	"callbridge/internal/routing"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"
)

var (
	ErrValidation = errors.New("calls: invalid request")
	ErrEnrichment = errors.New("calls: contact enrichment failed")
	ErrInitiation = errors.New("calls: failed to initiate call")
)

// DefaultPollDelay is how long a started call is given before its status is polled.
const DefaultPollDelay = 60 * time.Second

// PollMode selects whether Start waits for the status poll.
type PollMode string

const (
	// PollInline keeps the request open until the poll has run.
	PollInline PollMode = "inline"
	// PollBackground returns after initiation and polls on the lifetime context.
	PollBackground PollMode = "background"
)

// ParsePollMode maps a config value to a PollMode. Empty means inline.
func ParsePollMode(s string) (PollMode, error) {
	switch PollMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PollInline:
		return PollInline, nil
	case PollBackground:
		return PollBackground, nil
	default:
		return "", fmt.Errorf("calls: unknown poll mode %q", s)
	}
}

// ContactDirectory resolves a contact's CRM enrichment by email.
type ContactDirectory interface {
	LookupByEmail(ctx context.Context, email string) (crm.ContactMetadata, error)
}

// TagWriter applies CRM tag and property updates.
type TagWriter interface {
	Upsert(ctx context.Context, u crm.TagUpdate) error
}

// Auditor records raw payloads without blocking.
type Auditor interface {
	Record(ctx context.Context, apiName string, payload any)
}

// CallPlacer is the subset of the voice provider the call flow needs.
type CallPlacer interface {
	StartOutboundCall(ctx context.Context, req telephony.OutboundCallRequest) (telephony.OutboundCallResult, error)
	GetCallLog(ctx context.Context, sessionID string) (telephony.CallLog, error)
}

type Options struct {
	Routes    routing.Table
	PollDelay time.Duration
	PollMode  PollMode

	// Lifetime bounds every poll wait. Cancelling it drops pending tag updates.
	Lifetime context.Context

	Metrics *metrics.Metrics
}

// Orchestrator runs one call request end to end: enrich, route, place the call,
// wait once, poll once, and tag the contact with the result.
//
// Tag, audit and poll failures are logged and never change what Start returns
// once the provider accepted the call.
type Orchestrator struct {
	directory ContactDirectory
	tags      TagWriter
	audit     Auditor
	calls     CallPlacer

	routes    routing.Table
	pollDelay time.Duration
	pollMode  PollMode
	lifetime  context.Context
	metrics   *metrics.Metrics

	wg sync.WaitGroup
}

func NewOrchestrator(directory ContactDirectory, tags TagWriter, auditor Auditor, placer CallPlacer, opts Options) *Orchestrator {
	if opts.PollDelay <= 0 {
		opts.PollDelay = DefaultPollDelay
	}
	if opts.PollMode == "" {
		opts.PollMode = PollInline
	}
	if opts.Lifetime == nil {
		opts.Lifetime = context.Background()
	}
	return &Orchestrator{
		directory: directory,
		tags:      tags,
		audit:     auditor,
		calls:     placer,
		routes:    opts.Routes,
		pollDelay: opts.PollDelay,
		pollMode:  opts.PollMode,
		lifetime:  opts.Lifetime,
		metrics:   opts.Metrics,
	}
}

// Start validates req and runs the call flow.
//
// Errors wrap ErrValidation, ErrEnrichment or ErrInitiation. A contact without a
// routable region tag is not an error: the Result has OutcomeNoAgent.
func (o *Orchestrator) Start(ctx context.Context, req CallRequest) (Result, error) {
	log := logger.From(ctx)
	req = req.normalized()
	if req.Phone == "" {
		return Result{}, fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	o.record(ctx, audit.APIInput, req)

	contact, err := o.directory.LookupByEmail(ctx, req.Email)
	if err != nil {
		log.Error("contact enrichment failed", "email", req.Email, "err", err)
		return Result{}, fmt.Errorf("%w: %w", ErrEnrichment, err)
	}

	decision, ok := o.routes.Resolve(contact.Tags)
	if !ok {
		msg := fmt.Sprintf("No agent for country, tags: [%s]", strings.Join(contact.Tags, ", "))
		log.Info("no route for contact", "email", req.Email, "tags", contact.Tags)
		o.metrics.CallOutcome(string(OutcomeNoAgent))
		return Result{Outcome: OutcomeNoAgent, Message: msg}, nil
	}

	failureTag, attempt := PotentialFailureTag(contact.Tags)
	outbound := telephony.OutboundCallRequest{
		FromPhone:               decision.FromPhone,
		ToPhone:                 phone.NormalizeOr(req.Phone),
		AgentID:                 decision.AgentID,
		Metadata:                agentMetadata(req, contact),
		IncludeMetadataInPrompt: true,
	}
	log = log.With("email", req.Email, "region", decision.Region, "attempt", attempt)
	ctx = logger.With(ctx, log)

	o.record(ctx, audit.APIOutboundCall, outbound)

	started, err := o.calls.StartOutboundCall(ctx, outbound)
	if err != nil {
		log.Error("outbound call failed", "to", outbound.ToPhone, "err", err)
		o.writeTags(ctx, req.Email, failureTag)
		o.metrics.CallOutcome(string(OutcomeInitiationFailed))
		return Result{Outcome: OutcomeInitiationFailed, Route: decision, FailureTag: failureTag},
			fmt.Errorf("%w: %w", ErrInitiation, err)
	}
	log.Info("outbound call started", "session_id", started.SessionID, "to", outbound.ToPhone)
	o.writeTags(ctx, req.Email, crm.TagCalling)

	res := Result{
		Outcome:    OutcomeCalling,
		Message:    MessageInitiated,
		Route:      decision,
		SessionID:  started.SessionID,
		FailureTag: failureTag,
	}
	p := pendingPoll{email: req.Email, sessionID: started.SessionID, failureTag: failureTag}

	if o.pollMode == PollBackground {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.metrics.CallOutcome(string(o.reconcile(logger.With(o.lifetime, log), p)))
		}()
		return res, nil
	}

	res.Outcome = o.reconcile(context.WithoutCancel(ctx), p)
	o.metrics.CallOutcome(string(res.Outcome))
	return res, nil
}

// Wait blocks until every background poll has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

type pendingPoll struct {
	email      string
	sessionID  string
	failureTag string
}

// reconcile waits the poll delay, polls the call once and tags the contact.
// The wait is abandoned when the lifetime context ends.
func (o *Orchestrator) reconcile(ctx context.Context, p pendingPoll) Outcome {
	log := logger.From(ctx).With("session_id", p.sessionID)
	done := o.metrics.PollStarted()
	defer done()

	t := time.NewTimer(o.pollDelay)
	defer t.Stop()
	select {
	case <-o.lifetime.Done():
		log.Warn("shutdown before call status poll, tag update dropped", "failure_tag", p.failureTag)
		return OutcomeCalling
	case <-t.C:
	}

	o.write(ctx, crm.TagUpdate{Email: p.email, CallID: p.sessionID})

	callLog, err := o.calls.GetCallLog(ctx, p.sessionID)
	if err != nil {
		log.Error("call status poll failed", "err", err)
		o.writeTags(ctx, p.email, p.failureTag)
		return failureOutcome(p.failureTag)
	}
	if callLog.Answered() {
		log.Info("call answered", "call_status", callLog.CallStatus)
		o.writeTags(ctx, p.email, crm.TagTalked)
		return OutcomeTalked
	}
	log.Info("call not answered", "call_status", callLog.CallStatus, "failure_tag", p.failureTag)
	o.writeTags(ctx, p.email, p.failureTag)
	return failureOutcome(p.failureTag)
}

func (o *Orchestrator) writeTags(ctx context.Context, email string, tags ...string) {
	o.write(ctx, crm.TagUpdate{Email: email, Tags: tags})
}

func (o *Orchestrator) write(ctx context.Context, u crm.TagUpdate) {
	if o.tags == nil {
		return
	}
	err := o.tags.Upsert(ctx, u)
	o.metrics.TagUpdate(err)
	if err != nil {
		logger.From(ctx).Error("crm update failed", "tags", u.Tags, "call_id", u.CallID, "err", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, apiName string, payload any) {
	if o.audit != nil {
		o.audit.Record(ctx, apiName, payload)
	}
}

// agentMetadata is the metadata handed to the voice agent: identity fields first,
// then the contact enrichment, which wins on key collisions.
func agentMetadata(req CallRequest, contact crm.ContactMetadata) map[string]any {
	md := map[string]any{
		"email":        req.Email,
		"EmailAddress": req.Email,
		"name":         contact.FirstName,
	}
	for k, v := range contact.Fields() {
		md[k] = v
	}
	return md
}
