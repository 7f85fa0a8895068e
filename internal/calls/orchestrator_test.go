package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callbridge/internal/audit"
	"callbridge/internal/crm"
	"callbridge/internal/metrics"
	"callbridge/internal/routing"
	"callbridge/internal/telephony"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	contact crm.ContactMetadata
	err     error
	calls   int
}

func (s *stubDirectory) LookupByEmail(ctx context.Context, email string) (crm.ContactMetadata, error) {
	s.calls++
	return s.contact, s.err
}

type captureTags struct {
	mu      sync.Mutex
	updates []crm.TagUpdate
	err     error
}

func (c *captureTags) Upsert(ctx context.Context, u crm.TagUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return c.err
}

func (c *captureTags) snapshot() []crm.TagUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]crm.TagUpdate(nil), c.updates...)
}

// lastTag is the final tag written, ignoring property-only updates.
func (c *captureTags) lastTag() string {
	ups := c.snapshot()
	for i := len(ups) - 1; i >= 0; i-- {
		if len(ups[i].Tags) > 0 {
			return ups[i].Tags[len(ups[i].Tags)-1]
		}
	}
	return ""
}

type captureAudit struct {
	mu    sync.Mutex
	names []string
}

func (c *captureAudit) Record(ctx context.Context, apiName string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, apiName)
}

type stubPlacer struct {
	mu sync.Mutex

	startErr error
	session  string
	status   string
	logErr   error

	started []telephony.OutboundCallRequest
	polled  []string
}

func (s *stubPlacer) StartOutboundCall(ctx context.Context, req telephony.OutboundCallRequest) (telephony.OutboundCallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, req)
	if s.startErr != nil {
		return telephony.OutboundCallResult{}, s.startErr
	}
	return telephony.OutboundCallResult{SessionID: s.session}, nil
}

func (s *stubPlacer) GetCallLog(ctx context.Context, sessionID string) (telephony.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polled = append(s.polled, sessionID)
	if s.logErr != nil {
		return telephony.CallLog{}, s.logErr
	}
	return telephony.CallLog{SessionID: sessionID, CallStatus: s.status}, nil
}

func (s *stubPlacer) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polled)
}

type fixture struct {
	dir     *stubDirectory
	tags    *captureTags
	audit   *captureAudit
	placer  *stubPlacer
	metrics *metrics.Metrics
}

func newFixture(tags ...string) *fixture {
	return &fixture{
		dir: &stubDirectory{contact: crm.ContactMetadata{
			Name:      "Jane Doe",
			FirstName: "Jane",
			Traffic:   "5,000",
			Tags:      tags,
		}},
		tags:    &captureTags{},
		audit:   &captureAudit{},
		placer:  &stubPlacer{session: "sess-1", status: telephony.CallStatusUserEnded},
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func (f *fixture) orchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	routes, err := routing.NewTable(map[routing.Region]routing.Route{
		routing.RegionUK: {AgentID: "agent-uk", FromPhone: "+440001"},
		routing.RegionUS: {AgentID: "agent-us", FromPhone: "+10001"},
		routing.RegionFR: {AgentID: "agent-fr", FromPhone: "+330001"},
	})
	require.NoError(t, err)
	opts.Routes = routes
	if opts.PollDelay == 0 {
		opts.PollDelay = time.Millisecond
	}
	opts.Metrics = f.metrics
	return NewOrchestrator(f.dir, f.tags, f.audit, f.placer, opts)
}

func validRequest() CallRequest {
	return CallRequest{ID: "1", ContactID: "c-1", Email: "jane@example.com", Phone: "(066) 013-2486", Company: "Acme"}
}

func TestStart_EmptyPhoneIsRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	o := f.orchestrator(t, Options{})

	req := validRequest()
	req.Phone = "   "
	_, err := o.Start(context.Background(), req)

	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.dir.calls)
	assert.Empty(t, f.tags.snapshot())
	assert.Empty(t, f.audit.names)
	assert.Empty(t, f.placer.started)
}

func TestStart_EnrichmentFailureIsTerminal(t *testing.T) {
	f := newFixture()
	f.dir.err = errors.New("crm timeout")
	o := f.orchestrator(t, Options{})

	_, err := o.Start(context.Background(), validRequest())

	require.ErrorIs(t, err, ErrEnrichment)
	assert.Empty(t, f.placer.started)
	assert.Empty(t, f.tags.snapshot())
	assert.Equal(t, []string{audit.APIInput}, f.audit.names)
}

func TestStart_NoRegionTagMeansNoCall(t *testing.T) {
	f := newFixture("VIP", "SEOSENSE_MILLIS_FAILED_TO_CALL_1")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAgent, res.Outcome)
	assert.Equal(t, "No agent for country, tags: [VIP, SEOSENSE_MILLIS_FAILED_TO_CALL_1]", res.Message)
	assert.Empty(t, f.placer.started)
	assert.Empty(t, f.tags.snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallOutcomes.WithLabelValues("no_agent")))
}

func TestStart_RoutesByFirstRegionInScanOrder(t *testing.T) {
	f := newFixture("SEOSENSE_FR", "SEOSENSE_US")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, routing.RegionUS, res.Route.Region)
	require.Len(t, f.placer.started, 1)
	assert.Equal(t, "agent-us", f.placer.started[0].AgentID)
	assert.Equal(t, "+10001", f.placer.started[0].FromPhone)
}

func TestStart_BuildsOutboundRequest(t *testing.T) {
	f := newFixture("SEOSENSE_GB")
	o := f.orchestrator(t, Options{})

	_, err := o.Start(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, f.placer.started, 1)
	got := f.placer.started[0]
	assert.Equal(t, "+0660132486", got.ToPhone)
	assert.Equal(t, "agent-uk", got.AgentID)
	assert.True(t, got.IncludeMetadataInPrompt)
	assert.Equal(t, "jane@example.com", got.Metadata["email"])
	assert.Equal(t, "jane@example.com", got.Metadata["EmailAddress"])
	assert.Equal(t, "Jane", got.Metadata["name"])
	assert.Equal(t, "Jane Doe", got.Metadata["Name"])
	assert.Equal(t, "5,000", got.Metadata["traffic"])
	assert.Equal(t, []string{"SEOSENSE_GB"}, got.Metadata["tags"])
	assert.Equal(t, []string{audit.APIInput, audit.APIOutboundCall}, f.audit.names)
}

func TestStart_UnnormalizablePhoneFallsBackToRaw(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	o := f.orchestrator(t, Options{})

	req := validRequest()
	req.Phone = "call me"
	_, err := o.Start(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, f.placer.started, 1)
	assert.Equal(t, "call me", f.placer.started[0].ToPhone)
}

func TestStart_AnsweredCallIsTaggedTalked(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, MessageInitiated, res.Message)
	assert.Equal(t, OutcomeTalked, res.Outcome)
	assert.Equal(t, []crm.TagUpdate{
		{Email: "jane@example.com", Tags: []string{crm.TagCalling}},
		{Email: "jane@example.com", CallID: "sess-1"},
		{Email: "jane@example.com", Tags: []string{crm.TagTalked}},
	}, f.tags.snapshot())
	assert.Equal(t, []string{"sess-1"}, f.placer.polled)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallOutcomes.WithLabelValues("talked")))
}

func TestStart_InProgressIsNotAnswered(t *testing.T) {
	f := newFixture("SEOSENSE_US", "SEOSENSE_MILLIS_FAILED_TO_CALL_1")
	f.placer.status = telephony.CallStatusInProgress
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailedAttempt, res.Outcome)
	assert.Equal(t, "SEOSENSE_MILLIS_FAILED_TO_CALL_2", f.tags.lastTag())
}

func TestStart_PollFailureWritesFailureTagAndStillSucceeds(t *testing.T) {
	f := newFixture("SEOSENSE_US", "SEOSENSE_MILLIS_FAILED_TO_CALL_1", "SEOSENSE_MILLIS_FAILED_TO_CALL_2")
	f.placer.logErr = errors.New("connection reset")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, MessageInitiated, res.Message)
	assert.Equal(t, "SEOSENSE_MILLIS_FAILED_TO_CALL_3", f.tags.lastTag())
}

func TestStart_FifthFailureIsNotAnswered(t *testing.T) {
	f := newFixture("SEOSENSE_US",
		"SEOSENSE_MILLIS_FAILED_TO_CALL_1", "SEOSENSE_MILLIS_FAILED_TO_CALL_2",
		"SEOSENSE_MILLIS_FAILED_TO_CALL_3", "SEOSENSE_MILLIS_FAILED_TO_CALL_4")
	f.placer.status = "no-answer"
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotAnswered, res.Outcome)
	assert.Equal(t, crm.TagNotAnswered, f.tags.lastTag())
}

func TestStart_InitiationFailureTagsAndErrors(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	f.placer.startErr = errors.New("status 502")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.ErrorIs(t, err, ErrInitiation)
	assert.Equal(t, OutcomeInitiationFailed, res.Outcome)
	assert.Equal(t, []crm.TagUpdate{
		{Email: "jane@example.com", Tags: []string{"SEOSENSE_MILLIS_FAILED_TO_CALL_1"}},
	}, f.tags.snapshot())
	assert.Zero(t, f.placer.pollCount())
}

func TestStart_TagWriteFailuresAreSwallowed(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	f.tags.err = errors.New("crm down")
	o := f.orchestrator(t, Options{})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeTalked, res.Outcome)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.TagUpdates.WithLabelValues("error")))
}

func TestStart_BackgroundModeReturnsBeforePoll(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	o := f.orchestrator(t, Options{PollMode: PollBackground, PollDelay: 50 * time.Millisecond})

	res, err := o.Start(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCalling, res.Outcome)
	assert.Equal(t, MessageInitiated, res.Message)
	assert.Zero(t, f.placer.pollCount())

	o.Wait()
	assert.Equal(t, 1, f.placer.pollCount())
	assert.Equal(t, crm.TagTalked, f.tags.lastTag())
}

func TestStart_ShutdownDuringWaitDropsTagUpdate(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	lifetime, cancel := context.WithCancel(context.Background())
	o := f.orchestrator(t, Options{PollMode: PollBackground, PollDelay: time.Hour, Lifetime: lifetime})

	_, err := o.Start(context.Background(), validRequest())
	require.NoError(t, err)

	cancel()
	o.Wait()
	assert.Zero(t, f.placer.pollCount())
	assert.Equal(t, []crm.TagUpdate{
		{Email: "jane@example.com", Tags: []string{crm.TagCalling}},
	}, f.tags.snapshot())
}

func TestStart_InlineWaitSurvivesRequestCancel(t *testing.T) {
	f := newFixture("SEOSENSE_US")
	o := f.orchestrator(t, Options{PollDelay: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(5*time.Millisecond, cancel)
	res, err := o.Start(ctx, validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeTalked, res.Outcome)
}
