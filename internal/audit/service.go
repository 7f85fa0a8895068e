package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callbridge/internal/metrics"

	"github.com/google/uuid"
)

// Sink is the persistence contract for audit records.
//
// It MUST be append-only.
type Sink interface {
	Insert(ctx context.Context, r Record) error
}

// Service records raw payloads for later inspection.
//
// IMPORTANT:
// - Record never blocks: when the queue is full the record is dropped and logged.
// - Sink failures are logged and counted, never returned to the call flow.
// - A nil *Service is valid and records nothing (audit disabled).
type Service struct {
	sink    Sink
	clock   func() time.Time
	queue   chan Record
	log     *slog.Logger
	metrics *metrics.Metrics

	writeTimeout time.Duration
	drainTimeout time.Duration
}

type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	DrainTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func (o Options) withDefaults() Options {
	out := o
	if out.QueueSize <= 0 {
		out.QueueSize = 256
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 10 * time.Second
	}
	if out.DrainTimeout <= 0 {
		out.DrainTimeout = 5 * time.Second
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

func NewService(sink Sink, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		sink:         sink,
		clock:        time.Now,
		queue:        make(chan Record, opts.QueueSize),
		log:          opts.Logger,
		metrics:      opts.Metrics,
		writeTimeout: opts.WriteTimeout,
		drainTimeout: opts.DrainTimeout,
	}
}

var ErrNoSink = errors.New("audit: sink not configured")

// Append writes a record synchronously and returns the sink's result.
func (s *Service) Append(ctx context.Context, apiName string, payload any) error {
	if s == nil || s.sink == nil {
		return ErrNoSink
	}
	return s.sink.Insert(ctx, s.newRecord(apiName, payload))
}

// Record queues payload for the background writer and returns immediately.
func (s *Service) Record(ctx context.Context, apiName string, payload any) {
	if s == nil || s.sink == nil {
		return
	}
	rec := s.newRecord(apiName, payload)
	select {
	case s.queue <- rec:
	default:
		s.metrics.AuditRecord("dropped")
		s.log.Warn("audit queue full, record dropped", "api_name", apiName, "id", rec.ID)
	}
}

// Run writes queued records until ctx is done, then drains what is left with a
// bounded grace period.
func (s *Service) Run(ctx context.Context) {
	if s == nil || s.sink == nil {
		return
	}
	for {
		select {
		case rec := <-s.queue:
			s.write(ctx, rec)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
			defer cancel()
			for {
				select {
				case rec := <-s.queue:
					s.write(drainCtx, rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(ctx context.Context, rec Record) {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.sink.Insert(wctx, rec); err != nil {
		s.metrics.AuditRecord("failed")
		s.log.Warn("audit insert failed", "api_name", rec.APIName, "id", rec.ID, "err", err)
		return
	}
	s.metrics.AuditRecord("written")
}

func (s *Service) newRecord(apiName string, payload any) Record {
	return Record{
		ID:        uuid.NewString(),
		APIName:   apiName,
		Payload:   encodePayload(payload),
		CreatedAt: s.clock().UTC(),
	}
}

func encodePayload(payload any) string {
	switch p := payload.(type) {
	case string:
		return p
	case []byte:
		return string(p)
	case json.RawMessage:
		return string(p)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%+v", payload)
	}
	return string(b)
}
