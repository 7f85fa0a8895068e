package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"callbridge/internal/audit"
	"callbridge/internal/calls"
	"callbridge/internal/config"
	"callbridge/internal/crm"
	"callbridge/internal/httpapi"
	"callbridge/internal/metrics"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"
	"callbridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "modernc.org/sqlite"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenDB(rootCtx, cfg.DB.Driver, cfg.ContactDSN(), utils.DBPoolConfig{})
	if err != nil {
		log.Error("contact store init failed", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	httpClient := &http.Client{}

	sink, closeSink, err := openAuditSink(rootCtx, cfg, httpClient)
	if err != nil {
		log.Error("audit sink init failed", "backend", cfg.Audit.Backend, "err", err)
		os.Exit(1)
	}
	defer closeSink()

	var auditSvc *audit.Service
	if sink != nil {
		auditSvc = audit.NewService(sink, audit.Options{Logger: log, Metrics: m})
	}
	// The audit worker outlives the HTTP server so late records are still drained.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		auditSvc.Run(auditCtx)
	}()

	routes, err := cfg.Routes()
	if err != nil {
		log.Error("region routes invalid", "err", err)
		os.Exit(1)
	}
	if routes.Len() == 0 {
		log.Warn("no region routes configured, every call request will end with no agent")
	}
	pollMode, err := calls.ParsePollMode(cfg.Calls.PollMode)
	if err != nil {
		log.Error("poll mode invalid", "err", err)
		os.Exit(1)
	}

	crmClient := crm.NewClient(crm.Config{
		BaseURL:         cfg.SalesManago.BaseURL,
		ClientID:        cfg.SalesManago.ClientID,
		APIKey:          cfg.SalesManago.APIKey,
		Signature:       cfg.SalesManago.Signature,
		Owner:           cfg.SalesManago.Owner,
		SessionProperty: cfg.SalesManago.SessionProperty,
	}, httpClient)
	store := crm.NewStore(db, cfg.DB.Driver, cfg.DB.ContactTable)
	millis := telephony.NewMillisProvider(cfg.Millis.BaseURL, cfg.Millis.APIKey, httpClient)

	orch := calls.NewOrchestrator(crmClient, crmClient, auditSvc, millis, calls.Options{
		Routes:   routes,
		PollMode: pollMode,
		Lifetime: rootCtx,
		Metrics:  m,
	})

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		api: httpapi.Handlers{
			Calls:    orch,
			Phones:   store,
			Contacts: crmClient,
			Audit:    auditSvc,
		},
		sessions: telephony.SessionWebhookHandler{
			Tags:    crmClient,
			Audit:   auditSvc,
			Metrics: m,
		},
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	writeTimeout := 30 * time.Second
	if pollMode == calls.PollInline {
		writeTimeout += calls.DefaultPollDelay
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env,
			"poll_mode", pollMode, "regions", routes.Len(), "audit_backend", cfg.Audit.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	orch.Wait()

	stopAudit()
	select {
	case <-auditDone:
	case <-shutdownCtx.Done():
		log.Warn("audit drain timed out")
	}
}

// openAuditSink builds the configured audit backend. A nil sink disables auditing.
func openAuditSink(ctx context.Context, cfg config.Config, httpClient *http.Client) (audit.Sink, func(), error) {
	noop := func() {}
	switch cfg.Audit.Backend {
	case config.AuditHTTP:
		return audit.NewHTTPSink(cfg.Audit.ServerURL, cfg.Audit.Table, httpClient), noop, nil
	case config.AuditRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return nil, noop, err
		}
		return audit.NewRedisStreamSink(rdb, cfg.Audit.Stream, 0), func() { _ = rdb.Close() }, nil
	default:
		return nil, noop, nil
	}
}
