package main

import (
	"net/http"

	"callbridge/internal/httpapi"
	"callbridge/internal/telephony"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	api      httpapi.Handlers
	sessions telephony.SessionWebhookHandler
	metrics  http.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// ops
	r.GET("/healthz", d.api.Health)
	if d.metrics != nil {
		r.GET("/metrics", gin.WrapH(d.metrics))
	}

	r.GET("/", d.api.Root)

	// Voice provider webhooks.
	r.GET("/prefetch_data_webhook", d.api.Prefetch)
	r.POST("/session_data_webhook", d.sessions.HandleEndOfCall)

	// CRM automation.
	r.POST("/api_input", d.api.APIInput)
	r.POST("/check_business_hours", d.api.CheckBusinessHours)
}
