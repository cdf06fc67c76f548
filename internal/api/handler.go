package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bundle-service/internal/broker"
	"bundle-service/internal/bundler"
	"bundle-service/internal/ingest"
	"bundle-service/internal/models"
	"bundle-service/internal/service"
	"bundle-service/internal/store"
	"bundle-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bundles       *service.BundleService
	opportunities *service.OpportunityService
	enricher      service.Enricher
	publisher     *broker.EventPublisher
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bundles *service.BundleService,
	opportunities *service.OpportunityService,
	enricher service.Enricher,
	publisher *broker.EventPublisher,
) *Handler {
	return &Handler{
		bundles:       bundles,
		opportunities: opportunities,
		enricher:      enricher,
		publisher:     publisher,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/ledger/refresh", h.refreshLedger)
		v1.POST("/ledger/extract", h.loadExtract)
		v1.POST("/analysis", h.runAnalysis)
		v1.POST("/analysis/async", h.requestAnalysis)
		v1.POST("/bundles/optimize", h.optimizeBundle)
		v1.GET("/opportunities", h.getOpportunities)
		v1.GET("/inventory", h.getInventory)
		v1.POST("/bundles", h.saveBundle)
		v1.GET("/bundles", h.listBundles)
		v1.GET("/bundles/:id", h.getBundle)
		v1.DELETE("/bundles/:id", h.deleteBundle)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// refreshLedger rebuilds the ledger snapshot from the store
func (h *Handler) refreshLedger(c *gin.Context) {
	if err := h.bundles.RefreshLedger(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to refresh ledger",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// loadExtract ingests a JSON order extract and refreshes the ledger.
// An optional column mapping comes in the X-Column-Mapping header as
// JSON; absent means the default export column names.
func (h *Handler) loadExtract(c *gin.Context) {
	mapping := ingest.DefaultColumnMapping()
	if raw := c.GetHeader("X-Column-Mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid column mapping",
				"details": err.Error(),
			})
			return
		}
	}

	res, err := h.bundles.LoadExtract(c.Request.Context(), c.Request.Body, mapping)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrColumnNotFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "Failed to load extract",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lines":   len(res.Lines),
		"dropped": res.Dropped,
	})
}

// runAnalysis runs a synchronous bundle analysis
func (h *Handler) runAnalysis(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.bundles.Analyze(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bundler.ErrNoPricedColumns) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "Analysis failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// requestAnalysis queues a background analysis run and returns its
// request id immediately
func (h *Handler) requestAnalysis(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event := &models.AnalysisRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeAnalysisRequested,
			Timestamp: time.Now(),
		},
		RequestID:      uuid.New().String(),
		ProductToClear: req.ProductToClear,
		RelatedSKUs:    req.RelatedSKUs,
		TargetDiscount: req.TargetDiscount,
		TopN:           req.TopN,
	}

	if err := h.publisher.PublishAnalysisRequested(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to queue analysis",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"request_id": event.RequestID})
}

// optimizeBundle runs the local search from a starting bundle
func (h *Handler) optimizeBundle(c *gin.Context) {
	var req service.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.bundles.OptimizeBundle(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Optimization failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getOpportunities runs opportunity scoring over the current snapshot
func (h *Handler) getOpportunities(c *gin.Context) {
	report, err := h.opportunities.ScoreOpportunities(c.Request.Context(), c.Query("method"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Opportunity scoring failed",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// getInventory returns the inventory snapshot
func (h *Handler) getInventory(c *gin.Context) {
	items, err := h.bundles.GetInventory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load inventory",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// saveBundle persists a chosen bundle, optionally enriched with
// display metadata
func (h *Handler) saveBundle(c *gin.Context) {
	var req service.SaveBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bundle, err := h.bundles.SaveBundle(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save bundle",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{"bundle": bundle}
	if c.Query("enrich") == "true" {
		skus := make([]string, len(req.Items))
		for i, item := range req.Items {
			skus[i] = item.SKU
		}
		enrichment, err := h.enricher.Enrich(c.Request.Context(), skus, skus)
		if err == nil {
			resp["enrichment"] = enrichment
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// listBundles lists persisted bundles
func (h *Handler) listBundles(c *gin.Context) {
	bundles, err := h.bundles.ListBundles(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list bundles",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundles": bundles})
}

// getBundle retrieves one persisted bundle
func (h *Handler) getBundle(c *gin.Context) {
	bundle, items, err := h.bundles.GetBundle(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrBundleNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to load bundle",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundle": bundle, "items": items})
}

// deleteBundle removes a persisted bundle
func (h *Handler) deleteBundle(c *gin.Context) {
	if err := h.bundles.DeleteBundle(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrBundleNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to delete bundle",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
