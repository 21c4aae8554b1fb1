// Package server is the HTTP front door. It translates routes into
// pipeline and store operations and maps every failure to a server
// error carrying the operation's message; all domain logic lives below
// it.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/structura-app/adapter/internal/adapter"
	"github.com/structura-app/adapter/internal/store"
)

// API is the operation surface the router exposes.
// *adapter.Service satisfies it.
type API interface {
	Debug(ctx context.Context, streamID, modelID string, limit int, includeAssemblies bool) (adapter.DebugResult, error)
	Sync(ctx context.Context, streamID, modelID string) (adapter.SyncSummary, error)
	Statuses(ctx context.Context, streamID, modelID string) ([]store.ElementStatus, error)
	UpdateStatuses(ctx context.Context, elementIDs []string, status string) (int64, error)
}

// StatusUpdateRequest is the body of POST /update-status.
type StatusUpdateRequest struct {
	ElementIDs []string `json:"element_ids" binding:"required"`
	Status     string   `json:"status" binding:"required"`
}

// NewRouter builds the Gin router with routes and middleware.
func NewRouter(api API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", handleHealth)
	r.GET("/debug/:stream/:model", handleDebug(api))
	r.POST("/sync/:stream/:model", handleSync(api))
	r.GET("/project-data/:stream/:model", handleProjectData(api))
	r.POST("/update-status", handleUpdateStatus(api))

	return r
}

// corsMiddleware allows the browser frontend to call the adapter from
// any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func handleDebug(api API) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}
		includeAssemblies := c.Query("include_assemblies") == "true"

		result, err := api.Debug(c.Request.Context(), c.Param("stream"), c.Param("model"), limit, includeAssemblies)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func handleSync(api API) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := api.Sync(c.Request.Context(), c.Param("stream"), c.Param("model"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "Data synchronized successfully",
			"object_id": summary.ObjectID,
			"details":   summary.Details,
		})
	}
}

func handleProjectData(api API) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := api.Statuses(c.Request.Context(), c.Param("stream"), c.Param("model"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}

func handleUpdateStatus(api API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		count, err := api.UpdateStatuses(c.Request.Context(), req.ElementIDs, req.Status)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "updated": count})
	}
}

// serverError maps any operation failure to a generic server error
// carrying the operation's message.
func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
