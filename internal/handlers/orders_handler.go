package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/monitoring"
	"github.com/farmstand-app/orderflow/internal/orders"
	"github.com/farmstand-app/orderflow/internal/validation"
)

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Service *orders.Service
	Monitor *monitoring.Monitor
	Log     *logrus.Logger
}

// RegisterOrdersRoutes registers routes for the order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}

	r.POST("/orders", func(c *gin.Context) {
		var req validation.SubmitOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid_request_body",
				"msg":   err.Error(),
			})
			return
		}

		res := cfg.Service.Submit(c.Request.Context(), req)
		if res.Success {
			c.Header("Location", "/orders/"+res.Order.OrderID)
			c.JSON(http.StatusCreated, res)
			return
		}

		switch res.ErrorCode {
		case orders.CodeMissingRequiredField:
			c.JSON(http.StatusBadRequest, res)
		case orders.CodeInventoryConflict:
			c.JSON(http.StatusConflict, res)
		default:
			c.JSON(http.StatusInternalServerError, res)
		}
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			log.WithFields(logrus.Fields{"component": "http"}).Errorf("get order: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch_failed"})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.PATCH("/orders/:id/status", func(c *gin.Context) {
		var body struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		order, err := cfg.Service.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status_update_failed", "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.POST("/orders/status", func(c *gin.Context) {
		var body struct {
			OrderIDs []string `json:"order_ids" binding:"required,min=1"`
			Status   string   `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		updated, failed := cfg.Service.BulkUpdateStatus(c.Request.Context(), body.OrderIDs, body.Status)
		failures := map[string]string{}
		for id, ferr := range failed {
			failures[id] = ferr.Error()
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated, "failed": failures})
	})

	r.GET("/health", func(c *gin.Context) {
		h := cfg.Monitor.HealthStatus()
		code := http.StatusOK
		if h.Status == monitoring.StatusCritical {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, h)
	})
}
