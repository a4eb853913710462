package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maitre/internal/assistant"
	"maitre/internal/capture"
	"maitre/internal/database"
	"maitre/internal/logger"
	"maitre/internal/models"
)

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) voiceCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	outcome, err := s.assistant.ProcessCommand(c.Request.Context(), strings.TrimSpace(req.Command))
	if err != nil {
		logger.FromGin(c).Error("command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load orders"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type createSessionRequest struct {
	Mode    string `json:"mode"`
	Granted *bool  `json:"granted"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	granted := req.Granted == nil || *req.Granted

	state, res, err := s.sessions.Create(c.Request.Context(), req.Mode, granted)
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		// the session exists so the client can retry on it
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": state.ID, "mode": state.Gate.Mode, "result": res})
}

// sessionResponse carries the capture result and the outcome of every
// command it completed
type sessionResponse struct {
	Result   capture.Result       `json:"result"`
	Outcomes []*assistant.Outcome `json:"outcomes,omitempty"`
}

func (s *Server) sessionEvent(c *gin.Context) {
	var evt capture.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch evt.Type {
	case capture.EventStart, capture.EventEnd, capture.EventResult, capture.EventError:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	s.metrics.RecordCaptureEvent(string(evt.Type))

	res, err := s.sessions.Handle(c.Request.Context(), c.Param("id"), evt)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	outcomes, err := s.processCommands(c.Request.Context(), res.Commands)
	if err != nil {
		logger.FromGin(c).Error("command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load orders"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Result: res, Outcomes: outcomes})
}

type startSessionRequest struct {
	Granted *bool `json:"granted"`
	Retry   bool  `json:"retry"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	granted := req.Granted == nil || *req.Granted

	res, err := s.sessions.Start(c.Request.Context(), c.Param("id"), granted, req.Retry)
	if errors.Is(err, capture.ErrPermissionDenied) {
		c.JSON(http.StatusForbidden, gin.H{"error": res.Status, "result": res})
		return
	}
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Result: res})
}

func (s *Server) stopSession(c *gin.Context) {
	res, err := s.sessions.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Result: res})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sessionError(c *gin.Context, err error) {
	if errors.Is(err, capture.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	logger.FromGin(c).Error("capture session failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "capture session unavailable"})
}

func (s *Server) processCommands(ctx context.Context, commands []string) ([]*assistant.Outcome, error) {
	var outcomes []*assistant.Outcome
	for _, command := range commands {
		outcome, err := s.assistant.ProcessCommand(ctx, command)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *Server) listOrders(c *gin.Context) {
	snap, err := s.assistant.LoadSnapshot(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("load orders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load orders"})
		return
	}

	orders := snap.Orders
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		orders = make([]models.Order, 0, len(snap.Orders))
		for _, o := range snap.Orders {
			if o.Status == status {
				orders = append(orders, o)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"counts": models.CountOrders(snap.Orders),
	})
}

func (s *Server) listMenu(c *gin.Context) {
	snap, err := s.assistant.LoadSnapshot(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("load menu failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load menu"})
		return
	}

	items := snap.MenuItems
	if category := c.Query("category"); category != "" {
		items = make([]models.MenuItem, 0, len(snap.MenuItems))
		for _, item := range snap.MenuItems {
			if item.IsInCategory(models.MenuCategory(strings.ToLower(category))) {
				items = append(items, item)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) getOrder(c *gin.Context) {
	number, ok := orderNumber(c)
	if !ok {
		return
	}
	order, err := s.assistant.FindOrder(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Order #%d not found", number)})
			return
		}
		logger.FromGin(c).Error("find order failed", zap.Int("order_number", number), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load orders"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func orderNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order number"})
		return 0, false
	}
	return number, true
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	number, ok := orderNumber(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	snap, err := s.assistant.LoadSnapshot(ctx)
	if err != nil {
		logger.FromGin(c).Error("load orders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load orders"})
		return
	}

	result := s.assistant.Executor().UpdateStatus(ctx, number, status, snap, assistant.EventSourceAPI)
	if !result.Success {
		c.JSON(failureStatus(result.Failure), gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result)
}

func failureStatus(f assistant.Failure) int {
	switch f {
	case assistant.FailureNotFound:
		return http.StatusNotFound
	case assistant.FailureInvalid:
		return http.StatusBadRequest
	case assistant.FailureStore:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}
