package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maitre/internal/capture"
	"maitre/internal/logger"
	"maitre/internal/speech"
)

// Websocket message types, besides the speech ones
const (
	msgEvent   = "event"
	msgStart   = "start"
	msgStop    = "stop"
	msgCommand = "command"
	msgCapture = "capture"
	msgOutcome = "outcome"
	msgError   = "error"
)

type socketRequest struct {
	Type    string        `json:"type"`
	Event   capture.Event `json:"event"`
	Granted *bool         `json:"granted"`
	Retry   bool          `json:"retry"`
	Command string        `json:"command"`
}

// voiceSocket gives each connection its own capture session and speaks
// replies back to that connection only.
func (s *Server) voiceSocket(c *gin.Context) {
	l := logger.FromGin(c)

	conn, err := speech.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, _, err := s.sessions.Create(ctx, c.Query("mode"), c.Query("granted") != "false")
	if err != nil && !errors.Is(err, capture.ErrPermissionDenied) {
		l.Warn("capture session not created", zap.Error(err))
		conn.Close()
		return
	}
	defer func() {
		if err := s.sessions.Delete(ctx, state.ID); err != nil {
			l.Debug("capture session cleanup failed", zap.Error(err))
		}
	}()

	s.hub.Serve(conn, func(client *speech.Client, msg []byte) {
		s.handleSocketMessage(speech.WithClient(ctx, client.ID), client, state.ID, msg, l)
	})
}

func (s *Server) handleSocketMessage(ctx context.Context, client *speech.Client, sessionID string, msg []byte, l *zap.Logger) {
	var req socketRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = client.Send(gin.H{"type": msgError, "error": "invalid message"})
		return
	}

	var (
		res capture.Result
		err error
	)
	switch req.Type {
	case msgEvent:
		s.metrics.RecordCaptureEvent(string(req.Event.Type))
		res, err = s.sessions.Handle(ctx, sessionID, req.Event)
	case msgStart:
		granted := req.Granted == nil || *req.Granted
		res, err = s.sessions.Start(ctx, sessionID, granted, req.Retry)
	case msgStop:
		res, err = s.sessions.Stop(ctx, sessionID)
	case msgCommand:
		if command := strings.TrimSpace(req.Command); command != "" {
			res.Commands = []string{command}
		}
	default:
		_ = client.Send(gin.H{"type": msgError, "error": "unknown message type"})
		return
	}

	if err != nil && !errors.Is(err, capture.ErrPermissionDenied) {
		l.Warn("capture event failed", zap.String("session", sessionID), zap.Error(err))
		_ = client.Send(gin.H{"type": msgError, "error": "capture session unavailable"})
		return
	}
	if req.Type != msgCommand {
		_ = client.Send(gin.H{"type": msgCapture, "result": res})
	}

	for _, command := range res.Commands {
		outcome, err := s.assistant.ProcessCommand(ctx, command)
		if err != nil {
			l.Error("command failed", zap.Error(err))
			_ = client.Send(gin.H{"type": msgError, "error": "could not load orders"})
			return
		}
		_ = client.Send(gin.H{"type": msgOutcome, "outcome": outcome})
	}
}
