package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned by Start once microphone access has been
// refused. Only RetryPermission clears it.
var ErrPermissionDenied = errors.New("microphone permission denied")

// EventType is a speech engine event
type EventType string

const (
	EventStart  EventType = "start"
	EventEnd    EventType = "end"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// ErrorCode is the closed set of speech engine errors
type ErrorCode string

const (
	ErrorNotAllowed   ErrorCode = "not-allowed"
	ErrorNoSpeech     ErrorCode = "no-speech"
	ErrorAudioCapture ErrorCode = "audio-capture"
	ErrorNetwork      ErrorCode = "network"
	ErrorAborted      ErrorCode = "aborted"
)

var errorMessages = map[ErrorCode]string{
	ErrorNotAllowed:   "Microphone access was denied. Allow it and retry.",
	ErrorNoSpeech:     "No speech detected. Press start to try again.",
	ErrorAudioCapture: "No microphone found. Check your audio device and press start.",
	ErrorNetwork:      "Speech recognition lost its network connection. Press start to try again.",
	ErrorAborted:      "Listening was interrupted. Press start to try again.",
}

// StatusText returns the user-visible message for an engine error
func StatusText(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Speech recognition error (%s). Press start to try again.", code)
}

// Event is delivered by the speech engine
type Event struct {
	Type      EventType  `json:"type"`
	Fragments []Fragment `json:"fragments,omitempty"`
	Error     ErrorCode  `json:"error,omitempty"`
}

// PermissionState tracks microphone access
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PermissionRequester asks the user for microphone access
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// StaticPermission answers every request with the same value. Remote
// clients ask the browser themselves and report the answer.
type StaticPermission bool

func (p StaticPermission) RequestPermission(context.Context) (bool, error) { return bool(p), nil }

// Result is returned for every handled event
type Result struct {
	State     ListeningState `json:"state"`
	Listening bool           `json:"listening"`
	Display   string         `json:"display"`
	Status    string         `json:"status"`
	Commands  []string       `json:"commands,omitempty"`
}

// Session wraps a gate with the speech engine lifecycle. It is not safe
// for concurrent use; callers serialize events per session.
type Session struct {
	ID         string
	gate       Gate
	listening  bool
	permission PermissionState
	status     string
	display    string
	updatedAt  time.Time
}

// SessionState is the serializable form of a Session
type SessionState struct {
	ID         string          `json:"id"`
	Gate       GateState       `json:"gate"`
	Listening  bool            `json:"listening"`
	Permission PermissionState `json:"permission"`
	Status     string          `json:"status"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewSession creates an idle session with a random ID
func NewSession(gate Gate) *Session {
	return &Session{
		ID:         uuid.NewString(),
		gate:       gate,
		permission: PermissionUnknown,
		status:     "Press start to begin listening.",
		updatedAt:  time.Now(),
	}
}

// RestoreSession rebuilds a session from its state
func RestoreSession(state SessionState, cfg GateConfig) (*Session, error) {
	if state.Gate.Mode != "" {
		cfg.Mode = state.Gate.Mode
	}
	gate, err := NewGate(cfg)
	if err != nil {
		return nil, err
	}
	gate.Restore(state.Gate)

	permission := state.Permission
	if permission == "" {
		permission = PermissionUnknown
	}
	return &Session{
		ID:         state.ID,
		gate:       gate,
		listening:  state.Listening,
		permission: permission,
		status:     state.Status,
		updatedAt:  state.UpdatedAt,
	}, nil
}

// Snapshot captures the session for storage
func (s *Session) Snapshot() SessionState {
	return SessionState{
		ID:         s.ID,
		Gate:       s.gate.Snapshot(),
		Listening:  s.listening,
		Permission: s.permission,
		Status:     s.status,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) Listening() bool             { return s.listening }
func (s *Session) Permission() PermissionState { return s.permission }
func (s *Session) Status() string              { return s.status }

// Start begins listening. Permission is requested on the first start only.
func (s *Session) Start(ctx context.Context, requester PermissionRequester) error {
	switch s.permission {
	case PermissionDenied:
		s.status = StatusText(ErrorNotAllowed)
		return ErrPermissionDenied
	case PermissionUnknown:
		granted := true
		if requester != nil {
			var err error
			granted, err = requester.RequestPermission(ctx)
			if err != nil {
				return fmt.Errorf("request microphone permission: %w", err)
			}
		}
		if !granted {
			s.permission = PermissionDenied
			s.status = StatusText(ErrorNotAllowed)
			return ErrPermissionDenied
		}
		s.permission = PermissionGranted
	}

	s.gate.Reset()
	s.listening = true
	s.display = ""
	s.status = s.idleStatus()
	s.touch()
	return nil
}

// RetryPermission clears a previous denial and starts again
func (s *Session) RetryPermission(ctx context.Context, requester PermissionRequester) error {
	s.permission = PermissionUnknown
	return s.Start(ctx, requester)
}

// Stop ends listening immediately and drops any partial command
func (s *Session) Stop() Result {
	s.listening = false
	s.gate.Reset()
	s.display = ""
	s.status = "Stopped listening."
	s.touch()
	return s.result(nil)
}

// Handle applies one speech engine event
func (s *Session) Handle(evt Event) Result {
	s.touch()

	switch evt.Type {
	case EventStart:
		if s.permission == PermissionDenied {
			return s.result(nil)
		}
		s.listening = true
		s.status = s.idleStatus()
		return s.result(nil)

	case EventEnd:
		s.listening = false
		s.gate.Reset()
		s.display = ""
		s.status = "Listening ended. Press start to listen again."
		return s.result(nil)

	case EventError:
		s.listening = false
		s.gate.Reset()
		s.display = ""
		if evt.Error == ErrorNotAllowed {
			s.permission = PermissionDenied
		}
		s.status = StatusText(evt.Error)
		return s.result(nil)

	case EventResult:
		if !s.listening {
			return s.result(nil)
		}
		var commands []string
		for _, f := range evt.Fragments {
			u := s.gate.Feed(f)
			if !u.Discarded {
				s.display = u.Display
			}
			commands = append(commands, u.Commands...)
		}
		if len(commands) > 0 {
			s.display = ""
			s.status = "Processing command..."
		} else {
			s.status = s.idleStatus()
		}
		return s.result(commands)
	}

	return s.result(nil)
}

// Expire lets an activation gate time out between events
func (s *Session) Expire() bool {
	if g, ok := s.gate.(*ActivationGate); ok && g.Expire() {
		s.status = s.idleStatus()
		s.display = ""
		return true
	}
	return false
}

func (s *Session) idleStatus() string {
	if !s.listening {
		return "Press start to begin listening."
	}
	if s.gate.State() == StateListeningForCommand {
		return "Listening for your command..."
	}
	return "Waiting for the keyword..."
}

func (s *Session) result(commands []string) Result {
	return Result{
		State:     s.gate.State(),
		Listening: s.listening,
		Display:   s.display,
		Status:    s.status,
		Commands:  commands,
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
