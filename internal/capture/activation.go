package capture

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultActivationTimeout deactivates an idle ActivationGate
const DefaultActivationTimeout = 30 * time.Second

// ActivationGate is the simpler front end: once the activation phrase is
// heard every final fragment is a complete command, until the gate has
// been idle for the timeout.
type ActivationGate struct {
	phrase       *regexp.Regexp
	timeout      time.Duration
	clock        Clock
	active       bool
	lastActivity time.Time
}

// NewActivationGate matches phrase case-insensitively, tolerating extra
// whitespace between its words. A nil clock uses time.Now.
func NewActivationGate(phrase string, timeout time.Duration, clock Clock) (*ActivationGate, error) {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return nil, fmt.Errorf("activation phrase is required")
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	if timeout <= 0 {
		timeout = DefaultActivationTimeout
	}
	if clock == nil {
		clock = time.Now
	}
	return &ActivationGate{
		phrase:  regexp.MustCompile(`(?i)` + strings.Join(words, `[\s,]+`)),
		timeout: timeout,
		clock:   clock,
	}, nil
}

func (g *ActivationGate) State() ListeningState {
	if g.active {
		return StateListeningForCommand
	}
	return StateWaitingForKeyword
}

func (g *ActivationGate) Reset() {
	g.active = false
	g.lastActivity = time.Time{}
}

func (g *ActivationGate) Snapshot() GateState {
	return GateState{Mode: ModeActivation, State: g.State(), LastActivity: g.lastActivity}
}

func (g *ActivationGate) Restore(s GateState) {
	g.active = s.State == StateListeningForCommand
	g.lastActivity = s.LastActivity
}

// Expire deactivates the gate when it has been idle for the timeout and
// reports whether it did.
func (g *ActivationGate) Expire() bool {
	if g.active && g.clock().Sub(g.lastActivity) >= g.timeout {
		g.Reset()
		return true
	}
	return false
}

// Feed processes one fragment
func (g *ActivationGate) Feed(f Fragment) Update {
	g.Expire()
	text := cleanText(f.Text)

	if !g.active {
		loc := g.phrase.FindStringIndex(text)
		if loc == nil {
			return Update{State: g.State(), Discarded: true}
		}
		rest := trimPunct(text[loc[1]:])
		if !f.Final {
			return Update{State: g.State(), Display: rest}
		}
		g.active = true
		g.lastActivity = g.clock()
		if rest == "" {
			return Update{State: g.State()}
		}
		return Update{State: g.State(), Commands: []string{rest}}
	}

	if !f.Final {
		return Update{State: g.State(), Display: text}
	}
	g.lastActivity = g.clock()
	command := trimPunct(text)
	if command == "" {
		return Update{State: g.State()}
	}
	return Update{State: g.State(), Commands: []string{command}}
}
