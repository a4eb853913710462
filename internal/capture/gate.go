// Package capture turns a stream of speech-recognition fragments into
// complete commands.
package capture

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ListeningState is the visible state of a gate
type ListeningState string

const (
	StateWaitingForKeyword   ListeningState = "waiting-for-keyword"
	StateListeningForCommand ListeningState = "listening-for-command"
)

// Gate modes
const (
	ModeKeyword    = "keyword"
	ModeActivation = "activation"
)

// Fragment is one piece of transcript. Interim fragments may still change;
// final fragments are settled.
type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Update describes what a fragment did to the gate
type Update struct {
	State     ListeningState `json:"state"`
	Display   string         `json:"display"`
	Commands  []string       `json:"commands,omitempty"`
	Discarded bool           `json:"discarded,omitempty"`
}

// GateState is the serializable state of a gate
type GateState struct {
	Mode         string         `json:"mode"`
	State        ListeningState `json:"state"`
	Buffer       string         `json:"buffer,omitempty"`
	LastActivity time.Time      `json:"lastActivity,omitempty"`
}

// Gate decides which fragments form a command
type Gate interface {
	Feed(f Fragment) Update
	State() ListeningState
	Reset()
	Snapshot() GateState
	Restore(GateState)
}

// Clock returns the current time
type Clock func() time.Time

// GateConfig holds the settings of both gate kinds
type GateConfig struct {
	Mode              string
	Keywords          []string
	Terminator        string
	ActivationPhrase  string
	ActivationTimeout time.Duration
	Clock             Clock
}

// DefaultGateConfig returns the keyword gate settings
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Mode:              ModeKeyword,
		Keywords:          []string{"system", "systems", "sistem", "cistern"},
		Terminator:        "over",
		ActivationPhrase:  "hey system",
		ActivationTimeout: DefaultActivationTimeout,
	}
}

// NewGate builds the gate selected by cfg.Mode
func NewGate(cfg GateConfig) (Gate, error) {
	switch cfg.Mode {
	case ModeKeyword, "":
		return NewKeywordGate(cfg.Keywords, cfg.Terminator)
	case ModeActivation:
		return NewActivationGate(cfg.ActivationPhrase, cfg.ActivationTimeout, cfg.Clock)
	default:
		return nil, fmt.Errorf("unknown gate mode %q", cfg.Mode)
	}
}

// KeywordGate waits for a keyword, then collects everything up to the
// terminator word into one command. It never times out.
type KeywordGate struct {
	keyword    *regexp.Regexp
	terminator *regexp.Regexp
	state      ListeningState
	buffer     string
}

// NewKeywordGate matches keywords as case-insensitive substrings and the
// terminator as a whole word.
func NewKeywordGate(keywords []string, terminator string) (*KeywordGate, error) {
	var alts []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			alts = append(alts, regexp.QuoteMeta(k))
		}
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("at least one keyword is required")
	}
	if strings.TrimSpace(terminator) == "" {
		return nil, fmt.Errorf("terminator is required")
	}
	// longer variants first so "systems" wins over "system"
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })

	return &KeywordGate{
		keyword:    regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`),
		terminator: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(terminator)) + `\b`),
		state:      StateWaitingForKeyword,
	}, nil
}

func (g *KeywordGate) State() ListeningState { return g.state }

func (g *KeywordGate) Reset() {
	g.state = StateWaitingForKeyword
	g.buffer = ""
}

func (g *KeywordGate) Snapshot() GateState {
	return GateState{Mode: ModeKeyword, State: g.state, Buffer: g.buffer}
}

func (g *KeywordGate) Restore(s GateState) {
	g.state = s.State
	g.buffer = s.Buffer
	if g.state != StateListeningForCommand {
		g.Reset()
	}
}

// Feed processes one fragment
func (g *KeywordGate) Feed(f Fragment) Update {
	text := cleanText(f.Text)

	if g.state == StateWaitingForKeyword {
		loc := g.keyword.FindStringIndex(text)
		if loc == nil {
			return Update{State: g.state, Discarded: true}
		}
		after := strings.TrimLeft(text[loc[1]:], " ,.;:!?")
		if !f.Final {
			return Update{State: g.state, Display: g.preview(after)}
		}
		g.state = StateListeningForCommand
		g.buffer = ""
		return g.append(after)
	}

	if !f.Final {
		return Update{State: g.state, Display: g.preview(joinText(g.buffer, text))}
	}
	return g.append(text)
}

// append adds final text to the buffer and completes the command when the
// terminator is present.
func (g *KeywordGate) append(text string) Update {
	if loc := g.terminator.FindStringIndex(text); loc != nil {
		command := trimPunct(joinText(g.buffer, text[:loc[0]]))
		g.Reset()
		if command == "" {
			return Update{State: g.state, Discarded: true}
		}
		return Update{State: g.state, Commands: []string{command}}
	}

	g.buffer = joinText(g.buffer, text)
	return Update{State: g.state, Display: g.buffer}
}

// preview hides anything after the terminator in interim text
func (g *KeywordGate) preview(text string) string {
	if loc := g.terminator.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]])
	}
	return text
}

var whitespace = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func trimPunct(s string) string {
	return strings.Trim(strings.TrimSpace(s), " ,.;:!?")
}
