package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"maitre/internal/models"
	"maitre/internal/models/providers"
	"maitre/internal/monitoring"
)

// DefaultAnalyzeTimeout bounds the remote analysis call
const DefaultAnalyzeTimeout = 10 * time.Second

// ErrNoJSON is returned when the model reply holds no JSON object
var ErrNoJSON = errors.New("no JSON object in model reply")

// Analyzer classifies normalized commands, preferring the language model
// and falling back to keyword heuristics on any model failure.
type Analyzer struct {
	provider   providers.Provider
	normalizer *Normalizer
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *monitoring.MetricsCollector
}

// NewAnalyzer creates an analyzer. provider may be nil, in which case
// every command is classified by the heuristics.
func NewAnalyzer(provider providers.Provider, normalizer *Normalizer, timeout time.Duration, logger *zap.Logger, metrics *monitoring.MetricsCollector) *Analyzer {
	if normalizer == nil {
		normalizer = DefaultNormalizer()
	}
	if timeout <= 0 {
		timeout = DefaultAnalyzeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		provider:   provider,
		normalizer: normalizer,
		timeout:    timeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// Analyze never fails: model errors are logged and answered by the fallback
func (a *Analyzer) Analyze(ctx context.Context, command string, snap Snapshot) (CommandAnalysis, Source) {
	var primary func(context.Context) (CommandAnalysis, error)
	if a.provider != nil {
		normalized := a.normalizer.Normalize(command)
		primary = func(ctx context.Context) (CommandAnalysis, error) {
			return a.analyzeWithModel(ctx, normalized, snap)
		}
	}

	analysis, source, err := WithFallback(ctx, primary,
		func() CommandAnalysis { return a.normalizer.FallbackAnalysis(command) },
		nil,
	)
	if err != nil && !errors.Is(err, providers.ErrNoProvider) {
		a.logger.Warn("command analysis fell back to heuristics",
			zap.String("command", command),
			zap.Error(err),
		)
	}
	a.metrics.RecordSource("analyze", string(source))
	return analysis, source
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, command string, snap Snapshot) (CommandAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.provider.Complete(ctx, []providers.Message{
		providers.System(analysisInstructions),
		providers.User(buildAnalysisPrompt(command, snap)),
	})
	a.metrics.ObserveModelCall("analyze", time.Since(start))
	if err != nil {
		return CommandAnalysis{}, err
	}
	return ParseAnalysis(reply)
}

// rawAnalysis accepts whatever types the model chose to emit
type rawAnalysis struct {
	Intent          interface{} `json:"intent"`
	Entities        interface{} `json:"entities"`
	Confidence      interface{} `json:"confidence"`
	SuggestedAction interface{} `json:"suggestedAction"`
	Parameters      interface{} `json:"parameters"`
}

// ParseAnalysis reads the first JSON object of a model reply and
// sanitizes it into a CommandAnalysis.
func ParseAnalysis(reply string) (CommandAnalysis, error) {
	obj, ok := firstJSONObject(reply)
	if !ok {
		return CommandAnalysis{}, ErrNoJSON
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return CommandAnalysis{}, fmt.Errorf("decode model reply: %w", err)
	}
	ents, _ := raw.Entities.(map[string]interface{})
	params, _ := raw.Parameters.(map[string]interface{})

	intentStr, _ := raw.Intent.(string)
	intent := ParseIntent(strings.TrimSpace(strings.ToLower(intentStr)))

	confidence := 0.5
	if c, ok := raw.Confidence.(float64); ok && !math.IsNaN(c) {
		confidence = c
	}

	action, _ := raw.SuggestedAction.(string)

	var entities Entities
	switch intent {
	case IntentOrderStatus:
		entities = OrderStatusEntities{
			OrderNumber: looseInt(ents["orderNumber"]),
			Status:      looseStatus(ents["status"]),
		}
	case IntentOrderQuery:
		filter := looseStatus(params["filter"])
		timeframe, _ := ents["timeframe"].(string)
		entities = OrderQueryEntities{Filter: filter, Timeframe: timeframe}
	case IntentMenuQuery:
		item, _ := ents["menuItem"].(string)
		sortBy, _ := params["sortBy"].(string)
		entities = MenuQueryEntities{
			MenuItem:         item,
			Quantity:         looseInt(ents["quantity"]),
			SortByPopularity: isPopularitySort(sortBy),
		}
	case IntentHelp:
		entities = HelpEntities{}
	default:
		entities = UnknownEntities{}
	}

	return newAnalysis(entities, confidence, action), nil
}

func isPopularitySort(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "popularity", "popular", "total_ordered", "totalordered":
		return true
	}
	return false
}

func looseInt(v interface{}) *int {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t < 0 {
			return nil
		}
		n := int(t)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

func looseStatus(v interface{}) *models.OrderStatus {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	status, err := models.ParseOrderStatus(s)
	if err != nil {
		return nil
	}
	return &status
}

// firstJSONObject returns the first balanced {...} span in s, skipping
// braces inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
