package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"maitre/internal/models/providers"
	"maitre/internal/monitoring"
)

// HelpResponse is the fallback reply to the help intent
const HelpResponse = "You can say things like: mark order 7 as done, cancel order 12, how many pending orders, or what is the most popular item."

// OrderSummaryTemplates phrase the same three counts: pending, done, cancelled
var OrderSummaryTemplates = []string{
	"You have %d pending, %d done and %d cancelled orders.",
	"Right now there are %d orders pending, %d done and %d cancelled.",
	"Order summary: %d pending, %d done, %d cancelled.",
	"Currently %d orders are waiting, %d are finished and %d were cancelled.",
	"At the moment there are %d pending orders, with %d done and %d cancelled.",
}

// Speaker reads a reply out loud
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Responder turns execution results into short spoken replies
type Responder struct {
	provider providers.Provider
	chooser  Chooser
	logger   *zap.Logger
	metrics  *monitoring.MetricsCollector
}

// NewResponder creates a responder. provider may be nil.
func NewResponder(provider providers.Provider, chooser Chooser, logger *zap.Logger, metrics *monitoring.MetricsCollector) *Responder {
	if chooser == nil {
		chooser = NewRandomChooser(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{
		provider: provider,
		chooser:  chooser,
		logger:   logger,
		metrics:  metrics,
	}
}

// Respond asks the model for a reply and falls back to templates
func (r *Responder) Respond(ctx context.Context, analysis CommandAnalysis, result ExecutionResult) (string, Source) {
	var primary func(context.Context) (string, error)
	if r.provider != nil {
		primary = func(ctx context.Context) (string, error) {
			start := time.Now()
			reply, err := r.provider.Complete(ctx, []providers.Message{
				providers.System(responseInstructions),
				providers.User(buildResponsePrompt(analysis, result)),
			})
			r.metrics.ObserveModelCall("respond", time.Since(start))
			return strings.TrimSpace(reply), err
		}
	}

	reply, source, err := WithFallback(ctx, primary,
		func() string { return FallbackResponse(analysis, result, r.chooser) },
		func(s string) bool { return s != "" },
	)
	if err != nil && !errors.Is(err, providers.ErrNoProvider) {
		r.logger.Warn("response generation fell back to templates", zap.Error(err))
	}
	r.metrics.RecordSource("respond", string(source))
	return reply, source
}

// FallbackResponse renders the deterministic reply for a result
func FallbackResponse(analysis CommandAnalysis, result ExecutionResult, chooser Chooser) string {
	if !result.Success {
		if result.Error != "" {
			return result.Error
		}
		return "Sorry, that did not work."
	}

	switch data := result.Data.(type) {
	case StatusChange:
		return fmt.Sprintf("Order %d has been updated to %s.", data.Order.Number, data.NewStatus)
	case OrderSummary:
		tmpl := OrderSummaryTemplates[chooser.Intn(len(OrderSummaryTemplates))]
		return fmt.Sprintf(tmpl, data.Pending, data.Done, data.Cancelled)
	case FilteredOrders:
		if data.Count == 1 {
			return fmt.Sprintf("There is 1 %s order.", data.Filter)
		}
		return fmt.Sprintf("There are %d %s orders.", data.Count, data.Filter)
	case PopularItems:
		if data.TopItem == nil {
			return "There are no menu items yet."
		}
		return fmt.Sprintf("The most popular item is %s, ordered %d times.", data.TopItem.Name, data.TopItem.TotalOrdered)
	case MenuSummary:
		return fmt.Sprintf("There are %d items available on the menu out of %d.", data.Available, data.Total)
	case HelpInfo:
		return HelpResponse
	}

	if analysis.Intent == IntentHelp {
		return HelpResponse
	}
	return "Command processed successfully."
}
