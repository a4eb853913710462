// Package assistant interprets staff commands about orders and the menu:
// normalize, analyze, execute, then phrase a reply.
package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maitre/internal/events"
	"maitre/internal/models"
	"maitre/internal/models/providers"
	"maitre/internal/monitoring"
)

// Repository is the data store the pipeline reads snapshots from and
// writes status changes to.
type Repository interface {
	StatusWriter
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	FindOrderByNumber(ctx context.Context, number int) (*models.Order, error)
}

// Options configures an Assistant
type Options struct {
	Repository     Repository
	Provider       providers.Provider // nil disables the model paths
	Normalizer     *Normalizer
	Publisher      events.Publisher
	Speaker        Speaker // nil disables speech output
	Chooser        Chooser
	AnalyzeTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *monitoring.MetricsCollector
	Monitor        *monitoring.Monitor
}

// Assistant runs the whole command pipeline. It holds no order state
// between commands.
type Assistant struct {
	repo       Repository
	normalizer *Normalizer
	analyzer   *Analyzer
	executor   *Executor
	responder  *Responder
	speaker    Speaker
	logger     *zap.Logger
	metrics    *monitoring.MetricsCollector
	monitor    *monitoring.Monitor
}

// Outcome is everything produced for one command
type Outcome struct {
	Success         bool            `json:"success"`
	Analysis        CommandAnalysis `json:"analysis"`
	ExecutionResult ExecutionResult `json:"executionResult"`
	Response        string          `json:"response"`
	Transcript      string          `json:"transcript"`
	Normalized      string          `json:"normalized"`
	AnalysisSource  Source          `json:"analysisSource"`
	ResponseSource  Source          `json:"responseSource"`
}

// New wires an Assistant from opts
func New(opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = DefaultNormalizer()
	}

	return &Assistant{
		repo:       opts.Repository,
		normalizer: normalizer,
		analyzer:   NewAnalyzer(opts.Provider, normalizer, opts.AnalyzeTimeout, logger.Named("analyzer"), opts.Metrics),
		executor:   NewExecutor(opts.Repository, opts.Publisher, logger.Named("executor"), opts.Metrics),
		responder:  NewResponder(opts.Provider, opts.Chooser, logger.Named("responder"), opts.Metrics),
		speaker:    opts.Speaker,
		logger:     logger,
		metrics:    opts.Metrics,
		monitor:    opts.Monitor,
	}
}

// Executor exposes the executor for status changes made outside the
// voice pipeline.
func (a *Assistant) Executor() *Executor {
	return a.executor
}

// FindOrder looks up one order by the number staff read out
func (a *Assistant) FindOrder(ctx context.Context, number int) (*models.Order, error) {
	return a.repo.FindOrderByNumber(ctx, number)
}

// LoadSnapshot reads the current orders and menu
func (a *Assistant) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	orders, err := a.repo.ListOrders(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load orders: %w", err)
	}
	items, err := a.repo.ListMenuItems(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load menu: %w", err)
	}
	return Snapshot{Orders: orders, MenuItems: items}, nil
}

// ProcessCommand runs one command end to end. Only a failure to load the
// snapshot is returned as an error; everything else ends up in Outcome.
func (a *Assistant) ProcessCommand(ctx context.Context, command string) (*Outcome, error) {
	snap, err := a.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	normalized := a.normalizer.Normalize(command)
	analysis, analysisSource := a.analyzer.Analyze(ctx, command, snap)
	result := a.executor.Execute(ctx, analysis, snap)
	response, responseSource := a.responder.Respond(ctx, analysis, result)

	if a.speaker != nil {
		if err := a.speaker.Speak(ctx, response); err != nil {
			a.logger.Debug("speech output failed", zap.Error(err))
		}
	}

	a.metrics.RecordCommand(string(analysis.Intent), result.Success)
	if a.monitor != nil {
		a.monitor.RecordCommand(string(analysis.Intent), result.Success)
	}

	a.logger.Info("command processed",
		zap.String("intent", string(analysis.Intent)),
		zap.Float64("confidence", analysis.Confidence),
		zap.Bool("success", result.Success),
		zap.String("analysis_source", string(analysisSource)),
		zap.String("response_source", string(responseSource)),
	)

	return &Outcome{
		Success:         result.Success,
		Analysis:        analysis,
		ExecutionResult: result,
		Response:        response,
		Transcript:      command,
		Normalized:      normalized,
		AnalysisSource:  analysisSource,
		ResponseSource:  responseSource,
	}, nil
}
