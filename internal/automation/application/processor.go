package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
)

// ProcessorConfig holds configuration for the run processor.
type ProcessorConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	StatsInterval time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:  time.Second,
		BatchSize:     50,
		StatsInterval: 30 * time.Second,
	}
}

// RunProcessor polls for pending automation runs and executes them.
// Each poll first replays the event log from its cursor, creating any
// run the inline dispatcher never got to: a crash between the producing
// commit and dispatch then only delays the automation instead of losing
// it. The replay is idempotent, duplicate runs are rejected by the
// repository's uniqueness guarantee.
type RunProcessor struct {
	runs    domain.RunRepository
	rules   domain.RuleRepository
	events  domain.EventStore
	matcher *RuleMatcher
	runner  *RunExecutor
	config  ProcessorConfig
	logger  *slog.Logger

	// cursor tracks replay progress. It starts at the beginning of the
	// log on every worker start; the full first scan is what catches
	// events orphaned by an earlier crash.
	cursor domain.Cursor

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewRunProcessor creates a new run processor.
func NewRunProcessor(
	runs domain.RunRepository,
	rules domain.RuleRepository,
	events domain.EventStore,
	runner *RunExecutor,
	config ProcessorConfig,
	logger *slog.Logger,
) *RunProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunProcessor{
		runs:     runs,
		rules:    rules,
		events:   events,
		matcher:  NewRuleMatcher(rules),
		runner:   runner,
		config:   config,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *RunProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("run processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	return nil
}

// Stop gracefully stops the processor, waiting for the in-flight batch.
func (p *RunProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("run processor stopped")
}

// IsRunning returns true if the processor is running.
func (p *RunProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RunProcessor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if p.config.StatsInterval > 0 {
		statsTicker := time.NewTicker(p.config.StatsInterval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("failed to process run batch", "error", err)
			}
		case <-statsC:
			p.logStats(ctx)
		}
	}
}

// ProcessBatch replays the log and drains one batch of pending runs.
// Exported so the CLI can run a single pass.
func (p *RunProcessor) ProcessBatch(ctx context.Context) error {
	return p.processBatch(ctx)
}

func (p *RunProcessor) processBatch(ctx context.Context) error {
	if err := p.replayEvents(ctx); err != nil {
		p.logger.Error("event replay failed", "error", err)
	}

	pending, err := p.runs.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, run := range pending {
		if err := p.processRun(ctx, run); err != nil {
			p.logger.Error("failed to process run",
				"run_id", run.ID(),
				"rule_id", run.RuleID(),
				"error", err,
			)
		}
	}
	return nil
}

// replayEvents walks the log from the cursor and creates the pending
// run for every (rule, event) pair that does not have one yet. The
// cursor advances only past fully handled records, so a transient
// repository error is retried on the next poll.
func (p *RunProcessor) replayEvents(ctx context.Context) error {
	for {
		page, err := p.events.ReadSince(ctx, uuid.Nil, "", p.cursor, p.config.BatchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		for _, record := range page {
			if err := p.replayRecord(ctx, record); err != nil {
				return err
			}
			p.cursor = domain.After(record)
		}

		if len(page) < p.config.BatchSize {
			return nil
		}
	}
}

func (p *RunProcessor) replayRecord(ctx context.Context, record *domain.EventRecord) error {
	// The engine's own audit trail never feeds back into the rule set.
	if strings.HasPrefix(record.EventType, "automation.") {
		return nil
	}

	rules, err := p.matcher.Match(ctx, record)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		run := domain.NewAutomationRun(record.WorkspaceID, rule.ID(), record.ID)
		if err := p.runs.Create(ctx, run); err != nil {
			if errors.Is(err, domain.ErrDuplicateRun) {
				continue
			}
			return err
		}
		p.logger.InfoContext(ctx, "recovered run from event log",
			"rule_id", rule.ID(),
			"event_id", record.ID,
			"event_type", record.EventType,
		)
	}
	return nil
}

func (p *RunProcessor) processRun(ctx context.Context, run *domain.AutomationRun) error {
	rule, err := p.rules.FindByID(ctx, run.WorkspaceID(), run.RuleID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Rule deleted since the run was created; nothing to do.
			return p.skipOrphan(ctx, run, "rule no longer exists")
		}
		return err
	}

	record, err := p.events.FindByID(ctx, run.WorkspaceID(), run.EventID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return p.skipOrphan(ctx, run, "event no longer exists")
		}
		return err
	}

	return p.runner.ExecuteRun(ctx, rule, record, run)
}

func (p *RunProcessor) skipOrphan(ctx context.Context, run *domain.AutomationRun, reason string) error {
	claimed, err := p.runs.MarkRunning(ctx, run.ID())
	if err != nil || !claimed {
		return err
	}
	if err := run.Start(); err != nil {
		return err
	}
	if err := run.Skip(reason); err != nil {
		return err
	}
	return p.runs.Save(ctx, run)
}

func (p *RunProcessor) logStats(ctx context.Context) {
	counts, err := p.runs.CountByStatus(ctx)
	if err != nil {
		p.logger.Warn("failed to read run stats", "error", err)
		return
	}
	p.logger.Info("run processor stats",
		"pending", counts[domain.RunPending],
		"running", counts[domain.RunRunning],
		"succeeded", counts[domain.RunSucceeded],
		"failed", counts[domain.RunFailed],
		"skipped", counts[domain.RunSkipped],
	)
}
