package message_processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"flagbot/internal/corpus"
	"flagbot/internal/models"
	"flagbot/internal/pipeline"
	"flagbot/internal/repository"
)

var scanRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flagbot_scan_runs",
	Help: "Number of scheduled or manual scans by outcome",
}, []string{"status"})

var reportsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flagbot_reports_sent",
	Help: "Number of reports delivered to reviewer channels",
}, []string{"status"})

// ErrDeliveryFailed is returned when reviewers are registered but none of the
// reports reached them. The batch stays pending.
var ErrDeliveryFailed = errors.New("no report could be delivered")

// Scorer runs a batch through the scoring pipeline.
type Scorer interface {
	Submit(ctx context.Context, msgs []models.RawMessage) (*pipeline.Result, error)
}

// Notifier delivers a report to a reviewer chat.
type Notifier interface {
	SendReport(chatID int64, entry models.ReportEntry) error
}

// Summary describes the outcome of one scan.
type Summary struct {
	RunID     string `json:"run_id"`
	Scanned   int    `json:"scanned"`
	Flagged   int    `json:"flagged"`
	Audited   int    `json:"audited"`
	Delivered int    `json:"delivered"`
}

// Processor periodically scores buffered messages and posts reports to reviewers.
type Processor struct {
	scorer       Scorer
	notifier     Notifier
	messageRepo  repository.MessageRepository
	channelRepo  repository.ChannelRepository
	flagRepo     repository.FlagRepository
	logger       *zap.Logger
	pollInterval int64
	batchSize    int

	mu sync.Mutex // one scan at a time
}

// NewProcessor creates a new message processor. notifier may be nil, in which
// case reports are only persisted.
func NewProcessor(
	scorer Scorer,
	notifier Notifier,
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	flagRepo repository.FlagRepository,
	logger *zap.Logger,
	pollInterval int64,
	batchSize int,
) *Processor {
	return &Processor{
		scorer:       scorer,
		notifier:     notifier,
		messageRepo:  messageRepo,
		channelRepo:  channelRepo,
		flagRepo:     flagRepo,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run starts the periodic scanning until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("Message processor started.", zap.Int64("poll_interval_seconds", p.pollInterval))

	ticker := time.NewTicker(time.Duration(p.pollInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Message processor stopped.")
			return nil
		case <-ticker.C:
			if _, err := p.ScanOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Scheduled scan failed", zap.Error(err))
			}
		}
	}
}

// ScanOnce scores the pending messages of all scan channels. Messages stay
// pending when scoring, delivery or persisting fails so the next scan retries them.
func (p *Processor) ScanOnce(ctx context.Context) (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	summary := &Summary{}

	pending, err := p.messageRepo.GetPendingMessages(p.batchSize)
	if err != nil {
		scanRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load pending messages: %w", err)
	}
	if len(pending) == 0 {
		p.logger.Info("No pending messages to scan.")
		scanRuns.WithLabelValues("empty").Inc()
		return summary, nil
	}

	batch := make([]models.RawMessage, len(pending))
	ids := make([]int64, len(pending))
	for i := range pending {
		batch[i] = pending[i].Raw()
		ids[i] = pending[i].RowID
	}

	result, err := p.scorer.Submit(ctx, batch)
	if err != nil {
		if errors.Is(err, corpus.ErrCorpusUnavailable) {
			p.logger.Error("Training corpus unavailable, messages left pending", zap.Int("count", len(batch)), zap.Error(err))
		}
		scanRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to score batch: %w", err)
	}
	p.logger.Debug("Pipeline log", zap.Strings("log", result.Log))

	summary.RunID = uuid.NewString()
	summary.Scanned = len(batch)
	summary.Flagged = len(result.Reports)
	summary.Audited = len(result.Audit)

	delivered, attempted := p.deliver(result.Reports)
	if attempted > 0 && delivered == 0 {
		p.logger.Error("No report reached a reviewer, messages left pending", zap.Int("reports", len(result.Reports)), zap.Int("attempts", attempted))
		scanRuns.WithLabelValues("error").Inc()
		return nil, ErrDeliveryFailed
	}
	summary.Delivered = delivered

	if err := p.flagRepo.SaveFlagRecords(summary.RunID, result.Audit); err != nil {
		scanRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save flag records: %w", err)
	}

	if err := p.messageRepo.MarkScanned(ids); err != nil {
		scanRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to mark messages scanned: %w", err)
	}

	scanRuns.WithLabelValues("ok").Inc()
	p.logger.Info("Scan finished",
		zap.String("run_id", summary.RunID),
		zap.Int("scanned", summary.Scanned),
		zap.Int("flagged", summary.Flagged),
		zap.Int("audited", summary.Audited),
		zap.Int("delivered", summary.Delivered),
	)
	return summary, nil
}

// deliver sends every report to every reviewer channel and returns the number
// of successful sends and of attempts.
func (p *Processor) deliver(reports []models.ReportEntry) (delivered, attempted int) {
	if p.notifier == nil || len(reports) == 0 {
		return 0, 0
	}

	reviewers, err := p.channelRepo.ListChannels(models.ChannelReviewer)
	if err != nil {
		p.logger.Error("Failed to list reviewer channels", zap.Error(err))
		return 0, 0
	}
	if len(reviewers) == 0 {
		p.logger.Warn("Flagged messages found but no reviewer channels are registered", zap.Int("reports", len(reports)))
		return 0, 0
	}

	for _, report := range reports {
		for _, reviewer := range reviewers {
			attempted++
			if err := p.notifier.SendReport(reviewer.ChatID, report); err != nil {
				p.logger.Error("Failed to send report", zap.Int64("reviewer_chat_id", reviewer.ChatID), zap.Int64("message_id", report.MessageID), zap.Error(err))
				reportsSent.WithLabelValues("error").Inc()
				continue
			}
			reportsSent.WithLabelValues("ok").Inc()
			delivered++
		}
	}
	return delivered, attempted
}
