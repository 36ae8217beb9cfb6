// Package pipeline turns a batch of chat messages into moderation reports.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"flagbot/internal/classifier"
	"flagbot/internal/corpus"
	"flagbot/internal/models"
	"flagbot/internal/textnorm"
)

// CorpusSource provides the training corpus for each run.
type CorpusSource interface {
	Load() (*corpus.Corpus, error)
}

// Model fits classifiers on a training set and scores test texts.
type Model interface {
	FitAndScore(ctx context.Context, set classifier.TrainingSet, testTexts []string) (*classifier.Result, error)
}

// Options are the tunable flagging and presentation settings.
type Options struct {
	Threshold  float64
	SampleRate float64
	Emojis     []string
}

// Result is the complete output of one run.
type Result struct {
	Reports []models.ReportEntry
	// Audit holds flagged messages followed by sampled-clean ones.
	Audit []models.ScoredMessage
	Log   []string
}

func emptyResult(log []string) *Result {
	return &Result{
		Reports: []models.ReportEntry{},
		Audit:   []models.ScoredMessage{},
		Log:     log,
	}
}

// Pipeline runs the scoring stages in order.
type Pipeline struct {
	source     CorpusSource
	normalizer *textnorm.Normalizer
	model      Model
	opts       Options
	logger     *zap.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a pipeline. rng drives audit sampling; pass a seeded source for
// reproducible runs.
func New(source CorpusSource, normalizer *textnorm.Normalizer, model Model, opts Options, rng *rand.Rand, logger *zap.Logger) *Pipeline {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pipeline{
		source:     source,
		normalizer: normalizer,
		model:      model,
		opts:       opts,
		rng:        rng,
		logger:     logger,
	}
}

type stageLog struct {
	lines  []string
	logger *zap.Logger
}

func (s *stageLog) add(stage, name string, start time.Time) {
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	line := fmt.Sprintf("%s took %.3f seconds!", stage, elapsed.Seconds())
	s.lines = append(s.lines, line)
	s.logger.Info(line)
}

// Run scores msgs. On error no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, msgs []models.RawMessage) (*Result, error) {
	res, err := p.run(ctx, msgs)
	if err != nil {
		runCount.WithLabelValues("error").Inc()
		return nil, err
	}
	runCount.WithLabelValues("ok").Inc()
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, msgs []models.RawMessage) (*Result, error) {
	if len(msgs) == 0 {
		return emptyResult([]string{}), nil
	}

	p.logger.Info("Starting evaluation", zap.Int("messages", len(msgs)))
	logs := &stageLog{logger: p.logger}
	begin := time.Now()

	start := time.Now()
	c, err := p.source.Load()
	if err != nil {
		return nil, err
	}
	logs.add("1. Loading data", "load", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	trainTexts := p.normalizer.NormalizeAll(c.Texts())
	scored := make([]models.ScoredMessage, len(msgs))
	testTexts := make([]string, len(msgs))
	scoreable := 0
	for i, m := range msgs {
		cleaned := p.normalizer.Normalize(m.Content)
		scored[i] = models.ScoredMessage{Message: m, Cleaned: cleaned}
		testTexts[i] = cleaned
		if cleaned != "" {
			scoreable++
		}
	}
	logs.add("2. Cleaning data", "clean", start)

	if scoreable == 0 {
		logs.lines = append(logs.lines, "No scoreable messages, model fit skipped")
		messageCount.WithLabelValues(string(models.DecisionIgnored)).Add(float64(len(msgs)))
		return emptyResult(logs.lines), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	fit, err := p.model.FitAndScore(ctx, classifier.TrainingSet{
		Key:      c.Digest,
		Texts:    trainTexts,
		Examples: c.Examples,
		Missing:  c.Missing,
	}, testTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifiers: %w", err)
	}
	logs.add("3. Building and testing model", "model", start)
	if fit.Cached {
		modelCacheHits.Inc()
		logs.lines = append(logs.lines, "- reused fitted model for corpus "+shortDigest(c.Digest))
	}
	for _, lt := range fit.Timings {
		logs.lines = append(logs.lines, fmt.Sprintf("- Processing %s took %.3f seconds!", lt.Label, lt.Elapsed.Seconds()))
	}
	for _, f := range fit.Failures {
		labelFitFailures.WithLabelValues(f.Label).Inc()
		logs.lines = append(logs.lines, "Warning: "+f.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	vectors := BuildScoreVectors(fit.Columns, len(msgs))
	for i := range scored {
		scored[i].Scores = vectors[i]
	}
	p.mu.Lock()
	flagged, sampled := Flagger{Threshold: p.opts.Threshold, SampleRate: p.opts.SampleRate}.Classify(scored, p.rng)
	p.mu.Unlock()
	logs.add("4. Flagging messages", "flag", start)

	for _, m := range scored {
		messageCount.WithLabelValues(string(m.Decision)).Inc()
	}

	start = time.Now()
	reports := ReportBuilder{Threshold: p.opts.Threshold, Emojis: p.opts.Emojis}.Build(flagged)
	logs.add("5. Building reports", "report", start)

	p.logger.Info("Evaluation finished",
		zap.Int("flagged", len(flagged)),
		zap.Int("sampled", len(sampled)),
		zap.Duration("elapsed", time.Since(begin)))

	audit := make([]models.ScoredMessage, 0, len(flagged)+len(sampled))
	audit = append(audit, flagged...)
	audit = append(audit, sampled...)

	return &Result{Reports: reports, Audit: audit, Log: logs.lines}, nil
}

func shortDigest(d string) string {
	if len(d) > 8 {
		return d[:8]
	}
	return d
}
