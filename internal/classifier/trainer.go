package classifier

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"flagbot/internal/models"
)

// TrainingSet is the cleaned training data handed to the trainer.
type TrainingSet struct {
	// Key identifies the data; fitted state is reused while it stays the same.
	Key      string
	Texts    []string
	Examples []models.TrainingExample
	Missing  map[models.Label]bool
}

// LabelTiming is how long fitting (or reusing) one label's model took.
type LabelTiming struct {
	Label   models.Label
	Elapsed time.Duration
}

// Result holds one probability column per label, aligned with the test texts.
type Result struct {
	Columns  map[models.Label][]float64
	Failures []*LabelFitError
	Timings  []LabelTiming
	Cached   bool
}

type fitted struct {
	vectorizer *Vectorizer
	models     map[models.Label]*LogisticRegression
	failures   map[models.Label]*LabelFitError
}

// Trainer fits the vectorizer and one classifier per label.
type Trainer struct {
	cache  *lru.Cache[string, *fitted]
	logger *zap.Logger
}

// NewTrainer creates a trainer caching up to cacheSize fitted corpora.
func NewTrainer(cacheSize int, logger *zap.Logger) (*Trainer, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, *fitted](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}
	return &Trainer{cache: cache, logger: logger}, nil
}

// TrainingRows returns the row indices used to fit label. Labels without gaps use
// every row.
func TrainingRows(examples []models.TrainingExample, label models.Label, hasMissing bool) []int {
	rows := make([]int, 0, len(examples))
	for i, ex := range examples {
		if hasMissing {
			if _, ok := ex.Value(label); !ok {
				continue
			}
		}
		rows = append(rows, i)
	}
	return rows
}

// FitAndScore fits (or reuses) the models for set and scores testTexts.
func (t *Trainer) FitAndScore(ctx context.Context, set TrainingSet, testTexts []string) (*Result, error) {
	res := &Result{Columns: make(map[models.Label][]float64, len(models.LabelSet))}

	state, ok := t.cache.Get(set.Key)
	res.Cached = ok && set.Key != ""
	if !res.Cached {
		vect, trainX, err := FitTransform(set.Texts)
		if err != nil {
			return nil, err
		}
		state = &fitted{
			vectorizer: vect,
			models:     make(map[models.Label]*LogisticRegression),
			failures:   make(map[models.Label]*LabelFitError),
		}
		for _, label := range models.LabelSet {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			start := time.Now()
			t.logger.Info("Processing label", zap.String("label", string(label)))

			rows := TrainingRows(set.Examples, label, set.Missing[label])
			x := make([]SparseVector, len(rows))
			y := make([]float64, len(rows))
			for k, i := range rows {
				x[k] = trainX[i]
				y[k], _ = set.Examples[i].Value(label)
			}

			model, err := FitLogistic(x, y, vect.Features())
			if err != nil {
				state.failures[label] = &LabelFitError{Label: string(label), Reason: err.Error()}
			} else {
				state.models[label] = model
			}
			res.Timings = append(res.Timings, LabelTiming{Label: label, Elapsed: time.Since(start)})
		}
		if set.Key != "" {
			t.cache.Add(set.Key, state)
		}
	}

	testX := state.vectorizer.Transform(testTexts)
	for _, label := range models.LabelSet {
		if fail, ok := state.failures[label]; ok {
			t.logger.Warn("Label scores default to zero", zap.String("label", string(label)), zap.String("reason", fail.Reason))
			res.Failures = append(res.Failures, fail)
			res.Columns[label] = make([]float64, len(testTexts))
			continue
		}
		res.Columns[label] = state.models[label].PredictProba(testX)
	}

	return res, nil
}
