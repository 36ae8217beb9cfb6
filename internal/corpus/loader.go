// Package corpus loads the labeled training data used to fit the classifiers.
package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"flagbot/internal/models"
)

// TextColumn is the CSV header of the free-text column.
const TextColumn = "comment_text"

// ErrCorpusUnavailable is returned when the base corpus cannot be read.
var ErrCorpusUnavailable = errors.New("training corpus unavailable")

// Corpus is the merged training data for one invocation.
type Corpus struct {
	Examples []models.TrainingExample
	// Missing holds every label with at least one example lacking a value.
	Missing map[models.Label]bool
	// Digest identifies the exact file contents the corpus was built from.
	Digest string
}

// HasMissing reports whether label has gaps in the corpus.
func (c *Corpus) HasMissing(label models.Label) bool {
	return c.Missing[label]
}

// Texts returns the example texts in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Examples))
	for i, ex := range c.Examples {
		out[i] = ex.Text
	}
	return out
}

// Loader reads the base corpus and, when present, the supplemental corpus.
type Loader struct {
	basePath         string
	supplementalPath string
	logger           *zap.Logger
}

// NewLoader creates a loader. supplementalPath may be empty.
func NewLoader(basePath, supplementalPath string, logger *zap.Logger) *Loader {
	return &Loader{
		basePath:         basePath,
		supplementalPath: supplementalPath,
		logger:           logger,
	}
}

// Load reads and merges the corpora. Supplemental rows come first.
func (l *Loader) Load() (*Corpus, error) {
	baseData, err := os.ReadFile(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorpusUnavailable, l.basePath, err)
	}
	base, err := parse(bytes.NewReader(baseData))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorpusUnavailable, l.basePath, err)
	}

	hash := sha256.New()
	var supplemental []models.TrainingExample
	if l.supplementalPath != "" {
		suppData, err := os.ReadFile(l.supplementalPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			l.logger.Debug("No supplemental corpus", zap.String("path", l.supplementalPath))
		case err != nil:
			return nil, fmt.Errorf("failed to read supplemental corpus %s: %w", l.supplementalPath, err)
		default:
			supplemental, err = parse(bytes.NewReader(suppData))
			if err != nil {
				return nil, fmt.Errorf("failed to parse supplemental corpus %s: %w", l.supplementalPath, err)
			}
			hash.Write(suppData)
		}
	}
	hash.Write([]byte{0})
	hash.Write(baseData)

	examples := make([]models.TrainingExample, 0, len(supplemental)+len(base))
	examples = append(examples, supplemental...)
	examples = append(examples, base...)

	c := &Corpus{
		Examples: examples,
		Missing:  missingLabels(examples),
		Digest:   hex.EncodeToString(hash.Sum(nil)),
	}

	l.logger.Info("Training corpus loaded",
		zap.Int("base_rows", len(base)),
		zap.Int("supplemental_rows", len(supplemental)),
		zap.Int("missing_labels", len(c.Missing)))

	return c, nil
}

func missingLabels(examples []models.TrainingExample) map[models.Label]bool {
	missing := make(map[models.Label]bool)
	for _, ex := range examples {
		for _, label := range models.LabelSet {
			if _, ok := ex.Value(label); !ok {
				missing[label] = true
			}
		}
	}
	return missing
}

// parse reads a CSV corpus with a header row. Columns other than the text column and
// the known labels are ignored; a label column absent from the header leaves that label
// missing on every row.
func parse(r io.Reader) ([]models.TrainingExample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	textIdx := -1
	labelIdx := make(map[models.Label]int)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case name == TextColumn:
			textIdx = i
		case models.IsKnownLabel(name):
			labelIdx[models.Label(name)] = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("missing %q column", TextColumn)
	}

	var examples []models.TrainingExample
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if textIdx >= len(record) {
			return nil, fmt.Errorf("line %d: missing text field", line)
		}

		ex := models.TrainingExample{
			Text:   record[textIdx],
			Labels: make(map[models.Label]*float64, len(models.LabelSet)),
		}
		for _, label := range models.LabelSet {
			idx, ok := labelIdx[label]
			if !ok || idx >= len(record) {
				ex.Labels[label] = nil
				continue
			}
			v, err := parseValue(record[idx])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, label, err)
			}
			ex.Labels[label] = v
		}
		examples = append(examples, ex)
	}

	return examples, nil
}

func parseValue(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid label value %q", raw)
	}
	return &v, nil
}
