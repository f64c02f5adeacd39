// Package classify runs PDPL text classification over normalized input. The
// gateway owns at most one loaded model per type; model internals (weights,
// tokenizer, device placement) are behind the Model interface and supplied by
// a Loader, so the service logic does not depend on any inference runtime.
package classify

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"verisyntra.org/internal/normalize"
	"verisyntra.org/internal/vntext"
)

var (
	ErrInvalidModelType = errors.New("classify: unknown model type")
	ErrUnavailable      = errors.New("classify: model unavailable")
)

// Prediction is one classification outcome.
type Prediction struct {
	CategoryID    int                `json:"category_id"`
	CategoryName  string             `json:"category_name"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Result is a prediction plus the normalization side-outputs.
type Result struct {
	Prediction
	NormalizedText    string   `json:"normalized_text"`
	DetectedCompanies []string `json:"detected_companies"`
}

// Model produces a prediction for already-normalized text.
type Model interface {
	Predict(text string) (Prediction, error)
}

// Loader constructs the model for a type. Called at most once per type unless
// loading fails.
type Loader func(mt ModelType) (Model, error)

// ModelStatus describes one catalogue entry for the status endpoint.
type ModelStatus struct {
	ModelType ModelType  `json:"model_type"`
	Loaded    bool       `json:"loaded"`
	Labels    int        `json:"labels"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
}

// Gateway normalizes input and dispatches to the per-type model.
type Gateway struct {
	normalizer *normalize.Normalizer
	loader     Loader

	mu       sync.Mutex
	models   map[ModelType]Model
	loadedAt map[ModelType]time.Time
}

// NewGateway builds a Gateway. A nil loader uses the bundled keyword scorer.
func NewGateway(n *normalize.Normalizer, loader Loader) *Gateway {
	if loader == nil {
		loader = KeywordLoader
	}
	return &Gateway{
		normalizer: n,
		loader:     loader,
		models:     make(map[ModelType]Model),
		loadedAt:   make(map[ModelType]time.Time),
	}
}

// Classify normalizes text and runs inference for the model type.
func (g *Gateway) Classify(text string, mt ModelType) (Result, error) {
	if _, ok := Labels(mt); !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidModelType, mt)
	}
	model, err := g.model(mt)
	if err != nil {
		return Result{}, err
	}
	norm := g.normalizer.Companies(text)
	pred, err := model.Predict(norm.Text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Result{
		Prediction:        pred,
		NormalizedText:    norm.Text,
		DetectedCompanies: norm.Companies,
	}, nil
}

// Preload forces a model load; loading an already-loaded type is a no-op.
func (g *Gateway) Preload(mt ModelType) error {
	if _, ok := Labels(mt); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidModelType, mt)
	}
	_, err := g.model(mt)
	return err
}

// Status reports the whole catalogue with load state.
func (g *Gateway) Status() []ModelStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ModelStatus, 0, len(labelCatalogue))
	for _, mt := range KnownModelTypes() {
		labels, _ := Labels(mt)
		st := ModelStatus{ModelType: mt, Labels: len(labels)}
		if _, ok := g.models[mt]; ok {
			st.Loaded = true
			ts := g.loadedAt[mt]
			st.LoadedAt = &ts
		}
		out = append(out, st)
	}
	return out
}

// model returns the loaded model for mt, loading lazily on first use. Loads
// are serialized; a failed load is retried on the next call.
func (g *Gateway) model(mt ModelType) (Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.models[mt]; ok {
		return m, nil
	}
	m, err := g.loader(mt)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrUnavailable, mt, err)
	}
	g.models[mt] = m
	g.loadedAt[mt] = time.Now().UTC()
	return m, nil
}

// KeywordLoader builds the bundled deterministic scorer for a model type.
// Types without a keyword vocabulary predict the first label at uniform
// confidence; they exist in the catalogue for when trained weights arrive.
func KeywordLoader(mt ModelType) (Model, error) {
	labels, ok := Labels(mt)
	if !ok {
		return nil, fmt.Errorf("no labels for %s", mt)
	}
	return &keywordModel{labels: labels, vocab: keywordVocab[mt]}, nil
}

// keywordModel scores folded cue phrases per label. Deterministic by
// construction: same text, same prediction.
type keywordModel struct {
	labels []string
	vocab  map[string][]string
}

func (m *keywordModel) Predict(text string) (Prediction, error) {
	folded := vntext.Fold(text)
	scores := make([]float64, len(m.labels))
	total := 0.0
	for i, label := range m.labels {
		for _, cue := range m.vocab[label] {
			if strings.Contains(folded, cue) {
				scores[i]++
				total++
			}
		}
	}

	probs := make(map[string]float64, len(m.labels))
	if total == 0 {
		uniform := 1.0 / float64(len(m.labels))
		for _, label := range m.labels {
			probs[label] = uniform
		}
		return Prediction{
			CategoryID:    0,
			CategoryName:  m.labels[0],
			Confidence:    uniform,
			Probabilities: probs,
		}, nil
	}

	best := 0
	for i := range scores {
		probs[m.labels[i]] = scores[i] / total
		if scores[i] > scores[best] {
			best = i
		}
	}
	// Ties resolve to the lowest category id; scores are integers so the
	// comparison above already does that.
	return Prediction{
		CategoryID:    best,
		CategoryName:  m.labels[best],
		Confidence:    probs[m.labels[best]],
		Probabilities: probs,
	}, nil
}
