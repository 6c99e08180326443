package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/embedding"
	"github.com/timmy/mygoreply/internal/index"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/prompts"
)

// ErrNoMatch is the definite "no usable reply" outcome.
var ErrNoMatch = errors.New("retrieval: no match")

// ToneAnalyzer classifies the input utterance.
type ToneAnalyzer interface {
	Analyze(ctx context.Context, text string) (domain.ToneAnalysis, error)
}

// Selector picks one option text verbatim, or "" when none fits.
type Selector interface {
	Select(ctx context.Context, utterance string, options []prompts.ReplyOption) (string, error)
}

// Config wires an Engine.
type Config struct {
	Corpus   *corpus.Corpus
	Analyzer ToneAnalyzer
	Selector Selector
	// Embedder and Searcher are optional; without them the cap keeps the
	// first TopK candidates.
	Embedder embedding.Embedder
	Searcher index.Searcher
	TopK     int
	// AssetBaseURL and AssetExt build Result.URL.
	AssetBaseURL string
	AssetExt     string
}

// Engine runs the retrieval pipeline. The corpus and index are shared
// read-only; every call allocates its own candidate slices.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Corpus == nil {
		return nil, fmt.Errorf("retrieval: corpus is required")
	}
	if cfg.Analyzer == nil || cfg.Selector == nil {
		return nil, fmt.Errorf("retrieval: analyzer and selector are required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.AssetExt == "" {
		cfg.AssetExt = "webp"
	}
	return &Engine{cfg: cfg}, nil
}

// Result describes a recommendation, including how far the pipeline got when
// it ends in ErrNoMatch.
type Result struct {
	Analysis   domain.ToneAnalysis `json:"analysis"`
	Fallback   bool                `json:"fallback"`
	Candidates []Candidate         `json:"candidates"`
	Selected   string              `json:"selected"`
	Locator    *corpus.Locator     `json:"locator,omitempty"`
	URL        string              `json:"url,omitempty"`
}

// Recommend returns one corpus line and its asset URL for utterance.
// Parameters:
//   - ctx: request context; cancels the external calls.
//   - utterance: the formatted conversation or a single message.
//
// Returns:
//   - *Result: always non-nil.
//   - error: ErrNoMatch (wrapped with the reason) for an empty corpus, an
//     empty or non-verbatim selection, or a failed lookup; other errors come
//     from the selection call.
func (e *Engine) Recommend(ctx context.Context, utterance string) (*Result, error) {
	start := time.Now()
	res := &Result{Candidates: []Candidate{}}

	analysis, err := e.cfg.Analyzer.Analyze(ctx, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.With(logger.Fields{logger.FieldComponent: "retrieval"}).
			WithError(err).Warn(ctx, "Tone analysis failed, using the whole corpus")
		analysis = domain.ToneAnalysis{}
	}
	res.Analysis = analysis

	candidates, fallback := BuildCandidates(e.cfg.Corpus.Entries(), analysis.Tone)
	res.Fallback = fallback
	if len(candidates) == 0 {
		return res, fmt.Errorf("%w: corpus has no candidates", ErrNoMatch)
	}

	capped := CapCandidates(ctx, candidates, utterance, e.cfg.Embedder, e.cfg.Searcher, e.cfg.Corpus.Len(), e.cfg.TopK)
	res.Candidates = capped

	options := make([]prompts.ReplyOption, len(capped))
	for i, c := range capped {
		options[i] = prompts.ReplyOption{Text: c.Text, Tones: c.Tones}
	}
	raw, err := e.cfg.Selector.Select(ctx, utterance, options)
	if err != nil {
		return res, fmt.Errorf("reply selection failed: %w", err)
	}

	selected, ok := ValidateSelection(raw, capped)
	if !ok {
		if raw != "" {
			logger.With(logger.Fields{logger.FieldComponent: "retrieval"}).
				Warn(ctx, "Selection %q is not one of the %d candidates, treating as empty", raw, len(capped))
		}
		return res, fmt.Errorf("%w: empty selection", ErrNoMatch)
	}
	res.Selected = selected

	loc, err := e.cfg.Corpus.Lookup(ctx, selected)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	res.Locator = &loc
	res.URL = loc.URL(e.cfg.AssetBaseURL, e.cfg.AssetExt)

	logger.With(logger.Fields{logger.FieldComponent: "retrieval"}).
		WithCount(len(capped)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Recommended %q (tone=%q fallback=%v)", selected, analysis.Tone, fallback)
	return res, nil
}
