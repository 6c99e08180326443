// Package tagging runs the resumable batch job that assigns vocabulary tags to
// every corpus entry.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/mygoreply/internal/blocklist"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/logger"
)

// Audit record sources.
const (
	SourceBlocked    = "blocked"
	SourceCache      = "cache"
	SourceClassifier = "classifier"
	SourceFailed     = "failed"
)

// Classifier assigns vocabulary tags to one text.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) ([]string, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

// Sleeper waits for the rate-limit pause and the retry delay.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleepFunc adapts a function to Sleeper.
type SleepFunc func(ctx context.Context, d time.Duration) error

func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// ContextSleeper sleeps on a timer and returns early when ctx is done.
var ContextSleeper = SleepFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Observer receives progress notifications. Calls are made from the goroutine
// running the pipeline.
type Observer interface {
	Started(total, start int)
	Processed(p Progress)
	Paused(d time.Duration)
	Finished(stats Stats, err error)
}

// Progress describes one processed entry.
type Progress struct {
	Position int
	Total    int
	Text     string
	Source   string
	Reason   string
	Tones    []string
	Stats    Stats
}

// Stats counts what a run did.
type Stats struct {
	Total       int
	StartIndex  int
	Processed   int
	Classified  int
	CacheHits   int
	Blocked     int
	Failed      int
	Calls       int
	Pauses      int
	Checkpoints int
	StartTime   time.Time
	EndTime     time.Time
}

// State is the mutable progress of a run. It is owned by a single Run call
// and persisted through the Store.
type State struct {
	// Index is the next position to process.
	Index int
	// Cache maps entry text to the tags already obtained for it.
	Cache map[string][]string
	// Calls counts classifier invocations in this run. Resumed runs start at zero.
	Calls int
}

// NewState builds the starting state from a checkpoint, which may be nil.
func NewState(cp *domain.Checkpoint) *State {
	s := &State{Cache: make(map[string][]string)}
	if cp == nil {
		return s
	}
	s.Index = cp.Index
	if s.Index < 0 {
		s.Index = 0
	}
	for k, v := range cp.Cache {
		s.Cache[k] = v
	}
	return s
}

// Checkpoint snapshots the state for persistence.
func (s *State) Checkpoint() *domain.Checkpoint {
	return &domain.Checkpoint{Index: s.Index, Cache: s.Cache}
}

// Options tunes a Pipeline. Zero values take the defaults below.
type Options struct {
	SaveEvery      int
	RateLimitCalls int
	RateLimitPause time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	// OutputPath, when set, receives the labeled corpus at the end of the run.
	OutputPath string
	// Limit stops the run after this many entries. Zero means no limit.
	Limit int
}

// DefaultOptions returns the production cadence.
func DefaultOptions() Options {
	return Options{
		SaveEvery:      25,
		RateLimitCalls: 100,
		RateLimitPause: 60 * time.Second,
		MaxRetries:     3,
		RetryDelay:     3 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SaveEvery <= 0 {
		o.SaveEvery = d.SaveEvery
	}
	if o.RateLimitCalls <= 0 {
		o.RateLimitCalls = d.RateLimitCalls
	}
	if o.RateLimitPause < 0 {
		o.RateLimitPause = d.RateLimitPause
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = d.RetryDelay
	}
	return o
}

// Pipeline tags corpus entries. Its collaborators are injected so the run can
// be driven entirely in memory.
type Pipeline struct {
	blocklist  *blocklist.Filter
	classifier Classifier
	store      Store
	audit      AuditLog
	sleeper    Sleeper
	now        func() time.Time
	observer   Observer
	opts       Options
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithSleeper replaces the real sleeper.
func WithSleeper(s Sleeper) Option { return func(p *Pipeline) { p.sleeper = s } }

// WithClock replaces time.Now for audit timestamps.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }

// New creates a pipeline.
// Parameters:
//   - filter: blocklist checked before anything else; nil uses the default rules.
//   - classifier: the external tagging capability.
//   - store: checkpoint persistence.
//   - audit: per-entry audit sink.
//   - opts: cadence and retry settings.
func New(filter *blocklist.Filter, classifier Classifier, store Store, audit AuditLog, opts Options, options ...Option) *Pipeline {
	if filter == nil {
		filter = blocklist.Default()
	}
	p := &Pipeline{
		blocklist:  filter,
		classifier: classifier,
		store:      store,
		audit:      audit,
		sleeper:    ContextSleeper,
		now:        time.Now,
		opts:       opts.withDefaults(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Result is the outcome of a run.
type Result struct {
	// Entries is a copy of the input with Tones filled in for every position
	// that is known, either from this run or from the resumed cache.
	Entries []domain.Entry
	Stats   Stats
	// Done reports whether every entry has been processed.
	Done bool
}

// Run processes entries from the stored checkpoint onwards.
// Cancellation stops the run between entries after saving a checkpoint; the
// returned error is then ctx.Err(). Persistence failures wrap ErrPersistence.
func (p *Pipeline) Run(ctx context.Context, entries []domain.Entry) (*Result, error) {
	cp, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	state := NewState(cp)
	if state.Index > len(entries) {
		state.Index = len(entries)
	}

	out := make([]domain.Entry, len(entries))
	copy(out, entries)
	p.restore(out[:state.Index], state)

	stats := Stats{Total: len(entries), StartIndex: state.Index, StartTime: time.Now()}
	log := logger.FromContext(ctx)
	log.WithFields(logger.Fields{
		"total":       len(entries),
		"start_index": state.Index,
		"cached":      len(state.Cache),
	}).Info("Starting batch tagging")
	if p.observer != nil {
		p.observer.Started(len(entries), state.Index)
	}

	runErr := p.process(ctx, out, state, &stats)
	stats.EndTime = time.Now()

	if runErr == nil || !errors.Is(runErr, ErrPersistence) {
		if err := p.save(ctx, state, &stats); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr == nil && p.opts.OutputPath != "" {
		if err := corpus.WriteFile(p.opts.OutputPath, out); err != nil {
			runErr = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	fields := logger.Fields{
		"processed":            stats.Processed,
		"classified":           stats.Classified,
		"cache_hits":           stats.CacheHits,
		"blocked":              stats.Blocked,
		"failed":               stats.Failed,
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
		logger.FieldEntryIndex: state.Index,
	}
	if runErr != nil {
		log.WithFields(fields).WithError(runErr).Error("Batch tagging stopped")
	} else {
		log.WithFields(fields).Info("Batch tagging finished")
	}
	if p.observer != nil {
		p.observer.Finished(stats, runErr)
	}

	return &Result{Entries: out, Stats: stats, Done: state.Index >= len(entries)}, runErr
}

// process walks the entries starting at state.Index. state.Index always
// points at the next entry that has not been processed.
func (p *Pipeline) process(ctx context.Context, entries []domain.Entry, state *State, stats *Stats) error {
	end := len(entries)
	if p.opts.Limit > 0 && state.Index+p.opts.Limit < end {
		end = state.Index + p.opts.Limit
	}

	for i := state.Index; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := entries[i].Text
		rec := domain.AuditRecord{Index: i, Text: text}

		if reason, blocked := p.blocklist.Match(text); blocked {
			logger.With(logger.Fields{
				logger.FieldEntryIndex: i,
				logger.FieldReason:     reason,
			}).Info(ctx, "Entry blocked: %q", text)
			rec.Blocked = true
			rec.Reason = reason
			rec.Tones = []string{}
			rec.Source = SourceBlocked
			stats.Blocked++
		} else if cached, ok := state.Cache[text]; ok {
			rec.Tones = cached
			rec.Source = SourceCache
			stats.CacheHits++
		} else {
			if state.Calls > 0 && state.Calls%p.opts.RateLimitCalls == 0 {
				if err := p.pause(ctx, state, stats); err != nil {
					return err
				}
			}
			c, err := p.classify(ctx, i, text)
			if err != nil {
				return err
			}
			state.Calls++
			stats.Calls++
			state.Cache[text] = c.tones
			rec.Tones = c.tones
			if c.failed {
				rec.Source = SourceFailed
				stats.Failed++
			} else {
				rec.Source = SourceClassifier
				stats.Classified++
			}
		}

		entries[i].Tones = rec.Tones
		rec.Timestamp = p.now()
		if err := p.audit.Append(ctx, rec); err != nil {
			return fmt.Errorf("%w: audit log: %v", ErrPersistence, err)
		}

		state.Index = i + 1
		stats.Processed++
		if p.observer != nil {
			p.observer.Processed(Progress{
				Position: i,
				Total:    len(entries),
				Text:     text,
				Source:   rec.Source,
				Reason:   rec.Reason,
				Tones:    rec.Tones,
				Stats:    *stats,
			})
		}

		if state.Index%p.opts.SaveEvery == 0 {
			if err := p.save(ctx, state, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) pause(ctx context.Context, state *State, stats *Stats) error {
	logger.With(logger.Fields{
		logger.FieldCount:      state.Calls,
		logger.FieldEntryIndex: state.Index,
	}).Info(ctx, "Classifier used %d times, pausing for %s", state.Calls, p.opts.RateLimitPause)
	if p.observer != nil {
		p.observer.Paused(p.opts.RateLimitPause)
	}
	stats.Pauses++
	return p.sleeper.Sleep(ctx, p.opts.RateLimitPause)
}

type classification struct {
	tones  []string
	failed bool
}

// classify calls the classifier up to MaxRetries times. Exhausted retries
// degrade to an empty tag set; only cancellation is returned as an error.
func (p *Pipeline) classify(ctx context.Context, position int, text string) (classification, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		tones, err := p.classifier.Classify(ctx, text)
		if err == nil {
			if tones == nil {
				tones = []string{}
			}
			return classification{tones: tones}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return classification{}, ctxErr
		}
		lastErr = err
		logger.With(logger.Fields{
			logger.FieldEntryIndex: position,
			logger.FieldAttempt:    attempt,
		}).WithError(err).Warn(ctx, "Classification failed (retry %d/%d)", attempt, p.opts.MaxRetries)

		if attempt < p.opts.MaxRetries {
			if err := p.sleeper.Sleep(ctx, p.opts.RetryDelay); err != nil {
				return classification{}, err
			}
		}
	}

	logger.With(logger.Fields{
		logger.FieldEntryIndex: position,
	}).WithError(lastErr).Error(ctx, "Giving up on %q, recording empty tags", text)
	return classification{tones: []string{}, failed: true}, nil
}

func (p *Pipeline) save(ctx context.Context, state *State, stats *Stats) error {
	// Saving must succeed even when the run is being canceled.
	if err := p.store.Save(context.WithoutCancel(ctx), state.Checkpoint()); err != nil {
		return fmt.Errorf("%w: checkpoint: %v", ErrPersistence, err)
	}
	stats.Checkpoints++
	logger.With(logger.Fields{
		logger.FieldEntryIndex: state.Index,
		logger.FieldCount:      len(state.Cache),
	}).Debug(ctx, "Checkpoint saved at index %d", state.Index)
	return nil
}

// restore fills tags for entries below the resume point without calling the
// classifier: blocked texts get no tags, cached texts get their cached tags,
// anything else keeps the tags it was loaded with.
func (p *Pipeline) restore(done []domain.Entry, state *State) {
	for i := range done {
		if _, blocked := p.blocklist.Match(done[i].Text); blocked {
			done[i].Tones = []string{}
			continue
		}
		if cached, ok := state.Cache[done[i].Text]; ok {
			done[i].Tones = cached
		}
	}
}
