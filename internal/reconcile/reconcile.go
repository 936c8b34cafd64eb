package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/embed-provider-sync/internal/export"
	"github.com/JakeFAU/embed-provider-sync/internal/hash/sha256"
	"github.com/JakeFAU/embed-provider-sync/internal/logging"
	"github.com/JakeFAU/embed-provider-sync/internal/parser"
	"github.com/JakeFAU/embed-provider-sync/internal/progress"
	"github.com/JakeFAU/embed-provider-sync/internal/store"
)

var (
	// ErrListingUnavailable means the listing page could not be fetched after
	// every retry. Nothing is saved.
	ErrListingUnavailable = errors.New("provider listing unavailable")
	// ErrSave means the run finished but the store could not be written.
	ErrSave = errors.New("save provider store")
)

// PageFetcher returns page markup, or false once every attempt failed.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// ProviderStore loads and saves the provider directory.
type ProviderStore interface {
	Load(ctx context.Context) *store.Providers
	Save(ctx context.Context, providers *store.Providers) error
}

// DomainStore loads and saves the example domain index.
type DomainStore interface {
	Load(ctx context.Context) *store.DomainIndex
	Save(ctx context.Context, index *store.DomainIndex) error
}

// URLs builds page addresses for the directory site.
type URLs interface {
	ListingURL() string
	DetailURL(id string) string
}

// RunIDSource issues run identifiers.
type RunIDSource interface {
	NewRunID() (uuid.UUID, error)
}

// Gauges receives run-level metric updates.
type Gauges interface {
	SetProviders(n int)
	MarkSuccess(at time.Time)
}

// Summary describes a finished or aborted run.
type Summary struct {
	RunID   uuid.UUID
	Listed  int
	Pruned  []string
	Updated int
	// Failed lists listed providers whose detail page could not be fetched.
	Failed         []string
	Saved          bool
	Domains        int
	ExportFailures int
	Duration       time.Duration
}

// Reconciler owns the collaborators of a sync run.
type Reconciler struct {
	fetcher   PageFetcher
	store     ProviderStore
	urls      URLs
	logger    *zap.Logger
	domains   DomainStore
	exporters []export.Exporter
	emitter   progress.Emitter
	gauges    Gauges
	ids       RunIDSource
	now       func() time.Time
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithDomains enables the example domain index.
func WithDomains(d DomainStore) Option {
	return func(r *Reconciler) { r.domains = d }
}

// WithExporters mirrors the saved directory after each successful save.
func WithExporters(exporters ...export.Exporter) Option {
	return func(r *Reconciler) { r.exporters = append(r.exporters, exporters...) }
}

// WithEmitter reports progress events.
func WithEmitter(e progress.Emitter) Option {
	return func(r *Reconciler) {
		if e != nil {
			r.emitter = e
		}
	}
}

// WithGauges reports run-level metrics.
func WithGauges(g Gauges) Option {
	return func(r *Reconciler) { r.gauges = g }
}

// WithRunIDs replaces the run id source.
func WithRunIDs(ids RunIDSource) Option {
	return func(r *Reconciler) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

type randomIDs struct{}

func (randomIDs) NewRunID() (uuid.UUID, error) { return uuid.NewV7() }

// New builds a Reconciler.
func New(fetcher PageFetcher, providers ProviderStore, urls URLs, logger *zap.Logger, opts ...Option) (*Reconciler, error) {
	if fetcher == nil || providers == nil || urls == nil {
		return nil, errors.New("fetcher, store and urls are required")
	}
	logger = logging.OrNop(logger)
	r := &Reconciler{
		fetcher: fetcher,
		store:   providers,
		urls:    urls,
		logger:  logger,
		emitter: progress.NopEmitter{},
		ids:     randomIDs{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type detailResult struct {
	markup string
	ok     bool
}

type run struct {
	id      [16]byte
	started time.Time
	logger  *zap.Logger
	summary Summary
}

// Run performs one sync. A listing failure aborts before anything is saved. A
// save failure returns the summary together with an error wrapping ErrSave.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	runID, err := r.ids.NewRunID()
	if err != nil {
		return Summary{}, fmt.Errorf("new run id: %w", err)
	}
	rs := &run{
		id:      progress.UUIDToBytes(runID),
		started: r.now(),
		logger:  r.logger.With(zap.Stringer("run_id", runID)),
		summary: Summary{RunID: runID},
	}
	listingURL := r.urls.ListingURL()
	r.emit(rs, progress.Event{Stage: progress.StageRunStart, URL: listingURL})

	providers := r.store.Load(ctx)
	rs.logger.Debug("provider store loaded", zap.Int("providers", providers.Len()))

	listStart := r.now()
	markup, ok := r.fetcher.Fetch(ctx, listingURL)
	if err := ctx.Err(); err != nil {
		return r.abort(rs, fmt.Errorf("sync canceled: %w", err))
	}
	if !ok {
		return r.abort(rs, fmt.Errorf("%w: %s", ErrListingUnavailable, listingURL))
	}
	ids, err := parser.ParseListing(markup)
	if err != nil {
		return r.abort(rs, fmt.Errorf("parse listing %s: %w", listingURL, err))
	}
	rs.summary.Listed = len(ids)
	r.emit(rs, progress.Event{
		Stage: progress.StageListingDone,
		URL:   listingURL,
		Total: len(ids),
		Dur:   r.now().Sub(listStart),
	})

	rs.summary.Pruned = providers.Prune(ids)
	if len(rs.summary.Pruned) > 0 {
		rs.logger.Info("pruned providers no longer listed", zap.Strings("ids", rs.summary.Pruned))
	}

	results := r.fetchDetails(ctx, rs, ids)
	if err := ctx.Err(); err != nil {
		return r.abort(rs, fmt.Errorf("sync canceled: %w", err))
	}

	var domains *store.DomainIndex
	if r.domains != nil {
		domains = r.domains.Load(ctx)
	}
	for i, id := range ids {
		res := results[i]
		if !res.ok {
			rs.summary.Failed = append(rs.summary.Failed, id)
			continue
		}
		detail := parser.ParseDetail(res.markup)
		if !detail.HasSchemes {
			rs.logger.Debug("provider page has no url schemes", zap.String("provider", id))
		}
		providers.Set(id, detail.Schemes)
		rs.summary.Updated++
		if domains != nil {
			domains.Add(detail.TryDomain)
		}
	}
	if r.gauges != nil {
		r.gauges.SetProviders(providers.Len())
	}

	if err := r.store.Save(ctx, providers); err != nil {
		rs.logger.Error("failed to save provider store", zap.Error(err))
		return r.abort(rs, fmt.Errorf("%w: %w", ErrSave, err))
	}
	rs.summary.Saved = true

	if domains != nil {
		if err := r.domains.Save(ctx, domains); err != nil {
			rs.logger.Error("failed to save domain index", zap.Error(err))
		} else {
			rs.summary.Domains = domains.Len()
		}
	}

	r.export(ctx, rs, providers)

	if r.gauges != nil {
		r.gauges.MarkSuccess(r.now())
	}
	rs.summary.Duration = r.now().Sub(rs.started)
	r.emit(rs, progress.Event{
		Stage: progress.StageRunDone,
		Total: len(ids),
		Dur:   rs.summary.Duration,
		Note:  fmt.Sprintf("updated=%d failed=%d pruned=%d", rs.summary.Updated, len(rs.summary.Failed), len(rs.summary.Pruned)),
	})
	return rs.summary, nil
}

func (r *Reconciler) abort(rs *run, err error) (Summary, error) {
	rs.summary.Duration = r.now().Sub(rs.started)
	r.emit(rs, progress.Event{Stage: progress.StageRunError, Dur: rs.summary.Duration, Note: err.Error()})
	return rs.summary, err
}

// fetchDetails fetches every detail page concurrently. Goroutines write only
// their own slot of the result slice; the store is untouched until Wait.
func (r *Reconciler) fetchDetails(ctx context.Context, rs *run, ids []string) []detailResult {
	results := make([]detailResult, len(ids))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			url := r.urls.DetailURL(id)
			start := r.now()
			markup, ok := r.fetcher.Fetch(gctx, url)
			results[i] = detailResult{markup: markup, ok: ok}

			evt := progress.Event{
				Stage:      progress.StageProviderDone,
				ProviderID: id,
				URL:        url,
				Done:       int(done.Add(1)),
				Total:      len(ids),
				Bytes:      int64(len(markup)),
				Dur:        r.now().Sub(start),
			}
			if !ok {
				evt.Stage = progress.StageProviderFail
				evt.Note = "retries exhausted"
			}
			r.emit(rs, evt)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Reconciler) export(ctx context.Context, rs *run, providers *store.Providers) {
	if len(r.exporters) == 0 {
		return
	}
	doc, err := store.Encode(providers)
	if err != nil {
		rs.logger.Error("failed to encode snapshot for export", zap.Error(err))
		rs.summary.ExportFailures = len(r.exporters)
		return
	}
	snap := export.Snapshot{
		RunID:     rs.summary.RunID,
		At:        r.now(),
		Providers: providers,
		Document:  doc,
		Digest:    sha256.Digest(doc),
		Pruned:    rs.summary.Pruned,
		Updated:   rs.summary.Updated,
		Failed:    rs.summary.Failed,
	}
	for _, exp := range r.exporters {
		if err := exp.Export(ctx, snap); err != nil {
			rs.summary.ExportFailures++
			rs.logger.Warn("export failed", zap.String("exporter", exp.Name()), zap.Error(err))
			continue
		}
		rs.logger.Info("export complete", zap.String("exporter", exp.Name()))
	}
}

func (r *Reconciler) emit(rs *run, evt progress.Event) {
	evt.RunID = rs.id
	evt.TS = r.now().UTC()
	r.emitter.Emit(evt)
}
