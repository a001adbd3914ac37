package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trade-journal-assistant/internal/cache"
	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
	"trade-journal-assistant/internal/retry"
)

// MaxNewsItems caps the headlines kept in a snapshot.
const MaxNewsItems = 10

const neutralSentiment = 50

// defaultLegTimeout bounds one shared leg resolution, retries included.
const defaultLegTimeout = 30 * time.Second

// Sources a leg can be served from, in fallback order.
const (
	SourcePrimary   = "primary"
	SourceCache     = "cache"
	SourceSecondary = "secondary"
	SourceDefault   = "default"
)

// Providers wires the data sources for each leg. A nil provider is skipped.
type Providers struct {
	Crypto         CryptoQuoteProvider
	CryptoFallback CryptoQuoteProvider
	Metal          SpotPriceProvider
	MetalFallback  SpotPriceProvider
	Sentiment      SentimentProvider
	News           NewsProvider
}

// NewProviders builds the default vendor set from configuration.
func NewProviders(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) Providers {
	return Providers{
		Crypto:         NewCoinGecko(cfg, logger, rec),
		CryptoFallback: NewBinance(cfg, logger, rec),
		Metal:          NewSwissquote(cfg, logger, rec),
		MetalFallback:  NewGoldAPI(cfg, logger, rec),
		Sentiment:      NewFearGreed(cfg, logger, rec),
		News:           NewNewsData(cfg, logger, rec),
	}
}

// Aggregator fetches all legs concurrently and never fails as a whole.
// Each leg degrades from its primary provider to the last good cached value,
// then to a secondary provider, then to a static default.
type Aggregator struct {
	providers Providers
	store     cache.Store
	group     singleflight.Group

	coinIDs      []string
	metalPair    string
	newsQuery    string
	newsLanguage string
	newsCountry  string
	cacheTTL     time.Duration
	legTimeout   time.Duration

	retryOpts []retry.Option
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewAggregator creates an Aggregator. A nil store disables the last-good cache.
func NewAggregator(cfg *config.Market, p Providers, store cache.Store, logger *zap.Logger, rec *metrics.Recorder, retryOpts ...retry.Option) *Aggregator {
	l := logger.Named("market")
	legTimeout := cfg.LegTimeout
	if legTimeout <= 0 {
		legTimeout = defaultLegTimeout
	}
	return &Aggregator{
		providers:    p,
		store:        store,
		coinIDs:      cfg.CoinIDs,
		metalPair:    cfg.MetalPair,
		newsQuery:    cfg.NewsQuery,
		newsLanguage: cfg.NewsLanguage,
		newsCountry:  cfg.NewsCountry,
		cacheTTL:     cfg.CacheTTL,
		legTimeout:   legTimeout,
		retryOpts:    append([]retry.Option{retry.WithLogger(l)}, retryOpts...),
		logger:       l,
		metrics:      rec,
		now:          time.Now,
	}
}

// FetchSnapshot runs every leg concurrently and waits for all of them.
// A leg that panics keeps its static default and is reported as degraded.
func (a *Aggregator) FetchSnapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		CryptoQuotes: a.defaultCrypto(),
		MetalQuote:   &Quote{},
		Sentiment:    ptr(a.defaultSentiment()),
		News:         []NewsItem{},
		FetchedAt:    a.now().UTC(),
	}
	degraded := [4]bool{true, true, true, true}

	var wg conc.WaitGroup
	wg.Go(func() {
		quotes, d := fetchLeg(ctx, a, LegCrypto, a.cryptoFetcher(a.providers.Crypto),
			a.cryptoFetcher(a.providers.CryptoFallback), a.defaultCrypto)
		snap.CryptoQuotes, degraded[0] = quotes, d
	})
	wg.Go(func() {
		q, d := fetchLeg(ctx, a, LegMetal, a.metalFetcher(a.providers.Metal),
			a.metalFetcher(a.providers.MetalFallback), func() Quote { return Quote{} })
		snap.MetalQuote, degraded[1] = &q, d
	})
	wg.Go(func() {
		s, d := fetchLeg(ctx, a, LegSentiment, a.sentimentFetcher(), nil, a.defaultSentiment)
		snap.Sentiment, degraded[2] = &s, d
	})
	wg.Go(func() {
		n, d := fetchLeg(ctx, a, LegNews, a.newsFetcher(), nil, func() []NewsItem { return []NewsItem{} })
		snap.News, degraded[3] = n, d
	})
	if r := wg.WaitAndRecover(); r != nil {
		a.logger.Error("Snapshot leg panicked", zap.String("panic", r.String()))
	}

	for i, leg := range legOrder {
		if degraded[i] {
			snap.Degraded = append(snap.Degraded, leg)
		}
	}
	if len(snap.Degraded) > 0 {
		a.logger.Warn("Snapshot degraded", zap.Any("legs", snap.Degraded))
	}
	return snap
}

type fetcher[T any] func(ctx context.Context) (T, error)

type legResult[T any] struct {
	value  T
	source string
}

// fetchLeg resolves one leg through its fallback chain, collapsing concurrent
// fetches of the same leg into one. The shared resolution is detached from the
// caller's cancellation, so a caller that gives up only stops its own wait and
// gets the static default. The bool reports a non-primary source.
func fetchLeg[T any](ctx context.Context, a *Aggregator, leg Leg, primary, secondary fetcher[T], fallback func() T) (T, bool) {
	ch := a.group.DoChan(string(leg), func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.legTimeout)
		defer cancel()

		var res legResult[T]
		if r := panics.Try(func() { res = resolveLeg(shared, a, leg, primary, secondary, fallback) }); r != nil {
			return nil, r.AsError()
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			a.logger.Error("Leg resolution panicked", zap.String("leg", string(leg)), zap.Error(r.Err))
			return fallback(), true
		}
		res := r.Val.(legResult[T])
		return res.value, res.source != SourcePrimary
	case <-ctx.Done():
		a.logger.Warn("Caller stopped waiting for leg", zap.String("leg", string(leg)), zap.Error(ctx.Err()))
		return fallback(), true
	}
}

func resolveLeg[T any](ctx context.Context, a *Aggregator, leg Leg, primary, secondary fetcher[T], fallback func() T) legResult[T] {
	l := a.logger.With(zap.String("leg", string(leg)))
	key := "market:" + string(leg)

	done := func(v T, source string) legResult[T] {
		a.metrics.RecordLeg(string(leg), source)
		if source == SourcePrimary || source == SourceSecondary {
			a.remember(ctx, key, v)
		}
		return legResult[T]{value: v, source: source}
	}

	if primary != nil {
		v, err := callProvider(ctx, a, leg, SourcePrimary, primary)
		if err == nil {
			return done(v, SourcePrimary)
		}
		l.Warn("Primary provider failed", zap.Error(err))
	}

	if a.store != nil {
		var cached T
		err := cache.GetJSON(ctx, a.store, key, &cached)
		if err == nil {
			l.Info("Serving last good value from cache")
			return done(cached, SourceCache)
		}
		if !errors.Is(err, cache.ErrMiss) {
			l.Warn("Cache read failed", zap.Error(err))
		}
	}

	if secondary != nil {
		v, err := callProvider(ctx, a, leg, SourceSecondary, secondary)
		if err == nil {
			return done(v, SourceSecondary)
		}
		l.Warn("Secondary provider failed", zap.Error(err))
	}

	l.Warn("All sources failed, using static default")
	return done(fallback(), SourceDefault)
}

func callProvider[T any](ctx context.Context, a *Aggregator, leg Leg, source string, f fetcher[T]) (T, error) {
	name := string(leg) + "_" + source
	opts := append([]retry.Option{
		retry.WithName(name),
		retry.WithObserver(a.metrics.RetryObserver(name)),
	}, a.retryOpts...)
	return retry.Do[T](ctx, f, opts...)
}

func (a *Aggregator) remember(ctx context.Context, key string, v any) {
	if a.store == nil {
		return
	}
	if err := cache.SetJSON(ctx, a.store, key, v, a.cacheTTL); err != nil {
		a.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (a *Aggregator) cryptoFetcher(p CryptoQuoteProvider) fetcher[map[string]Quote] {
	if p == nil {
		return nil
	}
	return func(ctx context.Context) (map[string]Quote, error) {
		return p.SimplePrice(ctx, a.coinIDs)
	}
}

func (a *Aggregator) metalFetcher(p SpotPriceProvider) fetcher[Quote] {
	if p == nil {
		return nil
	}
	return func(ctx context.Context) (Quote, error) {
		return p.SpotPrice(ctx, a.metalPair)
	}
}

func (a *Aggregator) sentimentFetcher() fetcher[Sentiment] {
	p := a.providers.Sentiment
	if p == nil {
		return nil
	}
	return p.LatestSentiment
}

func (a *Aggregator) newsFetcher() fetcher[[]NewsItem] {
	p := a.providers.News
	if p == nil {
		return nil
	}
	return func(ctx context.Context) ([]NewsItem, error) {
		items, err := p.LatestNews(ctx, a.newsQuery, a.newsLanguage, a.newsCountry)
		if err != nil {
			return nil, err
		}
		return FilterNews(items), nil
	}
}

func (a *Aggregator) defaultCrypto() map[string]Quote {
	quotes := make(map[string]Quote, len(a.coinIDs))
	for _, id := range a.coinIDs {
		quotes[id] = Quote{}
	}
	return quotes
}

func (a *Aggregator) defaultSentiment() Sentiment {
	return Sentiment{Value: neutralSentiment, Label: "Neutral", AsOf: a.now().UTC()}
}

// FilterNews keeps items with both a title and a summary, up to MaxNewsItems, in order.
func FilterNews(items []NewsItem) []NewsItem {
	out := make([]NewsItem, 0, min(len(items), MaxNewsItems))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" || strings.TrimSpace(it.Summary) == "" {
			continue
		}
		out = append(out, it)
		if len(out) == MaxNewsItems {
			break
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
