// internal/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/cache"
	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/normalizer"
	"mcp-prenatal-log/internal/provider"
)

var (
	// ErrFoodNotFound means every source answered and none knows the food.
	ErrFoodNotFound = errors.New("food not found")
	// ErrResolutionUnavailable means at least one source could not answer.
	// Retrying later may succeed.
	ErrResolutionUnavailable = errors.New("food resolution unavailable")
)

const (
	DefaultTTL           = 7 * 24 * time.Hour
	DefaultSourceTimeout = 5 * time.Second
)

type Options struct {
	TTL           time.Duration
	SourceTimeout time.Duration
}

// Resolver turns a food reference into a normalized profile, consulting the
// cache first and then each source in priority order.
type Resolver struct {
	cache         *cache.ResolutionCache
	sources       []provider.Source
	ttl           time.Duration
	sourceTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func New(c *cache.ResolutionCache, sources []provider.Source, opts Options, logger *zap.Logger) *Resolver {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Resolver{
		cache:         c,
		sources:       sources,
		ttl:           opts.TTL,
		sourceTimeout: opts.SourceTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Sources returns the configured source names in priority order.
func (r *Resolver) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

func (r *Resolver) Resolve(ctx context.Context, ref models.FoodReference) (models.FoodProfile, error) {
	if profile, ok := r.cache.Get(ctx, ref); ok {
		r.logger.Debug("Resolution cache hit", zap.String("reference", ref.Key()))
		return profile, nil
	}

	return r.cache.Do(ctx, ref, func(ctx context.Context) (models.FoodProfile, error) {
		// a flight that finished just before this one started may have filled it
		if profile, ok := r.cache.Get(ctx, ref); ok {
			return profile, nil
		}
		profile, err := r.resolveChain(ctx, ref)
		if err != nil {
			return models.FoodProfile{}, err
		}
		r.cache.Put(ctx, ref, profile, r.ttl)
		return profile, nil
	})
}

type outcome int

const (
	found outcome = iota
	notFound
	unavailable
)

func (r *Resolver) resolveChain(ctx context.Context, ref models.FoodReference) (models.FoodProfile, error) {
	anyUnavailable := false
	var lastErr error

	for _, src := range r.sources {
		profile, res, err := r.trySource(ctx, src, ref)
		switch res {
		case found:
			r.logger.Info("Resolved food",
				zap.String("reference", ref.Key()),
				zap.String("source", src.Name()),
				zap.Int("known_nutrients", profile.Nutrients.KnownCount()),
			)
			return profile, nil
		case notFound:
			r.logger.Debug("Source does not know food",
				zap.String("reference", ref.Key()),
				zap.String("source", src.Name()),
			)
		case unavailable:
			anyUnavailable = true
			lastErr = err
			r.logger.Warn("Source unavailable, trying next",
				zap.String("reference", ref.Key()),
				zap.String("source", src.Name()),
				zap.Error(err),
			)
		}
	}

	if anyUnavailable {
		return models.FoodProfile{}, fmt.Errorf("%w: %s: %v", ErrResolutionUnavailable, ref.Key(), lastErr)
	}
	return models.FoodProfile{}, fmt.Errorf("%w: %s", ErrFoodNotFound, ref.Key())
}

func (r *Resolver) trySource(ctx context.Context, src provider.Source, ref models.FoodReference) (models.FoodProfile, outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.sourceTimeout)
	defer cancel()

	var rec provider.Record
	var err error
	switch ref.Kind {
	case models.BarcodeReference:
		rec, err = src.LookupBarcode(ctx, ref.Value)
	default:
		var recs []provider.Record
		recs, err = src.SearchName(ctx, ref.Value)
		if err == nil {
			if len(recs) == 0 {
				err = provider.ErrNotFound
			} else {
				rec = recs[0]
			}
		}
	}
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) || errors.Is(err, provider.ErrUnsupported) {
			return models.FoodProfile{}, notFound, nil
		}
		return models.FoodProfile{}, unavailable, err
	}

	norm, err := normalizer.NormalizeRecord(rec.Document, src.Schema())
	if err != nil {
		return models.FoodProfile{}, unavailable, err
	}

	sourceID := norm.SourceID
	if sourceID == "" {
		sourceID = rec.ID
	}
	name := norm.Name
	if name == "" {
		name = ref.Value
	}
	return models.FoodProfile{
		ProfileID:         uuid.NewString(),
		Reference:         ref,
		SourceID:          sourceID,
		SourceName:        src.Name(),
		Name:              name,
		Nutrients:         norm.Nutrients,
		ReferenceQuantity: norm.ReferenceQuantity,
		ReferenceUnit:     norm.ReferenceUnit,
		ServingQuantity:   norm.ServingQuantity,
		ServingUnit:       norm.ServingUnit,
		ResolvedAt:        r.now().UTC(),
	}, found, nil
}
