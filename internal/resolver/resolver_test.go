package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/cache"
	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/normalizer"
	"mcp-prenatal-log/internal/provider"
	"mcp-prenatal-log/internal/storage"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// fakeSource answers from a fixed document or error, optionally after a delay.
type fakeSource struct {
	name  string
	doc   string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeSource) Name() string                 { return f.name }
func (f *fakeSource) Schema() normalizer.SchemaTag { return normalizer.Estimate }

func (f *fakeSource) answer(ctx context.Context) (provider.Record, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return provider.Record{}, ctx.Err()
		}
	}
	if f.err != nil {
		return provider.Record{}, f.err
	}
	return provider.Record{ID: f.name + "-1", Document: []byte(f.doc)}, nil
}

func (f *fakeSource) LookupBarcode(ctx context.Context, code string) (provider.Record, error) {
	return f.answer(ctx)
}

func (f *fakeSource) SearchName(ctx context.Context, text string) ([]provider.Record, error) {
	rec, err := f.answer(ctx)
	if err != nil {
		return nil, err
	}
	return []provider.Record{rec}, nil
}

const ironDoc = `{"name":"Spinach","reference_quantity":100,"reference_unit":"g","nutrients":{"iron":{"amount":2.7,"unit":"mg"}}}`

func newResolver(sources ...provider.Source) *Resolver {
	c := cache.NewResolutionCache(newMemKV(), zap.NewNop())
	return New(c, sources, Options{TTL: time.Hour, SourceTimeout: 100 * time.Millisecond}, zap.NewNop())
}

func nameRef(t *testing.T, name string) models.FoodReference {
	t.Helper()
	ref, err := models.NewNameReference(name)
	require.NoError(t, err)
	return ref
}

func TestResolve_PersistedCacheSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.db")
	ref := nameRef(t, "Spinach")
	open := func(src provider.Source) (*Resolver, *storage.SQLiteStorage) {
		store, err := storage.NewSQLiteStorage(path)
		require.NoError(t, err)
		c := cache.NewResolutionCache(store, zap.NewNop())
		return New(c, []provider.Source{src}, Options{TTL: time.Hour, SourceTimeout: time.Second}, zap.NewNop()), store
	}

	before := &fakeSource{name: "primary", doc: ironDoc}
	r, store := open(before)
	first, err := r.Resolve(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	after := &fakeSource{name: "primary", doc: ironDoc}
	r, store = open(after)
	defer store.Close()
	again, err := r.Resolve(ctx, ref)
	require.NoError(t, err)

	assert.Equal(t, first.ProfileID, again.ProfileID)
	assert.Equal(t, int32(0), after.calls.Load())
	_, ok := again.Nutrients.Amount(models.Folate)
	assert.False(t, ok)
}

func TestResolve_CachesProfile(t *testing.T) {
	src := &fakeSource{name: "primary", doc: ironDoc}
	r := newResolver(src)
	ref := nameRef(t, "Spinach")

	first, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "primary", first.SourceName)
	assert.Equal(t, "primary-1", first.SourceID)
	assert.NotEmpty(t, first.ProfileID)
	iron, ok := first.Nutrients.Amount(models.Iron)
	require.True(t, ok)
	assert.Equal(t, 2.7, iron)

	second, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, first.ProfileID, second.ProfileID)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestResolve_ConcurrentCallersShareOneChainRun(t *testing.T) {
	src := &fakeSource{name: "primary", doc: ironDoc, delay: 30 * time.Millisecond}
	r := newResolver(src)
	ref := nameRef(t, "lentils")

	const callers = 20
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := r.Resolve(context.Background(), ref)
			ids[i], errs[i] = p.ProfileID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestResolve_PrimaryTimeoutFallsBackWithoutMerging(t *testing.T) {
	primary := &fakeSource{name: "primary", doc: `{"nutrients":{"folate":{"amount":100,"unit":"mcg"}}}`, delay: time.Second}
	secondary := &fakeSource{name: "secondary", doc: ironDoc}
	r := newResolver(primary, secondary)

	p, err := r.Resolve(context.Background(), nameRef(t, "spinach"))
	require.NoError(t, err)
	assert.Equal(t, "secondary", p.SourceName)
	_, ok := p.Nutrients.Amount(models.Folate)
	assert.False(t, ok, "nothing from the timed out source may leak in")
}

func TestResolve_AllNotFound(t *testing.T) {
	r := newResolver(
		&fakeSource{name: "a", err: provider.ErrNotFound},
		&fakeSource{name: "b", err: provider.ErrUnsupported},
	)
	_, err := r.Resolve(context.Background(), nameRef(t, "dragonfruit"))
	assert.ErrorIs(t, err, ErrFoodNotFound)
}

func TestResolve_Unavailable(t *testing.T) {
	r := newResolver(
		&fakeSource{name: "a", err: errors.New("connection refused")},
		&fakeSource{name: "b", err: errors.New("status 503")},
	)
	_, err := r.Resolve(context.Background(), nameRef(t, "spinach"))
	assert.ErrorIs(t, err, ErrResolutionUnavailable)

	mixed := newResolver(
		&fakeSource{name: "a", err: provider.ErrNotFound},
		&fakeSource{name: "b", err: errors.New("timeout")},
	)
	_, err = mixed.Resolve(context.Background(), nameRef(t, "spinach"))
	assert.ErrorIs(t, err, ErrResolutionUnavailable)
}

func TestResolve_MalformedRecordContinuesChain(t *testing.T) {
	bad := &fakeSource{name: "bad", doc: `[1,2,3]`}
	good := &fakeSource{name: "good", doc: ironDoc}
	r := newResolver(bad, good)

	p, err := r.Resolve(context.Background(), nameRef(t, "spinach"))
	require.NoError(t, err)
	assert.Equal(t, "good", p.SourceName)
}

func TestResolve_FailuresAreNotCached(t *testing.T) {
	src := &fakeSource{name: "a", err: errors.New("connection refused")}
	r := newResolver(src)
	ref := nameRef(t, "spinach")

	_, err := r.Resolve(context.Background(), ref)
	require.Error(t, err)

	src.err = nil
	src.doc = ironDoc
	p, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "a", p.SourceName)
}

func TestResolve_BarcodeUsesLookup(t *testing.T) {
	src := &fakeSource{name: "primary", doc: ironDoc}
	r := newResolver(src)
	ref, err := models.NewBarcodeReference("3017620422003")
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ref, p.Reference)
	assert.Equal(t, []string{"primary"}, r.Sources())
}
