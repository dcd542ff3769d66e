package geo

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls  atomic.Int32
	points map[string]Point
	err    error
	delay  time.Duration
}

func (f *fakeProvider) Lookup(ctx context.Context, query string) (Point, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Point{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Point{}, f.err
	}
	p, ok := f.points[query]
	if !ok {
		return Point{}, ErrNotFound
	}
	return p, nil
}

func TestDistanceMiles(t *testing.T) {
	seattle := Point{Lat: 47.6, Lng: -122.3}
	la := Point{Lat: 34.0, Lng: -118.2}

	d := DistanceMiles(seattle, la)
	assert.InDelta(t, 960, d, 20)
	assert.InDelta(t, d, DistanceMiles(la, seattle), 1e-9)
	assert.Zero(t, DistanceMiles(seattle, seattle))
}

func TestParseCoordinates(t *testing.T) {
	p, ok := ParseCoordinates(" 47.6, -122.3 ")
	require.True(t, ok)
	assert.Equal(t, Point{Lat: 47.6, Lng: -122.3}, p)

	for _, in := range []string{"", "98101", "Seattle, WA", "91,0", "0,181", "abc,def",
		"NaN,NaN", "nan,0", "0,NaN", "Inf,0", "-inf,10", "1e400,0"} {
		_, ok := ParseCoordinates(in)
		assert.False(t, ok, in)
	}
}

func TestResolver_NonFiniteCoordinatesFailOpen(t *testing.T) {
	provider := &fakeProvider{points: map[string]Point{
		"nan,0":    {Lat: math.NaN(), Lng: 0},
		"atlantis": {Lat: 0, Lng: math.Inf(1)},
	}}
	r := NewResolver(provider, nil, Options{})

	_, ok := r.Resolve(context.Background(), "nan,0")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "Atlantis")
	assert.False(t, ok)
}

func TestParseNominatim_RejectsNonFinite(t *testing.T) {
	_, err := parseNominatim([]byte(`[{"lat":"NaN","lon":"0"}]`))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "seattle wa", Normalize("  Seattle   WA "))
}

func TestResolver_CoordinatesSkipProvider(t *testing.T) {
	provider := &fakeProvider{}
	r := NewResolver(provider, nil, Options{})

	p, ok := r.Resolve(context.Background(), "34.0,-118.2")
	require.True(t, ok)
	assert.Equal(t, Point{Lat: 34.0, Lng: -118.2}, p)
	assert.Zero(t, provider.calls.Load())
}

func TestResolver_CachesByNormalizedInput(t *testing.T) {
	provider := &fakeProvider{points: map[string]Point{"seattle wa": {Lat: 47.6, Lng: -122.3}}}
	r := NewResolver(provider, nil, Options{})

	_, ok := r.Resolve(context.Background(), "Seattle WA")
	require.True(t, ok)
	_, ok = r.Resolve(context.Background(), "  seattle   wa")
	require.True(t, ok)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestResolver_FailsOpen(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	r := NewResolver(provider, nil, Options{})

	_, ok := r.Resolve(context.Background(), "98101")
	assert.False(t, ok)

	_, ok = r.Resolve(context.Background(), "   ")
	assert.False(t, ok)
}

func TestResolver_Timeout(t *testing.T) {
	provider := &fakeProvider{delay: time.Second, points: map[string]Point{"98101": {}}}
	r := NewResolver(provider, nil, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, ok := r.Resolve(context.Background(), "98101")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResolver_CollapsesConcurrentLookups(t *testing.T) {
	provider := &fakeProvider{
		delay:  50 * time.Millisecond,
		points: map[string]Point{"portland": {Lat: 45.5, Lng: -122.7}},
	}
	r := NewResolver(provider, nil, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Resolve(context.Background(), "Portland")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, provider.calls.Load(), int32(2))
}

func TestParseNominatim(t *testing.T) {
	p, err := parseNominatim([]byte(`[{"lat":"47.6062","lon":"-122.3321","display_name":"Seattle"}]`))
	require.NoError(t, err)
	assert.InDelta(t, 47.6062, p.Lat, 1e-9)
	assert.InDelta(t, -122.3321, p.Lng, 1e-9)

	_, err = parseNominatim([]byte(`[]`))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = parseNominatim([]byte(`not json`))
	assert.Error(t, err)
}
