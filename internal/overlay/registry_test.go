package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/airzone/pkg/vworld"
)

type stubSource struct {
	mu    sync.Mutex
	calls map[Kind]int
	fail  map[Kind]error
	delay time.Duration
	// release, when set, holds every load until it is closed.
	release chan struct{}
}

func newStubSource() *stubSource {
	return &stubSource{calls: map[Kind]int{}, fail: map[Kind]error{}}
}

func (s *stubSource) Load(ctx context.Context, kind Kind, _ vworld.BBox) (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	s.calls[kind]++
	failErr := s.fail[kind]
	delay, release := s.delay, s.release
	s.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if release != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
		}
	}
	poly := geom.NewPolygonFlat(geom.XY, []float64{127, 37, 127.1, 37, 127.1, 37.1, 127, 37}, []int{8})
	return &geojson.FeatureCollection{Features: []*geojson.Feature{
		{ID: string(kind), Geometry: poly, Properties: map[string]interface{}{"popup": "p"}},
	}}, nil
}

func TestRegistry_EnableDisable(t *testing.T) {
	src := newStubSource()
	r := NewRegistry(src, nil)

	o, err := r.Enable(context.Background(), KindProhibited, vworld.KoreaBBox)
	require.NoError(t, err)
	assert.Equal(t, KindProhibited, o.Kind)
	assert.Equal(t, "비행금지구역", o.Label)
	assert.Equal(t, "#d00", o.Style.Color)
	assert.Len(t, o.Features.Features, 1)

	got, ok := r.Active(KindProhibited)
	require.True(t, ok)
	assert.Same(t, o, got)

	assert.True(t, r.Disable(KindProhibited))
	assert.False(t, r.Disable(KindProhibited))
	_, ok = r.Active(KindProhibited)
	assert.False(t, ok)
}

func TestRegistry_Toggle(t *testing.T) {
	src := newStubSource()
	r := NewRegistry(src, nil)
	ctx := context.Background()

	o, err := r.Toggle(ctx, KindATZ, vworld.KoreaBBox)
	require.NoError(t, err)
	require.NotNil(t, o)

	o, err = r.Toggle(ctx, KindATZ, vworld.KoreaBBox)
	require.NoError(t, err)
	assert.Nil(t, o)
	_, ok := r.Active(KindATZ)
	assert.False(t, ok)

	_, err = r.Toggle(ctx, KindATZ, vworld.KoreaBBox)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls[KindATZ])
}

func TestRegistry_EnableFailureLeavesDisabled(t *testing.T) {
	src := newStubSource()
	r := NewRegistry(src, nil)
	ctx := context.Background()

	_, err := r.Enable(ctx, KindRestricted, vworld.KoreaBBox)
	require.NoError(t, err)

	src.fail[KindRestricted] = errors.New("upstream down")
	_, err = r.Enable(ctx, KindRestricted, vworld.KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")

	_, ok := r.Active(KindRestricted)
	assert.False(t, ok)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(newStubSource(), nil)
	_, err := r.Enable(context.Background(), KindUAS, vworld.KoreaBBox)
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 4)
	for i, k := range Kinds() {
		assert.Equal(t, k, list[i].Kind)
	}
	assert.True(t, list[3].Enabled)
	assert.Equal(t, 1, list[3].Features)
	assert.False(t, list[0].Enabled)
	assert.Equal(t, "#f90", list[0].Style.Color)
}

func TestRegistry_EnableAll(t *testing.T) {
	src := newStubSource()
	src.fail[KindATZ] = errors.New("boom")
	r := NewRegistry(src, nil)

	src.delay = 50 * time.Millisecond
	r = NewRegistry(src, nil)

	err := r.EnableAll(context.Background(), []Kind{KindRestricted, KindProhibited, KindATZ}, vworld.KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enable atz")

	_, ok := r.Active(KindATZ)
	assert.False(t, ok)
	assert.Equal(t, 1, src.calls[KindATZ])

	for _, k := range []Kind{KindRestricted, KindProhibited} {
		_, ok := r.Active(k)
		assert.True(t, ok, "%s should load despite the atz failure", k)
	}
}

func TestRegistry_DisableDuringLoadWins(t *testing.T) {
	src := newStubSource()
	src.release = make(chan struct{})
	r := NewRegistry(src, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Enable(context.Background(), KindUAS, vworld.KoreaBBox)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls[KindUAS] == 1
	}, time.Second, time.Millisecond)

	assert.False(t, r.Disable(KindUAS))
	close(src.release)

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSuperseded)
	_, ok := r.Active(KindUAS)
	assert.False(t, ok)
}

func TestRegistry_StaleLoadKeepsNewerOverlay(t *testing.T) {
	src := newStubSource()
	src.release = make(chan struct{})
	r := NewRegistry(src, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Enable(context.Background(), KindATZ, vworld.KoreaBBox)
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls[KindATZ] == 1
	}, time.Second, time.Millisecond)

	// a second, immediate load replaces the pending one
	src.mu.Lock()
	pending := src.release
	src.release = nil
	src.mu.Unlock()
	_, err := r.Enable(context.Background(), KindATZ, vworld.KoreaBBox)
	require.NoError(t, err)

	close(pending)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	_, ok := r.Active(KindATZ)
	assert.True(t, ok)
}

func TestRegistry_EnableAllSuccess(t *testing.T) {
	src := newStubSource()
	r := NewRegistry(src, nil)

	require.NoError(t, r.EnableAll(context.Background(), Kinds(), vworld.KoreaBBox))
	for _, k := range Kinds() {
		_, ok := r.Active(k)
		assert.True(t, ok, k)
	}
}

func TestRegistry_ConcurrentToggle(t *testing.T) {
	r := NewRegistry(newStubSource(), nil)
	var wg sync.WaitGroup
	var errs atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Toggle(context.Background(), KindUAS, vworld.KoreaBBox); err != nil && !errors.Is(err, ErrSuperseded) {
				errs.Add(1)
			}
			r.List()
		}()
	}
	wg.Wait()
	// overlapping toggles may supersede each other, but nothing else fails
	assert.Zero(t, errs.Load())
}

func TestOverlay_MarshalJSON(t *testing.T) {
	r := NewRegistry(newStubSource(), nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	o, err := r.Enable(context.Background(), KindProhibited, vworld.BBox{West: 126, South: 37, East: 127, North: 38})
	require.NoError(t, err)

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "FeatureCollection", out["type"])
	assert.Equal(t, "prohibited", out["kind"])
	assert.Equal(t, "비행금지구역", out["label"])
	assert.Equal(t, []interface{}{126.0, 37.0, 127.0, 38.0}, out["bbox"])
	assert.Equal(t, "2026-01-02T03:04:05Z", out["created_at"])
	style := out["style"].(map[string]interface{})
	assert.Equal(t, "#d00", style["color"])
	assert.Len(t, out["features"], 1)
}
