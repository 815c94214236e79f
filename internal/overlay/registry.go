package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/airzone/pkg/vworld"
)

// Source loads the features of one overlay kind within bbox.
type Source interface {
	Load(ctx context.Context, kind Kind, bbox vworld.BBox) (*geojson.FeatureCollection, error)
}

// Overlay is an active map layer.
type Overlay struct {
	Kind      Kind
	Label     string
	Style     Style
	BBox      vworld.BBox
	CreatedAt time.Time
	Features  *geojson.FeatureCollection
}

// MarshalJSON emits the overlay as a GeoJSON FeatureCollection with kind,
// label, style, bbox and created_at as foreign members.
func (o *Overlay) MarshalJSON() ([]byte, error) {
	fc := o.Features
	if fc == nil {
		fc = &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	}
	raw, err := json.Marshal(fc)
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, err
	}
	for key, v := range map[string]interface{}{
		"kind":       o.Kind,
		"label":      o.Label,
		"style":      o.Style,
		"bbox":       []float64{o.BBox.West, o.BBox.South, o.BBox.East, o.BBox.North},
		"created_at": o.CreatedAt,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		members[key] = b
	}
	return json.Marshal(members)
}

// Status describes one kind in the registry.
type Status struct {
	Kind     Kind   `json:"kind"`
	Label    string `json:"label"`
	Style    Style  `json:"style"`
	Enabled  bool   `json:"enabled"`
	Features int    `json:"features"`
}

// Registry owns the active overlay for each kind. A kind is either
// disabled or has exactly one active overlay.
type Registry struct {
	source Source
	styles Styles
	now    func() time.Time

	mu     sync.RWMutex
	active map[Kind]*Overlay
	gen    map[Kind]uint64 // bumped by every Enable and Disable
}

// NewRegistry creates an empty registry backed by src.
func NewRegistry(src Source, styles Styles) *Registry {
	if styles == nil {
		styles = NewStyles(nil)
	}
	return &Registry{
		source: src,
		styles: styles,
		now:    time.Now,
		active: make(map[Kind]*Overlay),
		gen:    make(map[Kind]uint64),
	}
}

// ErrSuperseded is returned by Enable when a later Enable or Disable of the
// same kind happened while the load was in flight. The stale result is
// discarded.
var ErrSuperseded = errors.New("overlay: superseded by a newer request")

// Enable loads kind and makes it active, replacing any previous overlay.
// On failure the kind is left disabled.
func (r *Registry) Enable(ctx context.Context, kind Kind, bbox vworld.BBox) (*Overlay, error) {
	r.mu.Lock()
	r.gen[kind]++
	gen := r.gen[kind]
	r.mu.Unlock()

	fc, err := r.source.Load(ctx, kind, bbox)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen[kind] != gen {
		zap.L().Debug("overlay: discarding stale load", zap.String("kind", string(kind)))
		return nil, eris.Wrapf(ErrSuperseded, "overlay: enable %s", kind)
	}

	if err != nil {
		delete(r.active, kind)
		zap.L().Error("overlay: load failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "overlay: enable %s", kind)
	}
	if fc == nil {
		fc = &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	}

	o := &Overlay{
		Kind:      kind,
		Label:     kind.Label(),
		Style:     r.styles.For(kind),
		BBox:      bbox,
		CreatedAt: r.now(),
		Features:  fc,
	}
	r.active[kind] = o

	zap.L().Info("overlay: enabled",
		zap.String("kind", string(kind)),
		zap.Int("features", len(fc.Features)),
	)
	return o, nil
}

// Disable removes the active overlay for kind and cancels the effect of any
// load still in flight. It reports whether an overlay was active.
func (r *Registry) Disable(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen[kind]++
	_, ok := r.active[kind]
	delete(r.active, kind)
	return ok
}

// Toggle disables kind when active and enables it otherwise. The returned
// overlay is nil when the kind was disabled.
func (r *Registry) Toggle(ctx context.Context, kind Kind, bbox vworld.BBox) (*Overlay, error) {
	if r.Disable(kind) {
		zap.L().Info("overlay: disabled", zap.String("kind", string(kind)))
		return nil, nil
	}
	return r.Enable(ctx, kind, bbox)
}

// Active returns the overlay for kind, if enabled.
func (r *Registry) Active(kind Kind) (*Overlay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.active[kind]
	return o, ok
}

// List reports every kind in display order.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(Kinds()))
	for _, k := range Kinds() {
		st := Status{Kind: k, Label: k.Label(), Style: r.styles.For(k)}
		if o, ok := r.active[k]; ok {
			st.Enabled = true
			st.Features = len(o.Features.Features)
		}
		out = append(out, st)
	}
	return out
}

// EnableAll loads kinds concurrently. Each load is independent: a kind
// that fails stays disabled without affecting the others, and the first
// error is returned after every load has finished.
func (r *Registry) EnableAll(ctx context.Context, kinds []Kind, bbox vworld.BBox) error {
	var g errgroup.Group
	g.SetLimit(4)
	for _, k := range kinds {
		g.Go(func() error {
			_, err := r.Enable(ctx, k, bbox)
			return err
		})
	}
	return g.Wait()
}
