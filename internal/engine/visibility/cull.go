package visibility

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
	"github.com/Faultbox/midgard-vt/internal/logger"
)

// Culler is the visibility service: it returns the renderers relevant to a
// viewpoint, or false when no culling volume can be derived.
type Culler interface {
	Cull(vp viewpoint.Viewpoint, layerMask uint32) (*Result, bool)
}

// Result is the outcome of one culling query.
type Result struct {
	Setup   viewpoint.Setup
	Mask    uint32
	Visible []*Renderer
}

// Filter restricts a draw to renderers with a pass tag, a render queue
// range and matching layers.
type Filter struct {
	Tag                string
	QueueMin           int
	QueueMax           int
	LayerMask          uint32
	RenderingLayerMask uint32
}

// Accepts reports whether r passes the filter.
func (f Filter) Accepts(r *Renderer) bool {
	return r.Queue >= f.QueueMin && r.Queue <= f.QueueMax &&
		f.LayerMask&r.LayerBit() != 0 &&
		f.RenderingLayerMask&r.RenderingLayers != 0 &&
		r.HasTag(f.Tag)
}

// Select returns the visible renderers passing f sorted by render queue.
// Renderers in the same queue keep scene order.
func (res *Result) Select(f Filter) []*Renderer {
	if res == nil {
		return nil
	}
	var out []*Renderer
	for _, r := range res.Visible {
		if f.Accepts(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Queue < out[j].Queue })
	return out
}

// SceneCuller culls a Scene against orthographic viewpoints. Culling runs
// whether or not the capture camera is active anywhere else.
type SceneCuller struct {
	scene *Scene
	log   *zap.Logger
}

// NewSceneCuller creates a culler over scene.
func NewSceneCuller(scene *Scene, log *zap.Logger) *SceneCuller {
	return &SceneCuller{scene: scene, log: logger.OrNop(log)}
}

// Cull implements Culler.
func (c *SceneCuller) Cull(vp viewpoint.Viewpoint, layerMask uint32) (*Result, bool) {
	setup, err := vp.Setup()
	if err != nil {
		c.log.Debug("no culling parameters", zap.Error(err))
		return nil, false
	}

	res := &Result{Setup: setup, Mask: layerMask}
	for _, r := range c.scene.renderers {
		if layerMask&r.LayerBit() == 0 {
			continue
		}
		if !setup.Frustum.IntersectsAABB(r.Bounds.Min, r.Bounds.Max) {
			continue
		}
		res.Visible = append(res.Visible, r)
	}
	return res, true
}
