package tileupdate

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/surface"
	"github.com/Faultbox/midgard-vt/internal/engine/terrain"
	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
	"github.com/Faultbox/midgard-vt/internal/logger"
)

// CommandContext is supplied by the frame scheduler for one invocation.
type CommandContext interface {
	// Buffer returns the command sequence of the frame.
	Buffer() *cmdbuf.Buffer
	// Cull runs the visibility service; false means the viewpoint is unusable.
	Cull(vp viewpoint.Viewpoint, layerMask uint32) (*visibility.Result, bool)
	// Describe reports the layout of a persistent texture.
	cmdbuf.Describer
	// Submit hands the recorded sequence to the GPU.
	Submit() error
}

// HeightClear selects how the height staging surface is cleared before
// the displacement pass.
type HeightClear int

const (
	// HeightClearZero clears height and depth, so the slice ends up holding
	// only what the displacement pass drew.
	HeightClearZero HeightClear = iota
	// HeightClearPreserve clears depth only; displacement geometry draws over
	// the height copied in from the slice.
	HeightClearPreserve
)

// ParseHeightClear maps the config names "zero" and "preserve".
func ParseHeightClear(s string) (HeightClear, error) {
	switch s {
	case "zero", "":
		return HeightClearZero, nil
	case "preserve":
		return HeightClearPreserve, nil
	default:
		return 0, fmt.Errorf("tileupdate: unknown height clear mode %q", s)
	}
}

// Options configures an Engine.
type Options struct {
	ColorResolution  int
	HeightResolution int
	DecalTag         string
	DisplacementTag  string
	QueueMin         int
	QueueMax         int
	HeightClear      HeightClear
}

// DefaultOptions returns the stock tile layout.
func DefaultOptions() Options {
	return Options{
		ColorResolution:  256,
		HeightResolution: 256,
		DecalTag:         "TerrainDecal",
		DisplacementTag:  "TerrainDisplacement",
		QueueMin:         1000,
		QueueMax:         5000,
	}
}

func (o Options) validate() error {
	if o.ColorResolution <= 0 || o.HeightResolution <= 0 {
		return fmt.Errorf("tileupdate: invalid resolution %d/%d", o.ColorResolution, o.HeightResolution)
	}
	if o.DecalTag == "" || o.DisplacementTag == "" {
		return errors.New("tileupdate: pass tags must be set")
	}
	return nil
}

// Stats are cumulative counters of an Engine.
type Stats struct {
	Passes     uint64 // Non-empty processing passes
	Processed  uint64 // Requests that recorded their full job
	Skipped    uint64 // Requests dropped for an unusable viewpoint or invalid fields
	Aborted    uint64 // Requests dropped because transient surfaces were unavailable
	Dispatches uint64 // Composite dispatches recorded
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeAborted
)

// Engine turns queued requests into ordered GPU work. Producers may call
// Enqueue, Pending and Stats concurrently; ProcessPendingTiles must be
// called from one goroutine, once per frame.
type Engine struct {
	opts    Options
	queue   Queue
	pool    *surface.Pool
	terrain terrain.Data
	log     *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates an engine drawing transient surfaces from pool.
func New(opts Options, pool *surface.Pool, td terrain.Data, log *zap.Logger) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.New("tileupdate: nil surface pool")
	}
	if td == nil {
		return nil, errors.New("tileupdate: nil terrain data")
	}
	return &Engine{
		opts:    opts,
		pool:    pool,
		terrain: td,
		log:     logger.OrNop(log),
	}, nil
}

// Enqueue appends a request for the next processing pass.
func (e *Engine) Enqueue(r Request) {
	e.queue.Enqueue(r)
}

// Pending returns the number of queued requests.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ProcessPendingTiles records every queued request into ctx in queue order
// and submits once. An empty queue records nothing and does not submit.
// Per-request failures are absorbed; only a submit failure is returned.
func (e *Engine) ProcessPendingTiles(ctx CommandContext) error {
	reqs := e.queue.Drain()
	if len(reqs) == 0 {
		return nil
	}

	buf := ctx.Buffer()
	var processed, skipped, aborted int
	for i := range reqs {
		switch e.processRequest(ctx, buf, &reqs[i]) {
		case outcomeProcessed:
			processed++
		case outcomeSkipped:
			skipped++
		case outcomeAborted:
			aborted++
		}
	}

	e.mu.Lock()
	e.stats.Passes++
	e.stats.Processed += uint64(processed)
	e.stats.Skipped += uint64(skipped)
	e.stats.Aborted += uint64(aborted)
	// One composite dispatch per recorded job.
	e.stats.Dispatches += uint64(processed)
	e.mu.Unlock()

	e.log.Debug("tile pass recorded",
		zap.Int("requests", len(reqs)),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
		zap.Int("aborted", aborted),
		zap.Int("commands", buf.Len()),
	)

	if err := ctx.Submit(); err != nil {
		return fmt.Errorf("submitting tile updates: %w", err)
	}
	return nil
}

// jobTargets are the transient surfaces of one request.
type jobTargets struct {
	height  cmdbuf.TextureID
	albedo  cmdbuf.TextureID
	normal  cmdbuf.TextureID
	surface cmdbuf.TextureID
}

func (e *Engine) processRequest(ctx CommandContext, buf *cmdbuf.Buffer, req *Request) (result outcome) {
	if err := req.Validate(); err != nil {
		e.log.Debug("tile request dropped", zap.Error(err))
		return outcomeSkipped
	}
	if err := e.checkTargets(ctx, req); err != nil {
		e.log.Warn("tile request dropped", zap.Int("slice", req.Slice), zap.Error(err))
		return outcomeSkipped
	}

	vis, ok := ctx.Cull(req.Viewpoint(), req.VisibilityMask)
	if !ok {
		e.log.Debug("tile request skipped, viewpoint unusable",
			zap.Int("slice", req.Slice),
			zap.Uint32("mask", req.VisibilityMask),
		)
		return outcomeSkipped
	}

	mark := buf.Len()
	scope := e.pool.Scope(buf)
	defer func() {
		if err := scope.Close(); err != nil {
			e.log.Error("releasing transient surfaces", zap.Int("slice", req.Slice), zap.Error(err))
		}
		if result == outcomeAborted {
			// Nothing of an aborted job reaches the GPU.
			buf.Rewind(mark)
		}
	}()

	t, err := e.acquireTargets(scope)
	if err != nil {
		e.log.Warn("tile request aborted",
			zap.Int("slice", req.Slice),
			zap.Error(err),
		)
		return outcomeAborted
	}

	buf.SetViewProjection(vis.Setup.View, vis.Setup.Projection)

	e.copyHeightIn(buf, req, t)
	e.drawDisplacement(buf, vis, req, t)
	e.copyHeightOut(buf, req, t)
	e.drawDecals(buf, vis, req, t)
	e.composite(buf, req, t)

	e.log.Debug("tile request recorded", zap.Int("slice", req.Slice), zap.Int("visible", len(vis.Visible)))
	return outcomeProcessed
}

// checkTargets rejects requests whose slice or target layout would fail on
// the device, so one bad request cannot stop the rest of the pass.
func (e *Engine) checkTargets(d cmdbuf.Describer, req *Request) error {
	targets := []struct {
		id  cmdbuf.TextureID
		res int
	}{
		{req.AlbedoTarget, e.opts.ColorResolution},
		{req.NormalTarget, e.opts.ColorResolution},
		{req.SurfaceTarget, e.opts.ColorResolution},
		{req.HeightTarget, e.opts.HeightResolution},
	}
	for _, t := range targets {
		w, h, layers, format, err := d.Describe(t.id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if req.Slice >= layers {
			return fmt.Errorf("%w: slice %d of %s with %d layers", ErrInvalidRequest, req.Slice, t.id, layers)
		}
		if w != t.res || h != t.res {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrInvalidRequest, t.id, w, h, t.res, t.res)
		}
		if t.id == req.HeightTarget && format != cmdbuf.FormatR16F {
			return fmt.Errorf("%w: height %s is %s, want %s", ErrInvalidRequest, t.id, format, cmdbuf.FormatR16F)
		}
	}
	return nil
}

func (e *Engine) acquireTargets(scope *surface.Scope) (jobTargets, error) {
	var t jobTargets
	var err error
	if t.height, err = scope.Acquire(surface.HeightStaging(e.opts.HeightResolution)); err != nil {
		return t, fmt.Errorf("height staging: %w", err)
	}
	if t.albedo, err = scope.Acquire(surface.AlbedoStaging(e.opts.ColorResolution)); err != nil {
		return t, fmt.Errorf("albedo staging: %w", err)
	}
	if t.normal, err = scope.Acquire(surface.NormalStaging(e.opts.ColorResolution)); err != nil {
		return t, fmt.Errorf("normal staging: %w", err)
	}
	if t.surface, err = scope.Acquire(surface.SurfaceStaging(e.opts.ColorResolution)); err != nil {
		return t, fmt.Errorf("surface staging: %w", err)
	}
	return t, nil
}
