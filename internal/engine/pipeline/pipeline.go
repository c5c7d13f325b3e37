// Package pipeline drives per-frame work: it owns the frame's command
// sequence and invokes every registered runnable once per frame.
package pipeline

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/tileupdate"
	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
	"github.com/Faultbox/midgard-vt/internal/logger"
)

// Runnable is invoked once per frame with the frame's command context.
type Runnable interface {
	ProcessPendingTiles(ctx tileupdate.CommandContext) error
}

// FrameContext implements tileupdate.CommandContext on top of a culler and
// an executor.
type FrameContext struct {
	buf       *cmdbuf.Buffer
	culler    visibility.Culler
	exec      cmdbuf.Executor
	submitted int
}

// NewFrameContext creates a context recording into a fresh buffer.
func NewFrameContext(name string, culler visibility.Culler, exec cmdbuf.Executor) *FrameContext {
	return &FrameContext{
		buf:    cmdbuf.NewBuffer(name),
		culler: culler,
		exec:   exec,
	}
}

// Buffer implements tileupdate.CommandContext.
func (c *FrameContext) Buffer() *cmdbuf.Buffer { return c.buf }

// Cull implements tileupdate.CommandContext.
func (c *FrameContext) Cull(vp viewpoint.Viewpoint, layerMask uint32) (*visibility.Result, bool) {
	return c.culler.Cull(vp, layerMask)
}

// Describe implements tileupdate.CommandContext. Executors that keep no
// texture layouts know no textures.
func (c *FrameContext) Describe(id cmdbuf.TextureID) (width, height, layers int, format cmdbuf.Format, err error) {
	d, ok := c.exec.(cmdbuf.Describer)
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("%w: %s", cmdbuf.ErrUnknownTexture, id)
	}
	return d.Describe(id)
}

// Submit plays the recorded commands on the executor and empties the buffer.
// The buffer is emptied even when execution fails.
func (c *FrameContext) Submit() error {
	defer c.buf.Reset()
	c.submitted++
	return cmdbuf.Execute(c.buf, c.exec)
}

// Submitted returns how many times Submit was called.
func (c *FrameContext) Submitted() int { return c.submitted }

// Scheduler holds direct handles to its runnables; there is no global registry.
type Scheduler struct {
	culler    visibility.Culler
	exec      cmdbuf.Executor
	runnables []Runnable
	frame     uint64
	log       *zap.Logger
}

// NewScheduler creates a scheduler submitting to exec.
func NewScheduler(culler visibility.Culler, exec cmdbuf.Executor, log *zap.Logger) *Scheduler {
	return &Scheduler{culler: culler, exec: exec, log: logger.OrNop(log)}
}

// Add registers a runnable. Runnables run in registration order.
func (s *Scheduler) Add(r Runnable) {
	s.runnables = append(s.runnables, r)
}

// Frame runs every runnable once. A failing runnable does not stop the
// others; all failures are returned together.
func (s *Scheduler) Frame() error {
	s.frame++
	ctx := NewFrameContext(fmt.Sprintf("frame %d", s.frame), s.culler, s.exec)

	var err error
	for i, r := range s.runnables {
		if rerr := r.ProcessPendingTiles(ctx); rerr != nil {
			s.log.Error("runnable failed", zap.Uint64("frame", s.frame), zap.Int("runnable", i), zap.Error(rerr))
			err = multierr.Append(err, rerr)
		}
	}
	return err
}

// FrameCount returns the number of frames run.
func (s *Scheduler) FrameCount() uint64 { return s.frame }
