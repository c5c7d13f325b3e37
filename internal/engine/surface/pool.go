// Package surface hands out transient GPU surfaces for tile jobs.
//
// Acquisition and release are recorded into a command buffer; the pool keeps
// the bookkeeping on the recording side so budgets are enforced before any
// command reaches the GPU.
package surface

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
)

// Pool errors.
var (
	// ErrExhausted is returned when an acquisition would exceed the budget.
	ErrExhausted = errors.New("surface: pool exhausted")

	// ErrInvalidDesc is returned for descriptors that cannot be allocated.
	ErrInvalidDesc = errors.New("surface: invalid descriptor")

	// ErrUnknownSurface is returned when releasing a handle the pool did not hand out.
	ErrUnknownSurface = errors.New("surface: unknown surface")
)

// Budget bounds the live transient surfaces. Zero fields are unbounded.
type Budget struct {
	MaxLive  int
	MaxBytes int64
}

// Pool tracks live transient surfaces.
// It is not safe for concurrent use; a pool belongs to one recorder.
type Pool struct {
	budget    Budget
	next      uint32
	live      map[cmdbuf.TextureID]cmdbuf.SurfaceDesc
	liveBytes int64
	peak      int
	acquired  uint64
}

// NewPool creates a pool with the given budget.
func NewPool(b Budget) *Pool {
	return &Pool{
		budget: b,
		live:   make(map[cmdbuf.TextureID]cmdbuf.SurfaceDesc),
	}
}

// Acquire records the allocation of a surface and returns its handle.
func (p *Pool) Acquire(buf *cmdbuf.Buffer, desc cmdbuf.SurfaceDesc) (cmdbuf.TextureID, error) {
	if !desc.Valid() {
		return cmdbuf.NoTexture, fmt.Errorf("%w: %+v", ErrInvalidDesc, desc)
	}
	if p.budget.MaxLive > 0 && len(p.live)+1 > p.budget.MaxLive {
		return cmdbuf.NoTexture, fmt.Errorf("%w: %d live surfaces", ErrExhausted, len(p.live))
	}
	size := desc.Bytes()
	if p.budget.MaxBytes > 0 && p.liveBytes+size > p.budget.MaxBytes {
		return cmdbuf.NoTexture, fmt.Errorf("%w: %d + %d bytes over %d",
			ErrExhausted, p.liveBytes, size, p.budget.MaxBytes)
	}

	p.next++
	id := cmdbuf.TemporaryID(p.next)
	p.live[id] = desc
	p.liveBytes += size
	p.acquired++
	if len(p.live) > p.peak {
		p.peak = len(p.live)
	}

	buf.GetTemporary(id, desc)
	return id, nil
}

// Release records the release of a surface.
func (p *Pool) Release(buf *cmdbuf.Buffer, id cmdbuf.TextureID) error {
	desc, ok := p.live[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSurface, id)
	}
	delete(p.live, id)
	p.liveBytes -= desc.Bytes()

	buf.ReleaseTemporary(id)
	return nil
}

// Live returns the number of surfaces acquired and not yet released.
func (p *Pool) Live() int { return len(p.live) }

// LiveBytes returns the footprint of live surfaces.
func (p *Pool) LiveBytes() int64 { return p.liveBytes }

// Peak returns the highest number of simultaneously live surfaces.
func (p *Pool) Peak() int { return p.peak }

// Acquired returns the total number of acquisitions.
func (p *Pool) Acquired() uint64 { return p.acquired }

// Scope groups the surfaces of one job. Close releases every surface the
// scope acquired, newest first, and is safe to call more than once.
type Scope struct {
	pool   *Pool
	buf    *cmdbuf.Buffer
	ids    []cmdbuf.TextureID
	closed bool
}

// Scope opens a scope recording into buf.
func (p *Pool) Scope(buf *cmdbuf.Buffer) *Scope {
	return &Scope{pool: p, buf: buf}
}

// Acquire allocates a surface owned by the scope.
func (s *Scope) Acquire(desc cmdbuf.SurfaceDesc) (cmdbuf.TextureID, error) {
	if s.closed {
		return cmdbuf.NoTexture, errors.New("surface: scope closed")
	}
	id, err := s.pool.Acquire(s.buf, desc)
	if err != nil {
		return cmdbuf.NoTexture, err
	}
	s.ids = append(s.ids, id)
	return id, nil
}

// Len returns the number of surfaces held by the scope.
func (s *Scope) Len() int { return len(s.ids) }

// Close releases all surfaces of the scope.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	for i := len(s.ids) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.pool.Release(s.buf, s.ids[i]))
	}
	s.ids = nil
	return err
}
