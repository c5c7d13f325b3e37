package tileupdate

import "github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"

// copyHeightIn stages the request's slice of the shared height array.
func (e *Engine) copyHeightIn(buf *cmdbuf.Buffer, req *Request, t jobTargets) {
	buf.CopySlice(req.HeightTarget, req.Slice, t.height, 0)
}

// copyHeightOut writes the staged height back to the request's slice only.
func (e *Engine) copyHeightOut(buf *cmdbuf.Buffer, req *Request, t jobTargets) {
	buf.CopySlice(t.height, 0, req.HeightTarget, req.Slice)
}
