package surface

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
)

func countCommands(buf *cmdbuf.Buffer) (gets, releases int) {
	for _, c := range buf.Commands() {
		switch c.(type) {
		case cmdbuf.GetTemporary:
			gets++
		case cmdbuf.ReleaseTemporary:
			releases++
		}
	}
	return gets, releases
}

func TestAcquireRelease(t *testing.T) {
	p := NewPool(Budget{})
	buf := cmdbuf.NewBuffer("test")

	a, err := p.Acquire(buf, AlbedoStaging(16))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := p.Acquire(buf, HeightStaging(16))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a == b {
		t.Fatal("handles should be distinct")
	}
	if !a.IsTemporary() || !b.IsTemporary() {
		t.Error("pool handles should be temporary")
	}
	if p.Live() != 2 {
		t.Errorf("Live = %d, want 2", p.Live())
	}
	wantBytes := AlbedoStaging(16).Bytes() + HeightStaging(16).Bytes()
	if p.LiveBytes() != wantBytes {
		t.Errorf("LiveBytes = %d, want %d", p.LiveBytes(), wantBytes)
	}

	if err := p.Release(buf, a); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := p.Release(buf, a); !errors.Is(err, ErrUnknownSurface) {
		t.Errorf("double release: expected ErrUnknownSurface, got %v", err)
	}
	if err := p.Release(buf, b); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if p.Live() != 0 || p.LiveBytes() != 0 {
		t.Errorf("expected empty pool, live=%d bytes=%d", p.Live(), p.LiveBytes())
	}
	if p.Peak() != 2 {
		t.Errorf("Peak = %d, want 2", p.Peak())
	}
	gets, releases := countCommands(buf)
	if gets != 2 || releases != 2 {
		t.Errorf("recorded %d gets and %d releases, want 2 and 2", gets, releases)
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget Budget
		ok     int
	}{
		{"live cap", Budget{MaxLive: 2}, 2},
		{"byte cap", Budget{MaxBytes: 3 * SurfaceStaging(8).Bytes()}, 3},
		{"unbounded", Budget{}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.budget)
			buf := cmdbuf.NewBuffer("budget")
			for i := 0; i < tt.ok; i++ {
				if _, err := p.Acquire(buf, SurfaceStaging(8)); err != nil {
					t.Fatalf("acquire %d: %v", i, err)
				}
			}
			if tt.budget == (Budget{}) {
				return
			}
			before := buf.Len()
			if _, err := p.Acquire(buf, SurfaceStaging(8)); !errors.Is(err, ErrExhausted) {
				t.Errorf("expected ErrExhausted, got %v", err)
			}
			if buf.Len() != before {
				t.Error("failed acquisition must not record a command")
			}
		})
	}
}

func TestAcquireInvalid(t *testing.T) {
	p := NewPool(Budget{})
	buf := cmdbuf.NewBuffer("invalid")
	if _, err := p.Acquire(buf, cmdbuf.SurfaceDesc{Width: 0, Height: 4, Format: cmdbuf.FormatRGBA8}); !errors.Is(err, ErrInvalidDesc) {
		t.Errorf("expected ErrInvalidDesc, got %v", err)
	}
}

func TestScopeReleasesInReverse(t *testing.T) {
	p := NewPool(Budget{})
	buf := cmdbuf.NewBuffer("scope")
	s := p.Scope(buf)

	var ids []cmdbuf.TextureID
	for _, d := range []cmdbuf.SurfaceDesc{HeightStaging(4), AlbedoStaging(4), NormalStaging(4)} {
		id, err := s.Acquire(d)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		ids = append(ids, id)
	}
	if s.Len() != 3 {
		t.Errorf("scope Len = %d, want 3", s.Len())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if p.Live() != 0 {
		t.Errorf("Live = %d after close", p.Live())
	}
	if _, err := s.Acquire(HeightStaging(4)); err == nil {
		t.Error("expected error acquiring from closed scope")
	}

	cmds := buf.Commands()
	released := cmds[len(cmds)-3:]
	for i, c := range released {
		rel, ok := c.(cmdbuf.ReleaseTemporary)
		if !ok {
			t.Fatalf("command %d is %s, want ReleaseTemporary", i, c.Name())
		}
		if want := ids[len(ids)-1-i]; rel.ID != want {
			t.Errorf("release %d = %s, want %s", i, rel.ID, want)
		}
	}
}

func TestScopePartialAcquisition(t *testing.T) {
	p := NewPool(Budget{MaxLive: 2})
	buf := cmdbuf.NewBuffer("partial")
	s := p.Scope(buf)

	for i := 0; i < 2; i++ {
		if _, err := s.Acquire(SurfaceStaging(4)); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}
	if _, err := s.Acquire(SurfaceStaging(4)); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Live() != 0 {
		t.Errorf("Live = %d, want 0", p.Live())
	}
}
