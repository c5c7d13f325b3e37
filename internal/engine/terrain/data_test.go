package terrain

import "testing"

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		data   Settings
		height float32
		stored float32
	}{
		{"identity", Settings{Scale: 1}, 2.5, 2.5},
		{"scaled", Settings{Scale: 100}, 50, 0.5},
		{"offset", Settings{Scale: 200, Offset: -100}, 0, 0.5},
		{"zero scale", Settings{}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			so := ScaleOffset(tt.data)
			got := Encode(so, tt.height)
			if got != tt.stored {
				t.Errorf("Encode(%g) = %g, want %g", tt.height, got, tt.stored)
			}
			if tt.data.Scale != 0 {
				if back := Decode(so, got); back != tt.height {
					t.Errorf("Decode(%g) = %g, want %g", got, back, tt.height)
				}
			}
		})
	}
}

func TestScaleOffsetLayout(t *testing.T) {
	so := ScaleOffset(Settings{Scale: 3, Offset: 4})
	if so[0] != 3 || so[1] != 4 || so[2] != 1 || so[3] != 1 {
		t.Errorf("ScaleOffset = %v, want [3 4 1 1]", so)
	}
}
