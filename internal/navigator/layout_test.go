package navigator

import "testing"

func TestResolveWide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		index  int
		length int
		dir    Direction
		want   int
	}{
		{"right", 4, 10, Right, 5},
		{"left", 4, 10, Left, 3},
		{"down by row", 4, 10, Down, 7},
		{"up by row", 4, 10, Up, 1},
		{"up clamps at start", 1, 10, Up, 0},
		{"down clamps at end", 8, 10, Down, 9},
		{"left clamps at start", 0, 10, Left, 0},
		{"right clamps at end", 9, 10, Right, 9},
		{"empty list", 0, 0, Down, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(Wide, tt.index, tt.length, tt.dir); got != tt.want {
				t.Fatalf("Resolve(Wide, %d, %d, %s) = %d, want %d", tt.index, tt.length, tt.dir, got, tt.want)
			}
		})
	}
}

func TestResolveNarrow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		index  int
		length int
		dir    Direction
		want   int
	}{
		{"up from odd", 3, 10, Up, 2},
		{"up from even is a no-op", 2, 10, Up, 2},
		{"down from even", 2, 10, Down, 3},
		{"down from odd is a no-op", 3, 10, Down, 3},
		{"down from last even clamps", 4, 5, Down, 4},
		{"left", 3, 10, Left, 2},
		{"right", 3, 10, Right, 4},
		{"right clamps", 9, 10, Right, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(Narrow, tt.index, tt.length, tt.dir); got != tt.want {
				t.Fatalf("Resolve(Narrow, %d, %d, %s) = %d, want %d", tt.index, tt.length, tt.dir, got, tt.want)
			}
		})
	}
}

func TestLayoutForWidth(t *testing.T) {
	t.Parallel()

	if got := LayoutForWidth(99, 100); got != Narrow {
		t.Fatalf("width 99: got %s, want narrow", got)
	}
	if got := LayoutForWidth(100, 100); got != Wide {
		t.Fatalf("width 100: got %s, want wide", got)
	}
}

func TestResolve_StaysInBounds(t *testing.T) {
	t.Parallel()

	dirs := []Direction{Up, Down, Left, Right}
	for _, layout := range []Layout{Wide, Narrow} {
		for n := 1; n <= 12; n++ {
			for i := 0; i < n; i++ {
				for _, dir := range dirs {
					got := Resolve(layout, i, n, dir)
					if got < 0 || got > n-1 {
						t.Fatalf("Resolve(%s, %d, %d, %s) = %d, outside [0, %d]", layout, i, n, dir, got, n-1)
					}
				}
				if got := Resolve(layout, i, n, Right); got < i {
					t.Errorf("Resolve(%s, %d, %d, right) = %d moved backwards", layout, i, n, got)
				}
				if got := Resolve(layout, i, n, Left); got > i {
					t.Errorf("Resolve(%s, %d, %d, left) = %d moved forwards", layout, i, n, got)
				}
			}
		}
	}
}

func TestResolveWide_DownThenUpReturns(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		for i := 0; i < n; i++ {
			down := Resolve(Wide, i, n, Down)
			if i+WideColumns > n-1 {
				continue
			}
			if down != i+WideColumns {
				t.Fatalf("Resolve(Wide, %d, %d, down) = %d, want %d", i, n, down, i+WideColumns)
			}
			if up := Resolve(Wide, down, n, Up); up != i {
				t.Errorf("n=%d: down then up from %d landed on %d", n, i, up)
			}
		}
	}
}

func TestResolveNarrow_DownThenUpReturns(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		for i := 0; i < n; i += NarrowRows {
			down := Resolve(Narrow, i, n, Down)
			if down == i {
				continue
			}
			if up := Resolve(Narrow, down, n, Up); up != i {
				t.Errorf("n=%d: down then up from %d landed on %d", n, i, up)
			}
		}
	}
}
