package navigator

// Direction is a discrete navigation step.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Layout selects the adjacency rules used by Resolve.
type Layout int

const (
	// Wide is a 3-column grid filled row by row.
	Wide Layout = iota
	// Narrow is a 2-row strip filled column by column.
	Narrow
)

// Grid shape shared by Resolve and the renderer.
const (
	WideColumns = 3
	NarrowRows  = 2
)

func (l Layout) String() string {
	if l == Narrow {
		return "narrow"
	}
	return "wide"
}

// LayoutForWidth returns Narrow when width is below narrowWidth.
func LayoutForWidth(width, narrowWidth int) Layout {
	if width < narrowWidth {
		return Narrow
	}
	return Wide
}

// Resolve returns the index reached from index by moving in dir. The result
// is clamped to [0, length-1]; there is no wraparound. A length of zero
// yields zero.
func Resolve(layout Layout, index, length int, dir Direction) int {
	if length <= 0 {
		return 0
	}
	next := index
	switch layout {
	case Narrow:
		switch dir {
		case Left:
			next = index - 1
		case Right:
			next = index + 1
		case Up:
			if index%NarrowRows != 0 {
				next = index - 1
			}
		case Down:
			if index%NarrowRows < NarrowRows-1 {
				next = index + 1
			}
		}
	default:
		switch dir {
		case Left:
			next = index - 1
		case Right:
			next = index + 1
		case Up:
			next = index - WideColumns
		case Down:
			next = index + WideColumns
		}
	}
	return clamp(next, 0, length-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
