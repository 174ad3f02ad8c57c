package pagination

import (
	"context"
	"fmt"
)

// Surface is a laid-out document whose atomic blocks can be measured and
// pushed down. Measurements must reflect every margin added so far, because
// pushing one block moves everything after it through normal flow.
type Surface interface {
	// Blocks returns the ids of the atomic blocks in document order.
	Blocks(ctx context.Context) ([]int, error)
	// Measure returns the current top offset and height of a block in px,
	// relative to the top of the first page.
	Measure(ctx context.Context, id int) (top, height float64, err error)
	// AddMarginTop grows the block's top margin by px on top of whatever
	// margin it already has.
	AddMarginTop(ctx context.Context, id int, px float64) error
}

// Shift records a margin added to one block.
type Shift struct {
	Block     int     `json:"block"`
	Top       float64 `json:"top"`
	Height    float64 `json:"height"`
	StartPage int     `json:"start_page"`
	Px        float64 `json:"px"`
}

// Plan computes the shift for a single measured block. ok is false when the
// block already fits or would have to move up.
func Plan(g Geometry, top, height float64) (shift float64, ok bool) {
	startPage := g.StartPage(top)
	if top+height <= g.BottomLimit(startPage) {
		return 0, false
	}
	shift = g.NextPageTop(startPage) - top
	if shift <= 0 {
		return 0, false
	}
	return shift, true
}

// Reflow walks the atomic blocks once, in document order, and pushes every
// block that would cross the bottom margin of its start page to the top of
// the printable area of the next page. Blocks taller than a printable page
// are pushed too but still overflow; they are not split.
func Reflow(ctx context.Context, s Surface, g Geometry) ([]Shift, error) {
	ids, err := s.Blocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	var shifts []Shift
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return shifts, err
		}
		top, height, err := s.Measure(ctx, id)
		if err != nil {
			return shifts, fmt.Errorf("measure block %d: %w", id, err)
		}
		px, ok := Plan(g, top, height)
		if !ok {
			continue
		}
		if err := s.AddMarginTop(ctx, id, px); err != nil {
			return shifts, fmt.Errorf("shift block %d: %w", id, err)
		}
		shifts = append(shifts, Shift{Block: id, Top: top, Height: height, StartPage: g.StartPage(top), Px: px})
	}
	return shifts, nil
}

// Total sums the pixels added by a reflow pass.
func Total(shifts []Shift) float64 {
	var sum float64
	for _, s := range shifts {
		sum += s.Px
	}
	return sum
}
