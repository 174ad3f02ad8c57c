package pagination

import (
	"context"
	"fmt"
)

// FlowBox is one atomic block of a FlowSurface.
type FlowBox struct {
	ID     int
	Height float64
	// Gap is the space between the previous box's bottom (or the surface
	// origin) and this box's border edge, excluding any reflow margin.
	Gap float64
}

// FlowSurface is a single-column normal-flow layout kept in memory: boxes
// stack vertically and a margin added to one box moves every later box down
// by the same amount. It lets the reflow run without a browser.
type FlowSurface struct {
	boxes   []FlowBox
	margins map[int]float64
	index   map[int]int
}

func NewFlowSurface(boxes []FlowBox) *FlowSurface {
	s := &FlowSurface{
		boxes:   boxes,
		margins: make(map[int]float64, len(boxes)),
		index:   make(map[int]int, len(boxes)),
	}
	for i, b := range boxes {
		s.index[b.ID] = i
	}
	return s
}

func (s *FlowSurface) Blocks(context.Context) ([]int, error) {
	ids := make([]int, len(s.boxes))
	for i, b := range s.boxes {
		ids[i] = b.ID
	}
	return ids, nil
}

func (s *FlowSurface) Measure(_ context.Context, id int) (float64, float64, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, 0, fmt.Errorf("unknown block %d", id)
	}
	var y float64
	for j := 0; j < i; j++ {
		b := s.boxes[j]
		y += b.Gap + s.margins[b.ID] + b.Height
	}
	b := s.boxes[i]
	return y + b.Gap + s.margins[b.ID], b.Height, nil
}

func (s *FlowSurface) AddMarginTop(_ context.Context, id int, px float64) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("unknown block %d", id)
	}
	s.margins[id] += px
	return nil
}

// Margin returns the reflow margin added to a box so far.
func (s *FlowSurface) Margin(id int) float64 {
	return s.margins[id]
}

// Height returns the total height of the laid-out column.
func (s *FlowSurface) Height() float64 {
	var y float64
	for _, b := range s.boxes {
		y += b.Gap + s.margins[b.ID] + b.Height
	}
	return y
}
