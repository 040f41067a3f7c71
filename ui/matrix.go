package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/sim"
)

// matrixStep is how much one click changes a power.
const matrixStep = 10

// MatrixEditor draws the interaction matrix as a clickable grid. Row i,
// column j is the power with which class i is pulled toward class j.
// A left click adds matrixStep, a right click subtracts it.
type MatrixEditor struct {
	renderer *Renderer
	x, y     int32
	cellSize int32
	header   int32 // width of the class swatch row and column
}

// NewMatrixEditor creates an editor whose top-left corner is (x, y).
func NewMatrixEditor(x, y, cellSize int32) *MatrixEditor {
	return &MatrixEditor{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		cellSize: cellSize,
		header:   14,
	}
}

// SetPosition updates the editor position.
func (e *MatrixEditor) SetPosition(x, y int32) {
	e.x = x
	e.y = y
}

// Size returns the width and height of the editor for n classes.
func (e *MatrixEditor) Size(n int) (w, h int32) {
	pad := e.renderer.Theme.Padding
	side := e.header + int32(n)*e.cellSize + 2*pad
	return side, side + e.renderer.Theme.LineHeight
}

// grid returns the screen position of cell (0, 0).
func (e *MatrixEditor) grid() (gx, gy int32) {
	pad := e.renderer.Theme.Padding
	return e.x + pad + e.header, e.y + pad + e.renderer.Theme.LineHeight + e.header
}

// CellAt returns the (row, column) under a screen point.
func (e *MatrixEditor) CellAt(px, py float32, n int) (i, j int, ok bool) {
	gx, gy := e.grid()
	dx := px - float32(gx)
	dy := py - float32(gy)
	if dx < 0 || dy < 0 {
		return 0, 0, false
	}
	j = int(dx) / int(e.cellSize)
	i = int(dy) / int(e.cellSize)
	if i >= n || j >= n {
		return 0, 0, false
	}
	return i, j, true
}

// Contains reports whether a screen point falls on the editor panel.
func (e *MatrixEditor) Contains(px, py float32, n int) bool {
	w, h := e.Size(n)
	return px >= float32(e.x) && px < float32(e.x+w) && py >= float32(e.y) && py < float32(e.y+h)
}

// Edit returns a copy of m with entry (i, j) changed by delta and clamped
// to ±limit. m is not modified.
func Edit(m *sim.Matrix, i, j, delta int, limit int8) *sim.Matrix {
	out := m.Clone()
	out.Add(i, j, delta, limit)
	return out
}

// Update handles a click on the grid and returns the edited matrix, or nil
// when nothing changed.
func (e *MatrixEditor) Update(m *sim.Matrix, limit int8) *sim.Matrix {
	if m == nil {
		return nil
	}
	delta := 0
	switch {
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft):
		delta = matrixStep
	case rl.IsMouseButtonPressed(rl.MouseButtonRight):
		delta = -matrixStep
	default:
		return nil
	}
	mouse := rl.GetMousePosition()
	i, j, ok := e.CellAt(mouse.X, mouse.Y, m.Size())
	if !ok {
		return nil
	}
	return Edit(m, i, j, delta, limit)
}

// Draw renders the matrix with class swatches along both axes.
func (e *MatrixEditor) Draw(m *sim.Matrix, limit int8, colors []rl.Color) {
	if m == nil {
		return
	}
	r := e.renderer
	n := m.Size()
	w, h := e.Size(n)
	r.DrawPanel(e.x, e.y, w, h)
	rl.DrawText("Interaction Matrix", e.x+r.Theme.Padding, e.y+r.Theme.Padding, r.Theme.HeaderFontSize, r.Theme.SectionHeader)

	gx, gy := e.grid()
	for c := 0; c < n && c < len(colors); c++ {
		off := int32(c)*e.cellSize + e.cellSize/2 - 4
		rl.DrawRectangle(gx+off, gy-e.header+2, 8, 8, colors[c])
		rl.DrawRectangle(gx-e.header+2, gy+off, 8, 8, colors[c])
	}

	mouse := rl.GetMousePosition()
	hi, hj, hover := e.CellAt(mouse.X, mouse.Y, n)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cx := gx + int32(j)*e.cellSize
			cy := gy + int32(i)*e.cellSize
			v := m.Get(i, j)
			rl.DrawRectangle(cx, cy, e.cellSize-1, e.cellSize-1, PowerColor(v, limit))
			if e.cellSize >= 24 {
				text := fmt.Sprintf("%d", v)
				tw := rl.MeasureText(text, r.Theme.FontSize)
				rl.DrawText(text, cx+(e.cellSize-tw)/2, cy+(e.cellSize-r.Theme.FontSize)/2, r.Theme.FontSize, rl.White)
			}
			if hover && i == hi && j == hj {
				rl.DrawRectangleLines(cx, cy, e.cellSize-1, e.cellSize-1, rl.White)
			}
		}
	}
}
