package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/neural"
)

// Colors for activation visualization.
var (
	ColorEdgePositive = rl.Color{R: 200, G: 80, B: 80, A: 100}
	ColorEdgeNegative = rl.Color{R: 80, G: 80, B: 200, A: 100}
	ColorLabelDim     = rl.Color{R: 120, G: 120, B: 120, A: 255}
)

// minEdgeWeight hides connections too weak to matter visually.
const minEdgeWeight = 0.1

// InputLabels names the observation entries for a network over n classes:
// the target angle followed by every matrix entry.
func InputLabels(n int) []string {
	labels := make([]string, 0, 1+n*n)
	labels = append(labels, "angle")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			labels = append(labels, fmt.Sprintf("m%d,%d", i, j))
		}
	}
	return labels
}

// OutputLabels names the action entries for a network over n classes.
func OutputLabels(n int) []string {
	labels := make([]string, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			labels = append(labels, fmt.Sprintf("d%d,%d", i, j))
		}
	}
	return labels
}

// NetworkPanel renders a network diagram with the activations of one pass.
type NetworkPanel struct {
	renderer      *Renderer
	x, y          int32
	width, height int32
}

// NewNetworkPanel creates a new network panel.
func NewNetworkPanel(x, y, width, height int32) *NetworkPanel {
	return &NetworkPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
}

// SetPosition updates the panel position.
func (p *NetworkPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Width returns the panel width.
func (p *NetworkPanel) Width() int32 { return p.width }

// Draw renders net inside the panel. trace holds the values of every layer
// as returned by Network.Trace and may be nil.
func (p *NetworkPanel) Draw(net *neural.Network, trace [][]float32, classes int) {
	r := p.renderer
	r.DrawPanel(p.x, p.y, p.width, p.height)
	rl.DrawText("Best Network", p.x+r.Theme.Padding, p.y+r.Theme.Padding, r.Theme.HeaderFontSize, r.Theme.SectionHeader)

	top := p.y + r.Theme.Padding + r.Theme.LineHeight
	DrawNetworkDiagram(p.x+40, top, p.width-80, p.y+p.height-top-r.Theme.Padding, net, trace,
		InputLabels(classes), OutputLabels(classes))
}

// nodePositions lays out size nodes evenly in a column at x.
func nodePositions(x, y, height float32, size int) []rl.Vector2 {
	nodes := make([]rl.Vector2, size)
	spacing := height / float32(size)
	for i := range nodes {
		nodes[i] = rl.Vector2{X: x, Y: y + spacing*(float32(i)+0.5)}
	}
	return nodes
}

// DrawNetworkDiagram renders the layers of net as columns of nodes joined by
// weight-colored edges.
func DrawNetworkDiagram(x, y, width, height int32, net *neural.Network, trace [][]float32, inputLabels, outputLabels []string) {
	if net == nil {
		rl.DrawText("No network data", x+10, y+10, 14, ColorLabelDim)
		return
	}

	sizes := net.Sizes()
	colWidth := float32(width) / float32(len(sizes))
	nodeRadius := float32(5)

	columns := make([][]rl.Vector2, len(sizes))
	for c, size := range sizes {
		cx := float32(x) + colWidth*(float32(c)+0.5)
		columns[c] = nodePositions(cx, float32(y), float32(height), size)
	}

	for li, l := range net.Layers {
		from, to := columns[li], columns[li+1]
		for o := 0; o < l.OutputSize; o++ {
			for i := 0; i < l.InputSize; i++ {
				weight := l.Weights[o*l.InputSize+i]
				if absf(weight) < minEdgeWeight {
					continue
				}
				drawEdge(from[i], to[o], weight)
			}
		}
	}

	last := len(columns) - 1
	for c, nodes := range columns {
		for i, pos := range nodes {
			var activation float32
			if c < len(trace) && i < len(trace[c]) {
				activation = trace[c][i]
			}
			drawNode(pos, nodeRadius, activation)

			switch {
			case c == 0 && i < len(inputLabels):
				labelWidth := rl.MeasureText(inputLabels[i], 10)
				rl.DrawText(inputLabels[i], int32(pos.X-nodeRadius)-labelWidth-4, int32(pos.Y)-5, 10, ColorLabelDim)
			case c == last && i < len(outputLabels):
				rl.DrawText(outputLabels[i], int32(pos.X+nodeRadius+6), int32(pos.Y)-5, 10, ColorLabelDim)
			}
		}
	}
}

func drawNode(pos rl.Vector2, radius, activation float32) {
	rl.DrawCircleV(pos, radius, activationColor(activation))
	rl.DrawCircleLinesV(pos, radius, rl.Color{R: 100, G: 100, B: 100, A: 255})
}

func drawEdge(from, to rl.Vector2, weight float32) {
	thickness := absf(weight) * 1.5
	if thickness > 3 {
		thickness = 3
	}
	if thickness < 0.5 {
		thickness = 0.5
	}

	color := ColorEdgePositive
	if weight < 0 {
		color = ColorEdgeNegative
	}
	alpha := 40 + int(absf(weight)*40)
	if alpha > 150 {
		alpha = 150
	}
	color.A = uint8(alpha)

	rl.DrawLineEx(from, to, thickness, color)
}

// activationColor returns a color based on activation value.
// Negative = blue, Zero = gray, Positive = red.
func activationColor(activation float32) rl.Color {
	t := clampUnit(absf(activation))
	if activation >= 0 {
		return rl.Color{R: uint8(60 + t*195), G: uint8(60 - t*30), B: uint8(60 - t*30), A: 255}
	}
	return rl.Color{R: uint8(60 - t*30), G: uint8(60 - t*30), B: uint8(60 + t*195), A: 255}
}
