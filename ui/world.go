package ui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/camera"
	"github.com/pthm-cable/smarticles/sim"
)

// maxGridLines bounds the cell grid overlay when zoomed far out.
const maxGridLines = 400

// WorldRenderer draws the particle plane through a camera.
type WorldRenderer struct {
	cam *camera.Camera
}

// NewWorldRenderer creates a renderer that projects through cam.
func NewWorldRenderer(cam *camera.Camera) *WorldRenderer {
	return &WorldRenderer{cam: cam}
}

// particleRadius returns the on-screen particle radius at the current zoom.
func (w *WorldRenderer) particleRadius() float32 {
	r := 1.5 * w.cam.Zoom
	if r < 1 {
		r = 1
	}
	return r
}

// DrawParticles renders every enabled class in its color. Frozen classes are
// drawn dimmed.
func (w *WorldRenderer) DrawParticles(positions [][]sim.Vec2, enabled []bool, colors []rl.Color) {
	radius := w.particleRadius()
	for c, ps := range positions {
		if c >= len(colors) {
			break
		}
		color := colors[c]
		if c < len(enabled) && !enabled[c] {
			color = rl.Fade(color, 0.25)
		}
		for _, p := range ps {
			x, y := float32(p.X), float32(p.Y)
			if !w.cam.IsVisible(x, y, radius) {
				continue
			}
			sx, sy := w.cam.WorldToScreen(x, y)
			rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, color)
		}
	}
}

// DrawGrid renders the neighbor index cell boundaries.
func (w *WorldRenderer) DrawGrid(cellSize float64) {
	if cellSize <= 0 {
		return
	}
	minX, minY, maxX, maxY := w.cam.VisibleWorldBounds()
	cs := float32(cellSize)
	if (maxX-minX)/cs > maxGridLines || (maxY-minY)/cs > maxGridLines {
		return
	}
	color := rl.Color{R: 40, G: 45, B: 55, A: 255}

	x0 := float32(math.Floor(float64(minX/cs))) * cs
	for x := x0; x <= maxX; x += cs {
		sx, _ := w.cam.WorldToScreen(x, 0)
		rl.DrawLine(int32(sx), 0, int32(sx), int32(w.cam.ViewportH), color)
	}
	y0 := float32(math.Floor(float64(minY/cs))) * cs
	for y := y0; y <= maxY; y += cs {
		_, sy := w.cam.WorldToScreen(0, y)
		rl.DrawLine(0, int32(sy), int32(w.cam.ViewportW), int32(sy), color)
	}
}

// DrawCentroid marks the centroid with a cross.
func (w *WorldRenderer) DrawCentroid(c sim.Vec2) {
	sx, sy := w.cam.WorldToScreen(float32(c.X), float32(c.Y))
	col := rl.Color{R: 255, G: 255, B: 255, A: 200}
	rl.DrawLine(int32(sx)-6, int32(sy), int32(sx)+6, int32(sy), col)
	rl.DrawLine(int32(sx), int32(sy)-6, int32(sx), int32(sy)+6, col)
}

// DrawTarget draws an arrow from the centroid toward the target angle.
func (w *WorldRenderer) DrawTarget(c sim.Vec2, angle float64) {
	sx, sy := w.cam.WorldToScreen(float32(c.X), float32(c.Y))
	const length = 60
	dir := sim.Angled(angle)
	ex := sx + float32(dir.X)*length
	ey := sy + float32(dir.Y)*length
	col := rl.Color{R: 255, G: 150, B: 50, A: 220}
	rl.DrawLineEx(rl.Vector2{X: sx, Y: sy}, rl.Vector2{X: ex, Y: ey}, 2, col)
	rl.DrawCircleV(rl.Vector2{X: ex, Y: ey}, 4, col)
}
