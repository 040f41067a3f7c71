package camera

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestWorldScreenRoundTrip(t *testing.T) {
	c := New(800, 600)
	c.X, c.Y = 120, -40
	c.SetZoom(2.5)

	points := [][2]float32{{0, 0}, {120, -40}, {-300, 250}, {1e4, -1e4}}
	for _, p := range points {
		sx, sy := c.WorldToScreen(p[0], p[1])
		wx, wy := c.ScreenToWorld(sx, sy)
		if !approx(wx, p[0]) || !approx(wy, p[1]) {
			t.Errorf("round trip of %v gave (%v, %v)", p, wx, wy)
		}
	}
}

func TestCenterMapsToViewportCenter(t *testing.T) {
	c := New(800, 600)
	c.X, c.Y = 50, 60
	sx, sy := c.WorldToScreen(50, 60)
	if sx != 400 || sy != 300 {
		t.Errorf("camera center maps to (%v, %v), want (400, 300)", sx, sy)
	}
}

func TestZoomClamped(t *testing.T) {
	c := New(800, 600)
	c.SetZoom(1000)
	if c.Zoom != c.MaxZoom {
		t.Errorf("zoom = %v, want max %v", c.Zoom, c.MaxZoom)
	}
	c.SetZoom(0)
	if c.Zoom != c.MinZoom {
		t.Errorf("zoom = %v, want min %v", c.Zoom, c.MinZoom)
	}
}

func TestPanScalesWithZoom(t *testing.T) {
	c := New(800, 600)
	c.SetZoom(2)
	c.Pan(100, -50)
	if !approx(c.X, 50) || !approx(c.Y, -25) {
		t.Errorf("position = (%v, %v), want (50, -25)", c.X, c.Y)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	c := New(800, 600)
	c.X, c.Y = 10, 20

	sx, sy := float32(650), float32(120)
	wx, wy := c.ScreenToWorld(sx, sy)
	c.ZoomAt(sx, sy, 3)

	gx, gy := c.ScreenToWorld(sx, sy)
	if !approx(gx, wx) || !approx(gy, wy) {
		t.Errorf("point under cursor moved from (%v, %v) to (%v, %v)", wx, wy, gx, gy)
	}
	if !approx(c.Zoom, 3) {
		t.Errorf("zoom = %v, want 3", c.Zoom)
	}
}

func TestFollow(t *testing.T) {
	c := New(800, 600)
	c.Follow(100, -100, 0.5)
	if !approx(c.X, 50) || !approx(c.Y, -50) {
		t.Errorf("position = (%v, %v), want (50, -50)", c.X, c.Y)
	}
	c.Follow(100, -100, 1)
	if c.X != 100 || c.Y != -100 {
		t.Errorf("snap follow gave (%v, %v)", c.X, c.Y)
	}
}

func TestIsVisible(t *testing.T) {
	c := New(800, 600)
	if !c.IsVisible(0, 0, 1) {
		t.Error("origin should be visible")
	}
	if !c.IsVisible(402, 0, 5) {
		t.Error("circle overlapping the right edge should be visible")
	}
	if c.IsVisible(1000, 0, 5) {
		t.Error("far point should not be visible")
	}
}

func TestVisibleWorldBounds(t *testing.T) {
	c := New(800, 600)
	c.SetZoom(2)
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	if minX != -200 || maxX != 200 || minY != -150 || maxY != 150 {
		t.Errorf("bounds = (%v, %v, %v, %v)", minX, minY, maxX, maxY)
	}
}
