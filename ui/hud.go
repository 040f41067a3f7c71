package ui

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/telemetry"
	"github.com/pthm-cable/smarticles/training"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Tick          uint64
	TickDuration  time.Duration
	FPS           int32
	Counts        []int
	Enabled       []bool
	Colors        []rl.Color
	Running       bool
	NetworkActive bool
	TargetAngle   float64
	Zoom          float32
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD at (x, y) and returns the Y below it.
func (h *HUD) Draw(x, y int32, data HUDData) int32 {
	r := h.renderer

	rl.DrawText(data.Title, x, y, 20, rl.White)
	y += 25

	total := 0
	for _, n := range data.Counts {
		total += n
	}
	rl.DrawText(
		fmt.Sprintf("Tick: %s | Tick time: %s | FPS: %d | Zoom: %.2fx",
			humanize.Comma(int64(data.Tick)), data.TickDuration.Round(time.Microsecond), data.FPS, data.Zoom),
		x, y, 16, rl.LightGray,
	)
	y += 20
	rl.DrawText(fmt.Sprintf("Particles: %s", humanize.Comma(int64(total))), x, y, 16, rl.LightGray)
	y += 20

	for c, n := range data.Counts {
		label := fmt.Sprintf("class %d: %s", c, humanize.Comma(int64(n)))
		if c < len(data.Enabled) && !data.Enabled[c] {
			label += " (frozen)"
		}
		color := rl.Gray
		if c < len(data.Colors) {
			color = data.Colors[c]
		}
		y = r.DrawColorSwatch(x, y, label, color)
	}
	y += 4

	status := "PAUSED"
	if data.Running {
		status = "Running"
	}
	if data.NetworkActive {
		status += fmt.Sprintf(" | Network driving, target %.0f°", data.TargetAngle*180/math.Pi)
	}
	rl.DrawText(status, x, y, 16, rl.Yellow)
	return y + 20
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// TrainingData holds data for the training panel.
type TrainingData struct {
	Generation uint64
	Training   bool
	Remaining  int
	Requested  int // generations in the current training request
	Stats      telemetry.GenerationStats
	Ranked     []training.ScoredNetwork
	HasResults bool
}

// TrainingPanel renders generation stats and the top of the ranking.
type TrainingPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32
}

// NewTrainingPanel creates a new training panel.
func NewTrainingPanel(x, y, width, height int32) *TrainingPanel {
	return &TrainingPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
}

// SetPosition updates the panel position.
func (p *TrainingPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// topRanked is how many ranked scores the panel lists.
const topRanked = 5

// Draw renders the training panel.
func (p *TrainingPanel) Draw(data TrainingData) {
	r := p.renderer
	padding := r.Theme.Padding
	width := p.width - 2*padding

	r.DrawPanel(p.x, p.y, p.width, p.height)

	x := p.x + padding
	y := p.y + padding

	rl.DrawText("Training", x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4

	y = r.DrawLabelValue(x, y, "Generation", humanize.Comma(int64(data.Generation)))
	if data.Training && data.Requested > 0 {
		done := float32(data.Requested-data.Remaining) / float32(data.Requested)
		y = r.DrawBar(x, y, "Progress", done, width)
	}

	if !data.HasResults {
		rl.DrawText("No generation scored yet", x, y, r.Theme.FontSize, rl.Gray)
		return
	}

	y = r.DrawLabelValue(x, y, "Best", fmt.Sprintf("%.4g", data.Stats.Best))
	y = r.DrawLabelValue(x, y, "Mean", fmt.Sprintf("%.4g ± %.3g", data.Stats.Mean, data.Stats.StdDev))
	y = r.DrawLabelValue(x, y, "P90", fmt.Sprintf("%.4g", data.Stats.P90))
	y = r.DrawLabelValue(x, y, "Eval", data.Stats.EvalDuration.Round(time.Millisecond).String())
	y += 4

	y = r.DrawSectionHeader(x, y, "Top networks")
	limit := scoreLimit(data.Ranked)
	for i, sn := range data.Ranked {
		if i >= topRanked {
			break
		}
		y = r.DrawCenteredBar(x, y, fmt.Sprintf("#%d", i+1), float32(sn.Score), limit, width)
	}
}

// scoreLimit returns the largest absolute score among the listed networks,
// used to scale the score bars.
func scoreLimit(ranked []training.ScoredNetwork) float32 {
	var limit float64
	for i, sn := range ranked {
		if i >= topRanked {
			break
		}
		if a := math.Abs(sn.Score); a > limit && !math.IsInf(a, 0) {
			limit = a
		}
	}
	return float32(limit)
}
