package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsPanel renders the overlay toggle legend.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Draw renders the controls panel and returns the Y below it.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	if !c.visible {
		return c.y
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := 0
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	y := c.y + padding
	rl.DrawText("Overlays", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
		y += 4
	}

	return y
}

func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "view":
		return "View"
	case "simulation":
		return "Simulation"
	case "panels":
		return "Panels"
	default:
		return cat
	}
}

// Action is a user request raised by a control button.
type Action int

const (
	ActionSpawn Action = iota
	ActionTogglePlay
	ActionReset
	ActionRandomSeed
	ActionToggleNetwork
	ActionTrain
	ActionStopTraining
	ActionEvaluate
)

// ButtonState is what the button bar needs to label its toggles.
type ButtonState struct {
	Running       bool
	NetworkActive bool
	Training      bool
	TrainBatch    int // generations per Train press
}

// ButtonBar renders the raygui control buttons in a single row.
type ButtonBar struct {
	x, y          float32
	width, height float32
	gap           float32
}

// NewButtonBar creates a button bar anchored at (x, y).
func NewButtonBar(x, y float32) *ButtonBar {
	return &ButtonBar{x: x, y: y, width: 96, height: 26, gap: 6}
}

// SetPosition updates the bar position.
func (b *ButtonBar) SetPosition(x, y float32) {
	b.x = x
	b.y = y
}

// Height returns the row height.
func (b *ButtonBar) Height() float32 { return b.height }

// Contains reports whether a screen point falls on the bar.
func (b *ButtonBar) Contains(px, py float32) bool {
	w := float32(len(buttonOrder))*(b.width+b.gap) - b.gap
	return px >= b.x && px < b.x+w && py >= b.y && py < b.y+b.height
}

var buttonOrder = []Action{
	ActionSpawn,
	ActionTogglePlay,
	ActionReset,
	ActionRandomSeed,
	ActionToggleNetwork,
	ActionTrain,
	ActionEvaluate,
}

// ButtonLabel returns the label of the button that raises a.
func ButtonLabel(a Action, s ButtonState) string {
	switch a {
	case ActionSpawn:
		return "Spawn"
	case ActionTogglePlay:
		return toggleText(s.Running, "Pause", "Play")
	case ActionReset:
		return "Reset"
	case ActionRandomSeed:
		return "Random Seed"
	case ActionToggleNetwork:
		return toggleText(s.NetworkActive, "Network Off", "Network On")
	case ActionTrain, ActionStopTraining:
		if s.Training {
			return "Stop Training"
		}
		return fmt.Sprintf("Train %d", s.TrainBatch)
	case ActionEvaluate:
		return "Evaluate"
	}
	return ""
}

// Draw renders the buttons and returns the actions clicked this frame.
func (b *ButtonBar) Draw(s ButtonState) []Action {
	var clicked []Action
	x := b.x
	for _, a := range buttonOrder {
		bounds := rl.Rectangle{X: x, Y: b.y, Width: b.width, Height: b.height}
		if gui.Button(bounds, ButtonLabel(a, s)) {
			if a == ActionTrain && s.Training {
				a = ActionStopTraining
			}
			clicked = append(clicked, a)
		}
		x += b.width + b.gap
	}
	return clicked
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
