package ui

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smarticles/camera"
	"github.com/pthm-cable/smarticles/config"
	"github.com/pthm-cable/smarticles/sim"
	"github.com/pthm-cable/smarticles/training"
	"github.com/pthm-cable/smarticles/worker"
)

// trainBatch is how many generations one Train press requests.
const trainBatch = 10

// followSmoothing is the fraction of the distance to the centroid the
// camera covers per frame while following.
const followSmoothing = 0.1

// Channels connects the viewer to the two workers.
type Channels struct {
	SimCommands    chan<- worker.Command
	SimSnapshots   <-chan worker.SimSnapshot
	TrainCommands  chan<- worker.Command
	TrainSnapshots <-chan worker.TrainingSnapshot
}

// Viewer is the interactive window. It must run on the goroutine that
// opened the raylib window.
type Viewer struct {
	ch       Channels
	rng      *rand.Rand
	seedOpts sim.SeedOptions
	cellSize float64
	maxPower int8

	camera   *camera.Camera
	world    *WorldRenderer
	overlays *OverlayRegistry
	hud      *HUD
	controls *ControlsPanel
	buttons  *ButtonBar
	matrix   *MatrixEditor
	stats    *TrainingPanel
	network  *NetworkPanel
	colors   []rl.Color

	sim       worker.SimSnapshot
	haveSim   bool
	train     worker.TrainingSnapshot
	haveTrain bool
	requested int
	seed      string
}

// NewViewer creates a viewer for the given config. The raylib window must
// already be open.
func NewViewer(cfg *config.Config, ch Channels, rng *rand.Rand) *Viewer {
	cam := camera.New(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
	return &Viewer{
		ch:  ch,
		rng: rng,
		seedOpts: sim.SeedOptions{
			Classes:  cfg.Simulation.Classes,
			MaxPower: int8(cfg.Physics.MaxPower),
			MinCount: cfg.Simulation.RandomMinCount,
			MaxCount: cfg.Simulation.RandomMaxCount,
		},
		cellSize: cfg.Derived.CellSize,
		maxPower: int8(cfg.Physics.MaxPower),
		camera:   cam,
		world:    NewWorldRenderer(cam),
		overlays: NewOverlayRegistry(),
		hud:      NewHUD(),
		controls: NewControlsPanel(10, 0, 220),
		buttons:  NewButtonBar(10, 0),
		matrix:   NewMatrixEditor(0, 10, matrixCellSize(cfg.Simulation.Classes)),
		stats:    NewTrainingPanel(0, 0, 260, 250),
		network:  NewNetworkPanel(0, 0, 320, 300),
		colors:   ClassPalette(cfg.Simulation.Classes),
	}
}

// matrixCellSize shrinks cells for large class counts.
func matrixCellSize(classes int) int32 {
	switch {
	case classes <= 6:
		return 32
	case classes <= 12:
		return 20
	default:
		return 12
	}
}

// Run shows frames until the window is closed or ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) {
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		v.Update()
		v.Draw()
	}
}

// Update consumes snapshots and handles input for one frame.
func (v *Viewer) Update() {
	v.receive()

	v.camera.Resize(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
	v.layout()

	for _, desc := range v.overlays.All() {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			v.overlays.Toggle(desc.ID)
		}
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.apply(ActionTogglePlay)
	}
	for c := 0; c < len(v.colors) && c < 9; c++ {
		if rl.IsKeyPressed(int32(rl.KeyOne) + int32(c)) {
			v.toggleClass(c)
		}
	}

	v.handleCameraInput()

	if v.overlays.IsEnabled(OverlayFollow) && v.haveSim {
		v.camera.Follow(float32(v.sim.Centroid.X), float32(v.sim.Centroid.Y), followSmoothing)
	}

	if v.overlays.IsEnabled(OverlayMatrix) && v.haveSim {
		if m := v.matrix.Update(v.sim.Matrix, v.maxPower); m != nil {
			v.send(v.ch.SimCommands, worker.SetInteractionMatrix{Matrix: m})
		}
	}
}

// receive takes the newest snapshot from each worker without blocking.
func (v *Viewer) receive() {
	select {
	case s := <-v.ch.SimSnapshots:
		v.sim = s
		v.haveSim = true
	default:
	}

	select {
	case t := <-v.ch.TrainSnapshots:
		improved := len(t.Ranked) > 0 && (!v.haveTrain || t.Generation != v.train.Generation || len(v.train.Ranked) == 0)
		v.train = t
		v.haveTrain = true
		if improved {
			// The live simulation always runs the latest generation's best.
			v.send(v.ch.SimCommands, worker.SetInferenceNetwork{Network: t.Ranked[0].Network.Clone()})
		}
	default:
	}
}

func (v *Viewer) layout() {
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())

	mw, mh := v.matrix.Size(len(v.colors))
	v.matrix.SetPosition(w-mw-10, 10)
	v.stats.SetPosition(w-260-10, 10+mh+10)
	v.network.SetPosition(w-mw-10-v.network.Width()-10, 10)
	v.buttons.SetPosition(10, float32(h)-v.buttons.Height()-35)
}

// overUI reports whether the mouse is over a panel that consumes clicks.
func (v *Viewer) overUI(mx, my float32) bool {
	if v.buttons.Contains(mx, my) {
		return true
	}
	if v.overlays.IsEnabled(OverlayMatrix) && v.matrix.Contains(mx, my, len(v.colors)) {
		return true
	}
	return false
}

func (v *Viewer) handleCameraInput() {
	panSpeed := float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Pan(0, -panSpeed)
	}

	mouse := rl.GetMousePosition()
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.ZoomAt(mouse.X, mouse.Y, 1+wheel*0.1)
	}

	// Drag with the left button on empty space to pan
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !v.overUI(mouse.X, mouse.Y) {
		d := rl.GetMouseDelta()
		v.camera.Pan(-d.X, -d.Y)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.Black)

	if v.overlays.IsEnabled(OverlayGrid) {
		v.world.DrawGrid(v.cellSize)
	}
	if v.haveSim {
		v.world.DrawParticles(v.sim.Positions, v.sim.Enabled, v.colors)
		if v.overlays.IsEnabled(OverlayCentroid) {
			v.world.DrawCentroid(v.sim.Centroid)
		}
		if v.overlays.IsEnabled(OverlayTarget) && v.sim.NetworkActive {
			v.world.DrawTarget(v.sim.Centroid, v.sim.TargetAngle)
		}
	}

	y := v.hud.Draw(10, 10, HUDData{
		Title:         "Smarticles",
		Tick:          v.sim.Tick,
		TickDuration:  v.sim.TickDuration,
		FPS:           rl.GetFPS(),
		Counts:        v.sim.Counts,
		Enabled:       v.sim.Enabled,
		Colors:        v.colors,
		Running:       v.sim.Running,
		NetworkActive: v.sim.NetworkActive,
		TargetAngle:   v.sim.TargetAngle,
		Zoom:          v.camera.Zoom,
	})
	if v.seed != "" {
		rl.DrawText("Seed: "+v.seed, 10, y, 14, rl.Gray)
		y += 18
	}

	y = v.drawTargetSlider(10, y+4)
	v.controls.SetPosition(10, y+10)
	v.controls.Draw(v.overlays)

	for _, a := range v.buttons.Draw(v.buttonState()) {
		v.apply(a)
	}

	if v.overlays.IsEnabled(OverlayMatrix) && v.haveSim {
		v.matrix.Draw(v.sim.Matrix, v.maxPower, v.colors)
	}
	if v.overlays.IsEnabled(OverlayTraining) {
		v.stats.Draw(v.trainingData())
	}
	if v.overlays.IsEnabled(OverlayNetwork) {
		v.drawNetwork()
	}

	v.hud.DrawControls(int32(rl.GetScreenHeight()),
		"Space: play/pause | 1-9: freeze class | Drag/arrows: pan | Wheel: zoom | Home: reset view | H: overlays")
}

// drawNetwork shows the best network acting on the live observation.
func (v *Viewer) drawNetwork() {
	if len(v.train.Ranked) == 0 {
		v.network.Draw(nil, nil, len(v.colors))
		return
	}
	net := v.train.Ranked[0].Network
	var trace [][]float32
	if v.haveSim && v.sim.Matrix != nil {
		// A size mismatch leaves the diagram without activations
		trace, _ = net.Trace(training.Observation(v.sim.TargetAngle, v.sim.Matrix))
	}
	v.network.Draw(net, trace, len(v.colors))
}

// drawTargetSlider lets the user steer the network and returns the Y below it.
func (v *Viewer) drawTargetSlider(x, y int32) int32 {
	rl.DrawText("Target angle", x, y, 14, rl.Gray)
	y += 18
	current := float32(v.sim.TargetAngle)
	bounds := rl.Rectangle{X: float32(x) + 30, Y: float32(y), Width: 200, Height: 16}
	angle := gui.SliderBar(bounds, "-pi", "pi", current, -math.Pi, math.Pi)
	if v.haveSim && angle != current {
		v.send(v.ch.SimCommands, worker.SetTargetAngle{Angle: float64(angle)})
	}
	return y + 20
}

func (v *Viewer) buttonState() ButtonState {
	return ButtonState{
		Running:       v.sim.Running,
		NetworkActive: v.sim.NetworkActive,
		Training:      v.train.Training,
		TrainBatch:    trainBatch,
	}
}

func (v *Viewer) trainingData() TrainingData {
	return TrainingData{
		Generation: v.train.Generation,
		Training:   v.train.Training,
		Remaining:  v.train.Remaining,
		Requested:  v.requested,
		Stats:      v.train.Stats,
		Ranked:     v.train.Ranked,
		HasResults: len(v.train.Ranked) > 0,
	}
}

// apply turns an action into worker commands.
func (v *Viewer) apply(a Action) {
	simCmds, trainCmds := v.commandsFor(a)
	for _, cmd := range simCmds {
		v.send(v.ch.SimCommands, cmd)
	}
	for _, cmd := range trainCmds {
		v.send(v.ch.TrainCommands, cmd)
	}
}

// commandsFor returns the commands an action sends to the simulation and
// training workers.
func (v *Viewer) commandsFor(a Action) (simCmds, trainCmds []worker.Command) {
	switch a {
	case ActionSpawn:
		simCmds = append(simCmds, worker.Spawn{})
	case ActionTogglePlay:
		if v.sim.Running {
			simCmds = append(simCmds, worker.Pause{})
		} else {
			simCmds = append(simCmds, worker.Start{})
		}
	case ActionReset:
		simCmds = append(simCmds, worker.Reset{})
	case ActionRandomSeed:
		v.seed = sim.RandomSeedString(v.rng)
		seed := v.seedOpts.Apply(v.seed)
		simCmds = append(simCmds, worker.SetInteractionMatrix{Matrix: seed.Matrix})
		if seed.Counts != nil {
			simCmds = append(simCmds, worker.SetClassCounts{Counts: seed.Counts})
		}
		simCmds = append(simCmds, worker.Spawn{})
		slog.Info("applied seed", "seed", v.seed)
	case ActionToggleNetwork:
		switch {
		case v.sim.NetworkActive:
			simCmds = append(simCmds, worker.StopNetwork{})
		case len(v.train.Ranked) > 0:
			simCmds = append(simCmds,
				worker.SetInferenceNetwork{Network: v.train.Ranked[0].Network.Clone()},
				worker.StartNetwork{},
			)
		default:
			slog.Info("no scored network yet, evaluate or train first")
		}
	case ActionTrain:
		v.requested = trainBatch
		trainCmds = append(trainCmds, worker.StartTraining{Generations: trainBatch})
	case ActionStopTraining:
		trainCmds = append(trainCmds, worker.StopTraining{})
	case ActionEvaluate:
		trainCmds = append(trainCmds, worker.EvaluateOnce{})
	}
	return simCmds, trainCmds
}

func (v *Viewer) toggleClass(c int) {
	if !v.haveSim || c >= len(v.sim.Enabled) {
		return
	}
	if v.sim.Enabled[c] {
		v.send(v.ch.SimCommands, worker.DisableClass{Class: c})
	} else {
		v.send(v.ch.SimCommands, worker.EnableClass{Class: c})
	}
}

// send delivers a command without stalling the frame when the worker's
// queue is full.
func (v *Viewer) send(ch chan<- worker.Command, cmd worker.Command) {
	if ch == nil {
		return
	}
	select {
	case ch <- cmd:
	default:
		slog.Warn("worker command queue full, dropping command", "command", fmt.Sprintf("%T", cmd))
	}
}
