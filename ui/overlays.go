package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayFollow   OverlayID = "follow"
	OverlayGrid     OverlayID = "grid"
	OverlayCentroid OverlayID = "centroid"
	OverlayTarget   OverlayID = "target"
	OverlayMatrix   OverlayID = "matrix"
	OverlayTraining OverlayID = "training"
	OverlayNetwork  OverlayID = "network"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID // Unique identifier
	Name        string    // Display name
	Description string    // What this overlay shows
	Key         int32     // Keyboard key to toggle (0 = no key)
	KeyLabel    string    // Key label for display (e.g., "G")
	Category    string    // Grouping (e.g., "view", "panels")
	Default     bool      // Enabled on registration
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID:          OverlayFollow,
		Name:        "Follow Centroid",
		Description: "Keep the camera on the particle centroid",
		Key:         rl.KeyF,
		KeyLabel:    "F",
		Category:    "view",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayGrid,
		Name:        "Cell Grid",
		Description: "Draw the neighbor index cells",
		Key:         rl.KeyG,
		KeyLabel:    "G",
		Category:    "view",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayCentroid,
		Name:        "Centroid",
		Description: "Mark the mean of the class centroids",
		Key:         rl.KeyC,
		KeyLabel:    "C",
		Category:    "simulation",
		Default:     true,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayTarget,
		Name:        "Target Direction",
		Description: "Arrow toward the network's target angle",
		Key:         rl.KeyT,
		KeyLabel:    "T",
		Category:    "simulation",
		Default:     true,
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayMatrix,
		Name:        "Matrix Editor",
		Description: "Show the clickable interaction matrix",
		Key:         rl.KeyM,
		KeyLabel:    "M",
		Category:    "panels",
		Default:     true,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayTraining,
		Name:        "Training",
		Description: "Show generation stats and the best scores",
		Key:         rl.KeyL,
		KeyLabel:    "L",
		Category:    "panels",
		Default:     true,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayNetwork,
		Name:        "Best Network",
		Description: "Diagram of the best network on the live observation",
		Key:         rl.KeyN,
		KeyLabel:    "N",
		Category:    "panels",
	})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = desc.Default
}

// Toggle switches an overlay on/off and returns the new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.enabled[id] = !r.enabled[id]
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	r.enabled[id] = enabled
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeyPress checks if a key corresponds to an overlay toggle.
// Returns the overlay ID and new state if a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			newState := r.Toggle(desc.ID)
			return desc.ID, newState, true
		}
	}
	return "", false, false
}
