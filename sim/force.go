package sim

// Force returns the signed force magnitude a particle feels from a neighbor
// at the given distance, where power is the matrix entry for the ordered
// class pair. Positive values pull the particle toward the neighbor.
//
// Zones:
//   - [0, T1): repulsion relaxing linearly from ProximityPower to 0
//   - [T1, T1+T2): ramp from 0 to power
//   - [T1+T2, T1+2*T2): ramp from power back to 0
//   - beyond: 0
func (p Params) Force(distance, power float64) float64 {
	t1, t2 := p.FirstThreshold, p.SecondThreshold
	switch {
	case distance < t1:
		return p.ProximityPower * (distance/t1 - 1)
	case distance < t1+t2:
		return power * (distance - t1) / t2
	case distance < t1+2*t2:
		return power * (t1 + 2*t2 - distance) / t2
	default:
		return 0
	}
}

// Neighbor is one interacting particle as seen from the particle being moved.
type Neighbor struct {
	Offset Vec2    // neighbor position minus own position
	Power  float64 // matrix entry (own class, neighbor class)
}

// NetForce sums the pairwise forces of neighbors and adds the damping term
// (prev - pos) * Damping. Coincident neighbors have no direction and are skipped.
func (p Params) NetForce(pos, prev Vec2, neighbors []Neighbor) Vec2 {
	var f Vec2
	for _, n := range neighbors {
		d := n.Offset.Len()
		if d == 0 {
			continue
		}
		mag := p.Force(d, n.Power) * p.ForceScale
		f = f.Add(n.Offset.Scale(mag / d))
	}
	return f.Add(prev.Sub(pos).Scale(p.Damping))
}

// Integrate performs one Störmer-Verlet step with unit mass.
func Integrate(pos, prev, force Vec2, dt float64) Vec2 {
	return pos.Scale(2).Sub(prev).Add(force.Scale(dt * dt))
}
