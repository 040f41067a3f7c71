package sim

import "fmt"

// Matrix is the square interaction matrix of signed 8-bit powers.
// Entry (i, j) is the power with which class i is pulled toward class j:
// positive attracts, negative repels.
type Matrix struct {
	n    int
	data []int8
}

// NewMatrix returns an n x n zero matrix.
func NewMatrix(n int) *Matrix {
	if n < 1 {
		panic(fmt.Sprintf("sim: matrix size must be positive, got %d", n))
	}
	return &Matrix{n: n, data: make([]int8, n*n)}
}

// MatrixFromValues builds an n x n matrix from row-major values.
// Missing trailing values are zero; extra values are ignored.
func MatrixFromValues(n int, values []int8) *Matrix {
	m := NewMatrix(n)
	copy(m.data, values)
	return m
}

// Size returns the number of classes the matrix covers.
func (m *Matrix) Size() int { return m.n }

func (m *Matrix) index(i, j int) int {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("sim: matrix index (%d, %d) out of range for size %d", i, j, m.n))
	}
	return i*m.n + j
}

// Get returns entry (i, j).
func (m *Matrix) Get(i, j int) int8 { return m.data[m.index(i, j)] }

// Set assigns entry (i, j).
func (m *Matrix) Set(i, j int, v int8) { m.data[m.index(i, j)] = v }

// Add adds delta to entry (i, j), clamping the result to [-limit, limit].
func (m *Matrix) Add(i, j, delta int, limit int8) {
	idx := m.index(i, j)
	v := int(m.data[idx]) + delta
	lim := int(limit)
	if v > lim {
		v = lim
	} else if v < -lim {
		v = -lim
	}
	m.data[idx] = int8(v)
}

// Zero clears every entry.
func (m *Matrix) Zero() {
	clear(m.data)
}

// Values returns a copy of the entries in row-major order.
func (m *Matrix) Values() []int8 {
	out := make([]int8, len(m.data))
	copy(out, m.data)
	return out
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{n: m.n, data: m.Values()}
}

// Equal reports whether both matrices have the same size and entries.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.n != o.n {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Bytes returns the entries as raw two's-complement bytes, row-major.
func (m *Matrix) Bytes() []byte {
	out := make([]byte, len(m.data))
	for i, v := range m.data {
		out[i] = byte(v)
	}
	return out
}

// MatrixFromBytes is the inverse of Bytes.
func MatrixFromBytes(n int, b []byte) *Matrix {
	m := NewMatrix(n)
	for i := 0; i < len(m.data) && i < len(b); i++ {
		m.data[i] = int8(b[i])
	}
	return m
}

// Clamp limits every entry to [-limit, limit].
func (m *Matrix) Clamp(limit int8) {
	for i, v := range m.data {
		if v > limit {
			m.data[i] = limit
		} else if v < -limit {
			m.data[i] = -limit
		}
	}
}
