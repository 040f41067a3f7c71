package sim

import "testing"

func TestMatrixSetGet(t *testing.T) {
	m := NewMatrix(3)
	m.Set(0, 2, 17)
	m.Set(2, 0, -5)

	if got := m.Get(0, 2); got != 17 {
		t.Errorf("Get(0, 2) = %d, want 17", got)
	}
	if got := m.Get(2, 0); got != -5 {
		t.Errorf("Get(2, 0) = %d, want -5", got)
	}
	if got := m.Get(1, 1); got != 0 {
		t.Errorf("Get(1, 1) = %d, want 0", got)
	}
}

func TestMatrixAddClamps(t *testing.T) {
	m := NewMatrix(2)
	m.Set(0, 0, 95)
	m.Add(0, 0, 9, 100)
	if got := m.Get(0, 0); got != 100 {
		t.Errorf("after +9: %d, want 100", got)
	}

	m.Set(1, 1, -98)
	m.Add(1, 1, -50, 100)
	if got := m.Get(1, 1); got != -100 {
		t.Errorf("after -50: %d, want -100", got)
	}
}

func TestMatrixIndexPanics(t *testing.T) {
	m := NewMatrix(2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()
	m.Get(2, 0)
}

func TestMatrixBytesRoundTrip(t *testing.T) {
	m := MatrixFromValues(2, []int8{-100, 3, 127, -1})
	back := MatrixFromBytes(2, m.Bytes())
	if !m.Equal(back) {
		t.Errorf("round trip mismatch: %v vs %v", m.Values(), back.Values())
	}
}

func TestMatrixCloneIndependent(t *testing.T) {
	m := NewMatrix(2)
	c := m.Clone()
	c.Set(0, 1, 9)
	if m.Get(0, 1) != 0 {
		t.Error("Clone shares storage with original")
	}
}
