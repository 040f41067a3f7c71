package training

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/pthm-cable/smarticles/neural"
)

// CodecVersion is the batch format written by Encode.
const CodecVersion = 1

const codecMagic = "smarticles/batch"

// ErrCodecVersion is returned by Decode for data written by an unknown
// format version.
var ErrCodecVersion = errors.New("training: unsupported batch format version")

type batchHeader struct {
	Magic   string
	Version int
}

type batchPayload struct {
	Generation uint64
	Networks   []networkPayload
}

type networkPayload struct {
	Layers []layerPayload
}

type layerPayload struct {
	InputSize  int
	OutputSize int
	Weights    []float32
	Biases     []float32
	Activation uint8
}

// Encode writes b to w.
func Encode(w io.Writer, b *Batch) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(batchHeader{Magic: codecMagic, Version: CodecVersion}); err != nil {
		return fmt.Errorf("encoding batch header: %w", err)
	}

	p := batchPayload{Generation: b.Generation, Networks: make([]networkPayload, len(b.Networks))}
	for i, n := range b.Networks {
		layers := make([]layerPayload, len(n.Layers))
		for j, l := range n.Layers {
			layers[j] = layerPayload{
				InputSize:  l.InputSize,
				OutputSize: l.OutputSize,
				Weights:    l.Weights,
				Biases:     l.Biases,
				Activation: uint8(l.Activation),
			}
		}
		p.Networks[i] = networkPayload{Layers: layers}
	}
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	return nil
}

// Decode reads a batch written by Encode and checks every network's layer
// chain.
func Decode(r io.Reader) (*Batch, error) {
	dec := gob.NewDecoder(r)

	var h batchHeader
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding batch header: %w", err)
	}
	if h.Magic != codecMagic {
		return nil, fmt.Errorf("decoding batch header: bad magic %q", h.Magic)
	}
	if h.Version != CodecVersion {
		return nil, fmt.Errorf("%w: %d", ErrCodecVersion, h.Version)
	}

	var p batchPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}

	b := &Batch{Generation: p.Generation, Networks: make([]*neural.Network, len(p.Networks))}
	for i, np := range p.Networks {
		layers := make([]neural.Layer, len(np.Layers))
		for j, lp := range np.Layers {
			layers[j] = neural.Layer{
				InputSize:  lp.InputSize,
				OutputSize: lp.OutputSize,
				Weights:    lp.Weights,
				Biases:     lp.Biases,
				Activation: neural.Activation(lp.Activation),
			}
		}
		n, err := neural.FromLayers(layers)
		if err != nil {
			return nil, fmt.Errorf("decoding network %d: %w", i, err)
		}
		b.Networks[i] = n
	}
	return b, nil
}
