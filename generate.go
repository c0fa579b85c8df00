package crbm

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Generate synthesizes n frames by free-running the model. seed is a
// (Delay, NVisible) matrix of history frames, most recent first. Each output
// frame is the result of gibbsIters visible→hidden→visible transitions
// conditioned on the current history, started from the most recent frame; the
// final mean-field visible activation is emitted and shifted into the history.
// Returns an (n, NVisible) matrix.
func (m *CRBM) Generate(seed *tensor.Dense, n, gibbsIters int) (*tensor.Dense, error) {
	shape := seed.Shape()
	if len(shape) != 2 || shape[0] != m.Delay || shape[1] != m.NVisible {
		return nil, errors.Errorf("seed has shape %v, want (%d, %d)", shape, m.Delay, m.NVisible)
	}
	if n < 1 || gibbsIters < 1 {
		return nil, errors.Errorf("need n >= 1 and gibbsIters >= 1, got %d and %d", n, gibbsIters)
	}
	seedRows, err := native.MatrixF32(seed)
	if err != nil {
		return nil, err
	}

	nv := m.NVisible
	history := make([]float32, 0, m.Delay*nv)
	for _, row := range seedRows {
		history = append(history, row...)
	}
	current := append([]float32(nil), seedRows[0]...)

	out := make([]float32, 0, n*nv)
	for i := 0; i < n; i++ {
		hist := tensor.New(tensor.WithShape(1, m.Delay*nv), tensor.WithBacking(append([]float32(nil), history...)))
		v := tensor.New(tensor.WithShape(1, nv), tensor.WithBacking(append([]float32(nil), current...)))

		var vMean *tensor.Dense
		for j := 0; j < gibbsIters; j++ {
			if _, _, _, vMean, _, err = m.GibbsVHV(v, hist); err != nil {
				return nil, err
			}
			v = vMean
		}
		frame := vMean.Data().([]float32)
		out = append(out, frame...)

		// shift the new frame in as the most recent tap
		copy(history[nv:], history[:len(history)-nv])
		copy(history[:nv], frame)
		current = append(current[:0], frame...)
	}
	return tensor.New(tensor.WithShape(n, nv), tensor.WithBacking(out)), nil
}
