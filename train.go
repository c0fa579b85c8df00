package crbm

import (
	"log"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Train runs CD training over a single frame sequence for the given number of
// epochs. data is a (seqLen, NVisible) matrix of consecutive frames; the first
// Delay frames only ever serve as history. Returns the mean monitoring cost of
// each epoch.
func Train(m *CRBM, data *tensor.Dense, epochs int) ([]float32, error) {
	shape := data.Shape()
	if len(shape) != 2 || shape[1] != m.NVisible {
		return nil, errors.Errorf("data has shape %v, want (*, %d)", shape, m.NVisible)
	}
	seqLen := shape[0]
	if seqLen < m.Delay+m.BatchSize {
		return nil, errors.Errorf("sequence of %d frames is too short for delay %d and batch size %d", seqLen, m.Delay, m.BatchSize)
	}
	frames, err := native.MatrixF32(data)
	if err != nil {
		return nil, err
	}

	// every frame with a full history window behind it is a valid start
	index := make([]int, 0, seqLen-m.Delay)
	for i := m.Delay; i < seqLen; i++ {
		index = append(index, i)
	}
	batches := len(index) / m.BatchSize
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	costs := make([]float32, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		r.Shuffle(len(index), func(i, j int) { index[i], index[j] = index[j], index[i] })

		var epochCost float32
		for b := 0; b < batches; b++ {
			x, xHist := m.batch(frames, index[b*m.BatchSize:(b+1)*m.BatchSize])
			cost, err := m.Step(x, xHist)
			if err != nil {
				return costs, err
			}
			if math32.IsNaN(cost) || math32.IsInf(cost, 0) {
				return costs, errors.Errorf("epoch %d batch %d: cost diverged (%v)", epoch, b, cost)
			}
			epochCost += cost
		}
		epochCost /= float32(batches)
		log.Printf("Training epoch %d, cost %v", epoch, epochCost)
		costs = append(costs, epochCost)
	}
	return costs, nil
}

// batch assembles the visible batch and its flattened history windows for the
// given start frames. History rows are most-recent-first: frame t-1 first,
// frame t-Delay last, matching the row layout of A and B.
func (m *CRBM) batch(frames [][]float32, idx []int) (x, xHist *tensor.Dense) {
	nv, nhist := m.NVisible, m.NVisible*m.Delay
	xb := make([]float32, 0, len(idx)*nv)
	hb := make([]float32, 0, len(idx)*nhist)
	for _, t := range idx {
		xb = append(xb, frames[t]...)
		for d := 1; d <= m.Delay; d++ {
			hb = append(hb, frames[t-d]...)
		}
	}
	x = tensor.New(tensor.WithShape(len(idx), nv), tensor.WithBacking(xb))
	xHist = tensor.New(tensor.WithShape(len(idx), nhist), tensor.WithBacking(hb))
	return x, xHist
}
