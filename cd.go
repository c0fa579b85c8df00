package crbm

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

// aDamping slows the autoregressive weight updates relative to the other
// parameters.
const aDamping = 0.01

// Step performs one CD-k update on a batch: a positive phase on (x, xHist), a
// k-step hidden→visible→hidden chain conditioned on the same history, then a
// parameter update from the closed-form gradient of
//
//	mean(FreeEnergy(x)) - mean(FreeEnergy(chainEnd))
//
// with the chain end held constant. It returns the mean squared reconstruction
// error between x and the chain's final visible mean, a smoother and cheaper
// monitoring proxy than the free-energy difference itself.
func (m *CRBM) Step(x, xHist *tensor.Dense) (float32, error) {
	cost, err := m.gradients(x, xHist)
	if err != nil {
		return 0, err
	}
	if err := m.apply(); err != nil {
		return 0, err
	}
	return cost, nil
}

// gradients runs both CD phases and leaves the parameter gradients in the
// store.
func (m *CRBM) gradients(x, xHist *tensor.Dense) (float32, error) {
	if m.K < 1 {
		return 0, errors.Errorf("CD-k needs k >= 1, got %d", m.K)
	}
	if err := m.checkBatch(x, xHist); err != nil {
		return 0, err
	}

	// positive phase
	_, phMean, phSample, err := m.SampleHGivenV(x, xHist)
	if err != nil {
		return 0, err
	}

	// negative phase: k Gibbs steps chained from the positive hidden sample,
	// every step conditioned on the same history. Only the final state is
	// kept.
	var nvMean, nvSample, nhMean *tensor.Dense
	nhSample := phSample
	for i := 0; i < m.K; i++ {
		if nvMean, nvSample, _, nhMean, nhSample, err = m.GibbsHVH(nhSample, xHist); err != nil {
			return 0, err
		}
	}

	// nhMean of the last step is the hidden activation probability of the
	// chain end, which is exactly the negative-phase term the gradients need.
	if err := m.cdGrads(x, xHist, phMean, nvSample, nhMean); err != nil {
		return 0, err
	}
	return reconstructionCost(x, nvMean)
}

// cdGrads fills the parameter gradients of
// mean(FE(x)) - mean(FE(vNeg)), treating vNeg as a constant. pPos and pNeg are
// the hidden activation probabilities of x and vNeg. Everything reduces to
// batch means of products of known activations, so no gradient flows through
// the sampling chain.
func (m *CRBM) cdGrads(x, hist, pPos, vNeg, pNeg *tensor.Dense) error {
	p := m.Params
	scale := 1 / float32(x.Shape()[0])

	// dW = (vNegᵀ·pNeg - xᵀ·pPos) / batch
	if err := matmulT1(vNeg, pNeg, p.gradW); err != nil {
		return err
	}
	posW := tensor.New(tensor.Of(Float), tensor.WithShape(p.gradW.Shape()...))
	if err := matmulT1(x, pPos, posW); err != nil {
		return err
	}
	gw := p.gradW.Data().([]float32)
	vecf32.Sub(gw, posW.Data().([]float32))
	vecf32.Scale(gw, scale)

	diffV, err := tensor.Sub(vNeg, x)
	if err != nil {
		return err
	}
	diffP, err := tensor.Sub(pNeg, pPos)
	if err != nil {
		return err
	}

	// the autoregressive and visible-bias terms share their history factor
	// across phases, so only the visible difference remains:
	// dA = histᵀ·(vNeg - x) / batch, dvbias = colMean(vNeg - x)
	if err := matmulT1(hist, diffV.(*tensor.Dense), p.gradA); err != nil {
		return err
	}
	vecf32.Scale(p.gradA.Data().([]float32), scale)
	if err := colMean(diffV.(*tensor.Dense), p.gradVBias); err != nil {
		return err
	}

	// dB = histᵀ·(pNeg - pPos) / batch, dhbias = colMean(pNeg - pPos)
	if err := matmulT1(hist, diffP.(*tensor.Dense), p.gradB); err != nil {
		return err
	}
	vecf32.Scale(p.gradB.Data().([]float32), scale)
	return colMean(diffP.(*tensor.Dense), p.gradHBias)
}

// apply scales the autoregressive gradient by its damping factor and lets the
// solver take one step over all five parameters.
func (m *CRBM) apply() error {
	vecf32.Scale(m.Params.gradA.Data().([]float32), aDamping)
	return m.solver.Step(m.Params.model())
}

// reconstructionCost is the squared error between the input and the chain's
// final visible mean, summed over dimensions and averaged over the batch.
func reconstructionCost(x, nvMean *tensor.Dense) (float32, error) {
	xr, err := native.MatrixF32(x)
	if err != nil {
		return 0, err
	}
	nr, err := native.MatrixF32(nvMean)
	if err != nil {
		return 0, err
	}
	var total float32
	for r := range xr {
		for c := range xr[r] {
			d := xr[r][c] - nr[r][c]
			total += d * d
		}
	}
	return total / float32(len(xr)), nil
}
