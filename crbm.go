// Package crbm implements a conditional restricted Boltzmann machine for
// short windows of continuous sequence data such as motion capture frames.
//
// The model follows Taylor, Hinton and Roweis (NIPS 2006): Gaussian visible
// units whose conditional distribution is shifted by an autoregressive window
// of preceding frames, binary hidden units, trained with contrastive
// divergence.
package crbm

import (
	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// CRBM is a conditional restricted Boltzmann machine.
//
// Construct with New (or a struct literal holding a Config) and call Init
// before use. Setting Params before Init makes the model use, and update, a
// shared parameter store instead of allocating its own.
type CRBM struct {
	Config

	// Params is the parameter store. Left nil, Init allocates an owned store;
	// point it at an existing store before Init to share weights between
	// models.
	Params *Params

	sampler *rng.UniformGenerator
	solver  G.Solver
}

// New returns a new, uninitialized *CRBM.
func New(conf Config) *CRBM {
	return &CRBM{Config: conf}
}

// Init validates the configuration and prepares the model for use.
func (m *CRBM) Init() error {
	if !m.IsValid() {
		return errors.Errorf("invalid config %+v", m.Config)
	}
	if m.Params == nil {
		m.Params = NewParams(m.Config)
	} else if err := m.Params.check(m.Config); err != nil {
		return errors.Wrap(err, "shared parameters")
	}
	m.sampler = rng.NewUniformGenerator(m.sampleSeed())
	m.solver = G.NewVanillaSolver(G.WithLearnRate(m.LearnRate))
	return nil
}

func (m *CRBM) checkBatch(v, hist *tensor.Dense) error {
	vs, hs := v.Shape(), hist.Shape()
	if len(vs) != 2 || vs[1] != m.NVisible {
		return errors.Errorf("visible batch has shape %v, want (*, %d)", vs, m.NVisible)
	}
	if len(hs) != 2 || hs[1] != m.NVisible*m.Delay {
		return errors.Errorf("history batch has shape %v, want (*, %d)", hs, m.NVisible*m.Delay)
	}
	if vs[0] != hs[0] {
		return errors.Errorf("visible batch has %d rows but history has %d", vs[0], hs[0])
	}
	return nil
}

func (m *CRBM) checkHidden(h, hist *tensor.Dense) error {
	hsh, hs := h.Shape(), hist.Shape()
	if len(hsh) != 2 || hsh[1] != m.NHidden {
		return errors.Errorf("hidden batch has shape %v, want (*, %d)", hsh, m.NHidden)
	}
	if len(hs) != 2 || hs[1] != m.NVisible*m.Delay {
		return errors.Errorf("history batch has shape %v, want (*, %d)", hs, m.NVisible*m.Delay)
	}
	if hsh[0] != hs[0] {
		return errors.Errorf("hidden batch has %d rows but history has %d", hsh[0], hs[0])
	}
	return nil
}

// hiddenPre computes v·W + history·B + hbias.
func (m *CRBM) hiddenPre(v, hist *tensor.Dense) (*tensor.Dense, error) {
	vw, err := matmul(v, m.Params.W)
	if err != nil {
		return nil, errors.Wrap(err, "v·W")
	}
	hb, err := matmul(hist, m.Params.B)
	if err != nil {
		return nil, errors.Wrap(err, "history·B")
	}
	pre, err := tensor.Add(vw, hb, tensor.UseUnsafe())
	if err != nil {
		return nil, err
	}
	if err := addBias(pre.(*tensor.Dense), m.Params.HBias); err != nil {
		return nil, err
	}
	return pre.(*tensor.Dense), nil
}

// visiblePre computes history·A + vbias, the autoregressive shift of the
// visible layer.
func (m *CRBM) visiblePre(hist *tensor.Dense) (*tensor.Dense, error) {
	ha, err := matmul(hist, m.Params.A)
	if err != nil {
		return nil, errors.Wrap(err, "history·A")
	}
	if err := addBias(ha, m.Params.VBias); err != nil {
		return nil, err
	}
	return ha, nil
}

// FreeEnergy computes the free energy of each row of v conditioned on its
// history: a Gaussian reconstruction term for the continuous visible layer
// minus the softplus marginalization over the binary hidden units. The
// asymmetry is what distinguishes this model from a binary-binary RBM.
func (m *CRBM) FreeEnergy(v, hist *tensor.Dense) (*tensor.Dense, error) {
	if err := m.checkBatch(v, hist); err != nil {
		return nil, err
	}
	wxb, err := m.hiddenPre(v, hist)
	if err != nil {
		return nil, err
	}
	axb, err := m.visiblePre(hist)
	if err != nil {
		return nil, err
	}

	vRows, err := native.MatrixF32(v)
	if err != nil {
		return nil, err
	}
	wRows, err := native.MatrixF32(wxb)
	if err != nil {
		return nil, err
	}
	aRows, err := native.MatrixF32(axb)
	if err != nil {
		return nil, err
	}

	batch := v.Shape()[0]
	fe := make([]float32, batch)
	for r := 0; r < batch; r++ {
		var visible, hidden float32
		for c, av := range aRows[r] {
			d := vRows[r][c] - av
			visible += 0.5 * d * d
		}
		for _, x := range wRows[r] {
			hidden += softplus(x)
		}
		fe[r] = visible - hidden
	}
	return tensor.New(tensor.WithShape(batch), tensor.WithBacking(fe)), nil
}

// PropUp propagates the visible activations upwards, returning both the
// pre-sigmoid activation and the hidden activation probability. The raw
// pre-activation is kept separate so downstream log/exp terms can be written
// against it without cancellation.
func (m *CRBM) PropUp(v, hist *tensor.Dense) (pre, mean *tensor.Dense, err error) {
	if err = m.checkBatch(v, hist); err != nil {
		return nil, nil, err
	}
	if pre, err = m.hiddenPre(v, hist); err != nil {
		return nil, nil, err
	}
	mean = pre.Clone().(*tensor.Dense)
	data := mean.Data().([]float32)
	for i, x := range data {
		data[i] = sigmoid(x)
	}
	return pre, mean, nil
}

// SampleHGivenV infers the state of the hidden units given the visible units:
// the pre-activation, the activation probability, and a Bernoulli sample drawn
// from it. This is the only stochastic sampling point in the model.
func (m *CRBM) SampleHGivenV(v, hist *tensor.Dense) (pre, mean, sample *tensor.Dense, err error) {
	if pre, mean, err = m.PropUp(v, hist); err != nil {
		return nil, nil, nil, err
	}
	sample = mean.Clone().(*tensor.Dense)
	data := sample.Data().([]float32)
	for i, p := range data {
		if m.sampler.Float32() < p {
			data[i] = 1
		} else {
			data[i] = 0
		}
	}
	return pre, mean, sample, nil
}

// PropDown propagates the hidden activations downwards to the visible units.
// Visible units are Gaussian, so the returned activation is the conditional
// mean with no squashing applied.
func (m *CRBM) PropDown(h, hist *tensor.Dense) (*tensor.Dense, error) {
	if err := m.checkHidden(h, hist); err != nil {
		return nil, err
	}
	hw, err := matmulT2(h, m.Params.W) // h·Wᵀ
	if err != nil {
		return nil, err
	}
	axb, err := m.visiblePre(hist)
	if err != nil {
		return nil, err
	}
	mean, err := tensor.Add(hw, axb, tensor.UseUnsafe())
	if err != nil {
		return nil, err
	}
	return mean.(*tensor.Dense), nil
}

// SampleVGivenH infers the state of the visible units given the hidden units.
// The "sample" is the mean-field activation itself: no Gaussian noise is
// drawn, so both returned tensors alias the same data. The missing noise is a
// property of the model, not an omission.
func (m *CRBM) SampleVGivenH(h, hist *tensor.Dense) (mean, sample *tensor.Dense, err error) {
	if mean, err = m.PropDown(h, hist); err != nil {
		return nil, nil, err
	}
	return mean, mean, nil
}

// GibbsHVH performs one Gibbs step starting from a hidden sample. Both
// half-steps are conditioned on the same fixed history.
func (m *CRBM) GibbsHVH(h, hist *tensor.Dense) (vMean, vSample, hPre, hMean, hSample *tensor.Dense, err error) {
	if vMean, vSample, err = m.SampleVGivenH(h, hist); err != nil {
		return
	}
	hPre, hMean, hSample, err = m.SampleHGivenV(vSample, hist)
	return
}

// GibbsVHV performs one Gibbs step starting from a visible sample.
func (m *CRBM) GibbsVHV(v, hist *tensor.Dense) (hPre, hMean, hSample, vMean, vSample *tensor.Dense, err error) {
	if hPre, hMean, hSample, err = m.SampleHGivenV(v, hist); err != nil {
		return
	}
	vMean, vSample, err = m.SampleVGivenH(hSample, hist)
	return
}
