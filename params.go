package crbm

import (
	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float is the data type all parameters and activations are stored in.
var Float = tensor.Float32

// Params is the parameter store of a CRBM. A store may be owned by a single
// model or shared between several (e.g. when stacking models that reuse the
// same weights). Sharing is by reference: updates made through one model are
// seen by all.
type Params struct {
	W *tensor.Dense // visible-hidden coupling (nv, nh)
	A *tensor.Dense // history-visible autoregression (nv*delay, nv)
	B *tensor.Dense // history-hidden coupling (nv*delay, nh)

	HBias *tensor.Dense // (nh)
	VBias *tensor.Dense // (nv)

	gradW, gradA, gradB  *tensor.Dense
	gradHBias, gradVBias *tensor.Dense
}

// NewParams allocates a parameter store for conf. Weights are drawn from
// 0.01*N(0, 1) using a stream seeded with conf.InitSeed; biases start at zero.
func NewParams(conf Config) *Params {
	gauss := rng.NewGaussianGenerator(conf.InitSeed)
	nv, nh, nhist := conf.NVisible, conf.NHidden, conf.NVisible*conf.Delay

	return &Params{
		W: gaussianMat(gauss, nv, nh),
		A: gaussianMat(gauss, nhist, nv),
		B: gaussianMat(gauss, nhist, nh),

		HBias: tensor.New(tensor.Of(Float), tensor.WithShape(nh)),
		VBias: tensor.New(tensor.Of(Float), tensor.WithShape(nv)),

		gradW:     tensor.New(tensor.Of(Float), tensor.WithShape(nv, nh)),
		gradA:     tensor.New(tensor.Of(Float), tensor.WithShape(nhist, nv)),
		gradB:     tensor.New(tensor.Of(Float), tensor.WithShape(nhist, nh)),
		gradHBias: tensor.New(tensor.Of(Float), tensor.WithShape(nh)),
		gradVBias: tensor.New(tensor.Of(Float), tensor.WithShape(nv)),
	}
}

func gaussianMat(gauss *rng.GaussianGenerator, rows, cols int) *tensor.Dense {
	backing := make([]float32, rows*cols)
	for i := range backing {
		backing[i] = 0.01 * float32(gauss.Gaussian(0, 1))
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// check verifies that the store matches the dimensions of conf. Shared stores
// go through this at Init.
func (p *Params) check(conf Config) error {
	nv, nh, nhist := conf.NVisible, conf.NHidden, conf.NVisible*conf.Delay
	for _, c := range []struct {
		name string
		t    *tensor.Dense
		want tensor.Shape
	}{
		{"W", p.W, tensor.Shape{nv, nh}},
		{"A", p.A, tensor.Shape{nhist, nv}},
		{"B", p.B, tensor.Shape{nhist, nh}},
		{"hbias", p.HBias, tensor.Shape{nh}},
		{"vbias", p.VBias, tensor.Shape{nv}},
	} {
		if c.t == nil {
			return errors.Errorf("parameter %v is nil", c.name)
		}
		if !c.t.Shape().Eq(c.want) {
			return errors.Errorf("parameter %v has shape %v, want %v", c.name, c.t.Shape(), c.want)
		}
	}
	return nil
}

// param adapts one parameter tensor and its gradient to the solver interface.
type param struct {
	name        string
	value, grad *tensor.Dense
}

func (p *param) Name() string           { return p.name }
func (p *param) Value() G.Value         { return p.value }
func (p *param) Grad() (G.Value, error) { return p.grad, nil }

// model returns the five parameters in the fixed update order W, A, B, hbias,
// vbias.
func (p *Params) model() []G.ValueGrad {
	return []G.ValueGrad{
		&param{"W", p.W, p.gradW},
		&param{"A", p.A, p.gradA},
		&param{"B", p.B, p.gradB},
		&param{"hbias", p.HBias, p.gradHBias},
		&param{"vbias", p.VBias, p.gradVBias},
	}
}
