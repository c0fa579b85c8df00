package crbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func TestStepRejectsInvalidK(t *testing.T) {
	m := testModel(t, smallConf)
	m.K = 0
	x, xHist := randomBatch(smallConf, 4, 1)
	if _, err := m.Step(x, xHist); err == nil {
		t.Error("k = 0 must be rejected, not treated as the positive phase")
	}
	m.K = -1
	if _, err := m.Step(x, xHist); err == nil {
		t.Error("negative k must be rejected")
	}
}

func TestStepRejectsMismatchedBatch(t *testing.T) {
	m := testModel(t, smallConf)
	x, _ := randomBatch(smallConf, 4, 1)
	_, xHist := randomBatch(smallConf, 6, 1)
	if _, err := m.Step(x, xHist); err == nil {
		t.Error("mismatched batch sizes must be rejected")
	}
}

// applying identical gradients must move A exactly 100x slower than the other
// parameters.
func TestApplyDampsAutoregressiveUpdates(t *testing.T) {
	assert := assert.New(t)
	m := testModel(t, smallConf)
	p := m.Params

	for _, g := range []*tensor.Dense{p.gradW, p.gradA, p.gradB, p.gradHBias, p.gradVBias} {
		if err := g.Memset(float32(1)); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	wBefore := append([]float32(nil), p.W.Data().([]float32)...)
	aBefore := append([]float32(nil), p.A.Data().([]float32)...)
	hbBefore := append([]float32(nil), p.HBias.Data().([]float32)...)

	if err := m.apply(); err != nil {
		t.Fatalf("%+v", err)
	}

	lr := float32(m.LearnRate)
	wAfter := p.W.Data().([]float32)
	for i := range wAfter {
		assert.InDelta(float64(-lr), float64(wAfter[i]-wBefore[i]), 1e-6, "W[%d]", i)
	}
	hbAfter := p.HBias.Data().([]float32)
	for i := range hbAfter {
		assert.InDelta(float64(-lr), float64(hbAfter[i]-hbBefore[i]), 1e-6, "hbias[%d]", i)
	}
	aAfter := p.A.Data().([]float32)
	for i := range aAfter {
		assert.InDelta(float64(-aDamping*lr), float64(aAfter[i]-aBefore[i]), 1e-7, "A[%d]", i)
	}
}

// the CD gradients are closed-form; check them against central finite
// differences of mean(FE(x)) - mean(FE(vNeg)) with vNeg held fixed.
func TestCDGradientsMatchFiniteDifferences(t *testing.T) {
	conf := Config{NVisible: 3, NHidden: 4, Delay: 2, LearnRate: 1e-3, K: 1, BatchSize: 4, InitSeed: 3}
	m := testModel(t, conf)

	x, xHist := randomBatch(conf, 4, 11)
	vNeg := x.Clone().(*tensor.Dense)
	vd := vNeg.Data().([]float32)
	for i := range vd {
		vd[i] += 0.3 * float32(i%5-2)
	}

	_, pPos, err := m.PropUp(x, xHist)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, pNeg, err := m.PropUp(vNeg, xHist)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := m.cdGrads(x, xHist, pPos, vNeg, pNeg); err != nil {
		t.Fatalf("%+v", err)
	}

	cost := func() float64 {
		fePos, err := m.FreeEnergy(x, xHist)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		feNeg, err := m.FreeEnergy(vNeg, xHist)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		return meanOf(fePos) - meanOf(feNeg)
	}

	const eps = 1e-2
	for _, c := range []struct {
		name        string
		value, grad *tensor.Dense
	}{
		{"W", m.Params.W, m.Params.gradW},
		{"A", m.Params.A, m.Params.gradA},
		{"B", m.Params.B, m.Params.gradB},
		{"hbias", m.Params.HBias, m.Params.gradHBias},
		{"vbias", m.Params.VBias, m.Params.gradVBias},
	} {
		data := c.value.Data().([]float32)
		grad := c.grad.Data().([]float32)
		for _, i := range []int{0, len(data) / 2, len(data) - 1} {
			orig := data[i]
			data[i] = orig + eps
			up := cost()
			data[i] = orig - eps
			down := cost()
			data[i] = orig

			fd := (up - down) / (2 * eps)
			assert.InDeltaf(t, fd, float64(grad[i]), 5e-3, "%s[%d]", c.name, i)
		}
	}
}

func meanOf(v *tensor.Dense) float64 {
	data := v.Data().([]float32)
	var sum float64
	for _, x := range data {
		sum += float64(x)
	}
	return sum / float64(len(data))
}

func TestStepFiniteAndMovesParameters(t *testing.T) {
	m := testModel(t, smallConf)
	before := m.Params.W.Clone().(*tensor.Dense)

	x, xHist := randomBatch(smallConf, smallConf.BatchSize, 19)
	cost, err := m.Step(x, xHist)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.IsNaN(float64(cost)) || math.IsInf(float64(cost), 0) {
		t.Fatalf("monitoring cost is %v", cost)
	}
	assert.NotEqual(t, before.Data(), m.Params.W.Data(), "a step must move the weights")
}

func TestStepCDkChain(t *testing.T) {
	conf := smallConf
	conf.K = 3
	m := testModel(t, conf)
	x, xHist := randomBatch(conf, conf.BatchSize, 29)
	cost, err := m.Step(x, xHist)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.IsNaN(float64(cost)) || math.IsInf(float64(cost), 0) {
		t.Fatalf("monitoring cost is %v", cost)
	}
}

// gradient descent sanity: training repeatedly on one batch should lower the
// reconstruction cost on average.
func TestStepLowersCostOverTime(t *testing.T) {
	conf := Config{NVisible: 4, NHidden: 8, Delay: 3, LearnRate: 0.01, K: 1, BatchSize: 16, InitSeed: 13}
	m := testModel(t, conf)
	x, xHist := randomBatch(conf, conf.BatchSize, 37)

	const steps = 300
	costs := make([]float64, steps)
	for i := 0; i < steps; i++ {
		cost, err := m.Step(x, xHist)
		if err != nil {
			t.Fatalf("step %d: %+v", i, err)
		}
		costs[i] = float64(cost)
	}

	var head, tail float64
	for i := 0; i < 20; i++ {
		head += costs[i]
		tail += costs[steps-1-i]
	}
	if tail >= head {
		t.Errorf("expected the cost to fall: first 20 steps averaged %v, last 20 averaged %v", head/20, tail/20)
	}
}
