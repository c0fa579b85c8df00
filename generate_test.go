package crbm

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestGenerate(t *testing.T) {
	m := testModel(t, smallConf)
	seedBacking := make([]float32, smallConf.Delay*smallConf.NVisible)
	for i := range seedBacking {
		seedBacking[i] = float32(i%3) * 0.1
	}
	seed := tensor.New(tensor.WithShape(smallConf.Delay, smallConf.NVisible), tensor.WithBacking(seedBacking))

	gen, err := m.Generate(seed, 7, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !gen.Shape().Eq(tensor.Shape{7, smallConf.NVisible}) {
		t.Fatalf("generated shape %v, want (7, %d)", gen.Shape(), smallConf.NVisible)
	}
	for i, v := range gen.Data().([]float32) {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Errorf("generated value %d is %v", i, v)
		}
	}
}

func TestGenerateRejectsBadArgs(t *testing.T) {
	m := testModel(t, smallConf)
	good := tensor.New(tensor.Of(Float), tensor.WithShape(smallConf.Delay, smallConf.NVisible))
	bad := tensor.New(tensor.Of(Float), tensor.WithShape(smallConf.Delay+1, smallConf.NVisible))

	if _, err := m.Generate(bad, 5, 1); err == nil {
		t.Error("a seed with the wrong number of frames must be rejected")
	}
	if _, err := m.Generate(good, 0, 1); err == nil {
		t.Error("n < 1 must be rejected")
	}
	if _, err := m.Generate(good, 5, 0); err == nil {
		t.Error("gibbsIters < 1 must be rejected")
	}
}
