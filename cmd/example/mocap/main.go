package main

import (
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/gorgonia/crbm"
	gifenc "github.com/gorgonia/crbm/encoding/gif"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

const (
	nVisible  = 8
	seqLen    = 600
	epochs    = 50
	genFrames = 120
	genIters  = 30
)

// synth builds a toy multi-joint motion sequence: phase-shifted sinusoids with
// a little noise, the usual stand-in for mocap joint angles.
func synth(r *rand.Rand) *tensor.Dense {
	backing := make([]float32, seqLen*nVisible)
	for t := 0; t < seqLen; t++ {
		for j := 0; j < nVisible; j++ {
			phase := float64(j) * math.Pi / 4
			backing[t*nVisible+j] = float32(0.8*math.Sin(0.15*float64(t)+phase) + 0.05*r.NormFloat64())
		}
	}
	return tensor.New(tensor.WithShape(seqLen, nVisible), tensor.WithBacking(backing))
}

func main() {
	conf := crbm.DefaultConf(nVisible)
	m := crbm.New(conf)
	if err := m.Init(); err != nil {
		log.Fatalf("%+v", err)
	}

	data := synth(rand.New(rand.NewSource(42)))
	if _, err := crbm.Train(m, data, epochs); err != nil {
		log.Fatalf("%+v", err)
	}

	// seed generation with the tail of the training data, most recent first
	frames, err := native.MatrixF32(data)
	if err != nil {
		log.Fatal(err)
	}
	seedBacking := make([]float32, 0, conf.Delay*nVisible)
	for d := 0; d < conf.Delay; d++ {
		seedBacking = append(seedBacking, frames[seqLen-1-d]...)
	}
	seed := tensor.New(tensor.WithShape(conf.Delay, nVisible), tensor.WithBacking(seedBacking))

	gen, err := m.Generate(seed, genFrames, genIters)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	f, err := os.Create("generated.gif")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	enc := gifenc.NewEncoder(240, 320, 1)
	enc.Writer = f
	genRows, err := native.MatrixF32(gen)
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range genRows {
		if err := enc.Encode(row); err != nil {
			log.Fatal(err)
		}
	}
	if err := enc.Flush(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote generated.gif (%d frames)", genFrames)
}
