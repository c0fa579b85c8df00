package crbm

import "math/rand"

// Config describes the shape and the training hyperparameters of a CRBM.
type Config struct {
	NVisible int // visible units per frame
	NHidden  int // hidden units
	Delay    int // history taps

	LearnRate float64
	K         int // Gibbs steps per CD update
	BatchSize int

	// InitSeed seeds the parameter initialization stream. SampleSeed seeds the
	// hidden sampling stream; when zero it is derived from InitSeed.
	InitSeed   int64
	SampleSeed int64
}

// DefaultConf returns the configuration used by the mocap demo.
func DefaultConf(nVisible int) Config {
	return Config{
		NVisible:  nVisible,
		NHidden:   20,
		Delay:     6,
		LearnRate: 1e-3,
		K:         1,
		BatchSize: 100,
		InitSeed:  1234,
	}
}

func (conf Config) IsValid() bool {
	return conf.NVisible >= 1 &&
		conf.NHidden >= 1 &&
		conf.Delay >= 1 &&
		conf.LearnRate > 0 &&
		conf.K >= 1 &&
		conf.BatchSize >= 1
}

func (conf Config) sampleSeed() int64 {
	if conf.SampleSeed != 0 {
		return conf.SampleSeed
	}
	return rand.New(rand.NewSource(conf.InitSeed)).Int63n(1 << 30)
}
