package crbm

import "testing"

func TestDefaultConf(t *testing.T) {
	if !DefaultConf(49).IsValid() {
		t.Errorf("Expected default config to be valid")
	}
}

var configMutations = []struct {
	name  string
	mut   func(*Config)
	valid bool
}{
	{"default", func(*Config) {}, true},
	{"no visible", func(c *Config) { c.NVisible = 0 }, false},
	{"no hidden", func(c *Config) { c.NHidden = 0 }, false},
	{"no delay", func(c *Config) { c.Delay = 0 }, false},
	{"zero lr", func(c *Config) { c.LearnRate = 0 }, false},
	{"negative lr", func(c *Config) { c.LearnRate = -1 }, false},
	{"zero k", func(c *Config) { c.K = 0 }, false},
	{"negative k", func(c *Config) { c.K = -3 }, false},
	{"zero batch", func(c *Config) { c.BatchSize = 0 }, false},
}

func TestConfigIsValid(t *testing.T) {
	for _, tt := range configMutations {
		conf := DefaultConf(49)
		tt.mut(&conf)
		if conf.IsValid() != tt.valid {
			t.Errorf("%s: IsValid() = %v, want %v", tt.name, conf.IsValid(), tt.valid)
		}
	}
}

func TestSampleSeedDerivation(t *testing.T) {
	conf := DefaultConf(4)
	derived := conf.sampleSeed()
	if derived == conf.InitSeed {
		t.Errorf("derived sampling seed should differ from the init seed")
	}
	if derived != conf.sampleSeed() {
		t.Errorf("derived sampling seed should be deterministic")
	}

	conf.SampleSeed = 99
	if conf.sampleSeed() != 99 {
		t.Errorf("an explicit sampling seed must win, got %d", conf.sampleSeed())
	}
}
