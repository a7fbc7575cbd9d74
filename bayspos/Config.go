package bayspos

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfig is returned for invalid model configurations.
var ErrConfig = errors.New("invalid configuration")

// HyperParameters are the smoothing weights of every model variant.
type HyperParameters struct {
	Alpha             float64 `yaml:"alpha"` // document-topic
	Beta              float64 `yaml:"beta"`  // topic-word
	Gamma             float64 `yaml:"gamma"` // state transitions
	Delta             float64 `yaml:"delta"` // state-word
	Psi               float64 `yaml:"psi"`   // affix | state concentration
	Xi                float64 `yaml:"xi"`    // stem | class concentration
	MuStem            float64 `yaml:"muStem"`
	MuAffix           float64 `yaml:"muAffix"`
	StemBoundaryProb  float64 `yaml:"stemBoundaryProb"`
	AffixBoundaryProb float64 `yaml:"affixBoundaryProb"`
}

// Config is the full configuration of a training run.
type Config struct {
	Model  string `yaml:"model"`
	StateC int    `yaml:"stateC"`
	StateF int    `yaml:"stateF"`
	TopicK int    `yaml:"topicK"`

	Hyper    HyperParameters `yaml:"hyper"`
	Schedule Schedule        `yaml:"schedule"`

	InnerIterations  int    `yaml:"innerIterations"`
	DecodeIterations int    `yaml:"decodeIterations"`
	Seed             uint64 `yaml:"seed"`
	ResampleHyper    bool   `yaml:"resampleHyper"`
	HyperSteps       int    `yaml:"hyperSteps"`
	Lower            bool   `yaml:"lower"`
	Progress         bool   `yaml:"progress"`
	TopN             int    `yaml:"topN"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Model:  "m1",
		StateC: 5,
		StateF: 10,
		TopicK: 10,
		Hyper: HyperParameters{
			Alpha:             0.1,
			Beta:              0.01,
			Gamma:             0.1,
			Delta:             0.1,
			Psi:               1.0,
			Xi:                1.0,
			MuStem:            1.0,
			MuAffix:           1.0,
			StemBoundaryProb:  0.2,
			AffixBoundaryProb: 0.5,
		},
		Schedule: Schedule{
			InitialTemperature:   1.0,
			TargetTemperature:    1.0,
			TemperatureDecrement: 0.1,
		},
		InnerIterations:  100,
		DecodeIterations: 10,
		Seed:             1,
		HyperSteps:       10,
		TopN:             20,
	}
}

// LoadConfig reads a YAML configuration over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %v: %w", path, err)
	}
	return cfg, nil
}

func positive(name string, v float64) error {
	if !(v > 0.0) {
		return fmt.Errorf("%v = %v should be bigger than 0: %w", name, v, ErrConfig)
	}
	return nil
}

// Validate checks the hyperparameters used by modelConfig.
func (hyper HyperParameters) Validate(modelConfig ModelConfig) error {
	checks := []struct {
		name string
		v    float64
		used bool
	}{
		{"alpha", hyper.Alpha, modelConfig.Topics},
		{"beta", hyper.Beta, modelConfig.Topics && modelConfig.Morph == MorphNone},
		{"gamma", hyper.Gamma, true},
		{"delta", hyper.Delta, modelConfig.Morph == MorphNone},
		{"psi", hyper.Psi, modelConfig.Morph != MorphNone},
		{"xi", hyper.Xi, modelConfig.Morph != MorphNone},
		{"muStem", hyper.MuStem, modelConfig.Morph != MorphNone},
		{"muAffix", hyper.MuAffix, modelConfig.Morph != MorphNone},
	}
	for _, c := range checks {
		if !c.used {
			continue
		}
		if err := positive(c.name, c.v); err != nil {
			return err
		}
	}
	if modelConfig.Morph == MorphHDP {
		for _, p := range []struct {
			name string
			v    float64
		}{{"stemBoundaryProb", hyper.StemBoundaryProb}, {"affixBoundaryProb", hyper.AffixBoundaryProb}} {
			if !(p.v > 0.0 && p.v < 1.0) {
				return fmt.Errorf("%v = %v should be in (0, 1): %w", p.name, p.v, ErrConfig)
			}
		}
	}
	return nil
}
