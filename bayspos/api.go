package bayspos

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownModel is returned by GenerateBHMM for a model name it does not know.
var ErrUnknownModel = errors.New("unknown model")

// MorphKind selects the emission of morphology models.
type MorphKind int

const (
	// MorphNone emits whole words.
	MorphNone MorphKind = iota
	// MorphDP emits stem and affix from DPs over Dirichlet bases.
	MorphDP
	// MorphHDP emits stem and affix from DPs over hierarchical bases backed by a character model.
	MorphHDP
)

func (morph MorphKind) String() string {
	switch morph {
	case MorphNone:
		return "none"
	case MorphDP:
		return "dp"
	case MorphHDP:
		return "hdp"
	}
	return fmt.Sprintf("MorphKind(%d)", int(morph))
}

// ModelConfig is the shape of one model variant.
type ModelConfig struct {
	Order  int // 1 bigram, 2 trigram
	Topics bool
	Morph  MorphKind
}

var modelConfigs = map[string]ModelConfig{
	"m1":  {Order: 1},
	"m2":  {Order: 2},
	"m3":  {Order: 1, Topics: true},
	"m4":  {Order: 2, Topics: true},
	"m5":  {Order: 1, Morph: MorphDP},
	"m6":  {Order: 2, Morph: MorphDP},
	"m7":  {Order: 1, Morph: MorphHDP},
	"m8":  {Order: 2, Morph: MorphHDP},
	"m9":  {Order: 1, Topics: true, Morph: MorphHDP},
	"m10": {Order: 2, Topics: true, Morph: MorphHDP},
}

// LookupModel returns the ModelConfig of name.
func LookupModel(name string) (ModelConfig, error) {
	modelConfig, ok := modelConfigs[name]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%q (known %v): %w", name, ModelNames(), ErrUnknownModel)
	}
	return modelConfig, nil
}

// ModelNames returns every known model name, m1 first.
func ModelNames() []string {
	names := make([]string, 0, len(modelConfigs))
	for name := range modelConfigs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// GenerateBHMM returns the model named cfg.Model over data, with its count arrays built and zeroed.
func GenerateBHMM(cfg Config, data *DataContainer) (*BHMM, error) {
	modelConfig, err := LookupModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	if err := validate(modelConfig, cfg, data); err != nil {
		return nil, err
	}
	return newBHMM(modelConfig, cfg, data), nil
}

func validate(modelConfig ModelConfig, cfg Config, data *DataContainer) error {
	if cfg.StateC < 1 {
		return fmt.Errorf("stateC = %v should be at least 1: %w", cfg.StateC, ErrConfig)
	}
	if cfg.StateF < 0 {
		return fmt.Errorf("stateF = %v should not be negative: %w", cfg.StateF, ErrConfig)
	}
	if cfg.StateC+cfg.StateF < 2 && !modelConfig.Topics {
		return fmt.Errorf("stateC + stateF = %v should be at least 2: %w", cfg.StateC+cfg.StateF, ErrConfig)
	}
	if modelConfig.Topics && cfg.TopicK < 1 {
		return fmt.Errorf("topicK = %v should be at least 1: %w", cfg.TopicK, ErrConfig)
	}
	if cfg.InnerIterations < 1 {
		return fmt.Errorf("innerIterations = %v should be at least 1: %w", cfg.InnerIterations, ErrConfig)
	}
	if err := cfg.Hyper.Validate(modelConfig); err != nil {
		return err
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return err
	}
	if data == nil || data.NumTokens() == 0 {
		return fmt.Errorf("training data has no tokens: %w", ErrConfig)
	}
	if data.Padding < modelConfig.Order {
		return fmt.Errorf("padding %v is shorter than order %v: %w", data.Padding, modelConfig.Order, ErrConfig)
	}
	return nil
}
