package bayspos

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Annealer turns unnormalized candidate weights into a choice.
type Annealer interface {
	// Anneal rewrites weights in place and returns their sum.
	Anneal(weights []float64) float64
	// Select picks an index of weights whose sum is total.
	Select(weights []float64, total float64, rng *rand.Rand) int
}

// TemperatureAnnealer samples from weights raised to 1/temperature.
type TemperatureAnnealer struct {
	Temperature float64
	Exponent    float64
}

// NewTemperatureAnnealer returns TemperatureAnnealer instance.
func NewTemperatureAnnealer(temperature float64) *TemperatureAnnealer {
	if !(temperature > 0.0) {
		errMsg := fmt.Sprintf("range of temperature is 0.0 to inf (exclusive), got %v", temperature)
		panic(errMsg)
	}
	return &TemperatureAnnealer{Temperature: temperature, Exponent: 1.0 / temperature}
}

// Anneal raises every weight to 1/temperature. Weights are scaled by their maximum first, which keeps ratios.
func (annealer *TemperatureAnnealer) Anneal(weights []float64) float64 {
	if annealer.Exponent == 1.0 {
		return floats.Sum(weights)
	}
	max := floats.Max(weights)
	if !(max > 0.0) {
		return 0.0
	}
	for i, w := range weights {
		weights[i] = math.Pow(w/max, annealer.Exponent)
	}
	return floats.Sum(weights)
}

// Select walks the cumulative sum until it exceeds a uniform draw scaled by total.
func (annealer *TemperatureAnnealer) Select(weights []float64, total float64, rng *rand.Rand) int {
	if !(total > 0.0) || math.IsInf(total, 0) {
		errMsg := fmt.Sprintf("sampling error. total weight is %v, weights (%v)", total, weights)
		panic(errMsg)
	}
	r := rng.Float64() * total
	sum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0.0 {
			continue
		}
		sum += w
		last = i
		if sum > r {
			return i
		}
	}
	// r fell into the rounding gap between sum and total
	return last
}

// MaximumPosteriorDecoder always selects the heaviest candidate, the lowest index on ties.
type MaximumPosteriorDecoder struct{}

// Anneal leaves weights unchanged.
func (decoder MaximumPosteriorDecoder) Anneal(weights []float64) float64 {
	return floats.Sum(weights)
}

// Select returns the argmax of weights.
func (decoder MaximumPosteriorDecoder) Select(weights []float64, total float64, rng *rand.Rand) int {
	if math.IsNaN(total) || !(floats.Max(weights) > 0.0) {
		errMsg := fmt.Sprintf("decoding error. weights (%v)", weights)
		panic(errMsg)
	}
	return floats.MaxIdx(weights)
}

// Schedule lowers the temperature once per outer iteration until TargetTemperature.
type Schedule struct {
	InitialTemperature   float64 `yaml:"initialTemperature"`
	TargetTemperature    float64 `yaml:"targetTemperature"`
	TemperatureDecrement float64 `yaml:"temperatureDecrement"`
}

// Validate checks that the schedule terminates.
func (schedule Schedule) Validate() error {
	if !(schedule.TargetTemperature > 0.0) {
		return fmt.Errorf("targetTemperature %v should be bigger than 0: %w", schedule.TargetTemperature, ErrConfig)
	}
	if schedule.InitialTemperature < schedule.TargetTemperature {
		return fmt.Errorf("initialTemperature %v is lower than targetTemperature %v: %w", schedule.InitialTemperature, schedule.TargetTemperature, ErrConfig)
	}
	if schedule.InitialTemperature > schedule.TargetTemperature && !(schedule.TemperatureDecrement > 0.0) {
		return fmt.Errorf("temperatureDecrement %v should be bigger than 0: %w", schedule.TemperatureDecrement, ErrConfig)
	}
	return nil
}

// Next returns the temperature after temperature and whether the schedule was already at its target.
func (schedule Schedule) Next(temperature float64) (float64, bool) {
	if temperature <= schedule.TargetTemperature {
		return schedule.TargetTemperature, true
	}
	next := temperature - schedule.TemperatureDecrement
	if next < schedule.TargetTemperature {
		next = schedule.TargetTemperature
	}
	return next, false
}
