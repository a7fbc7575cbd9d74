package bayspos

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionProb(annealer Annealer, weights []float64, idx int) float64 {
	annealed := append([]float64(nil), weights...)
	total := annealer.Anneal(annealed)
	return annealed[idx] / total
}

func TestAnnealingMonotonicity(t *testing.T) {
	weights := []float64{0.1, 0.5, 0.3, 0.05}
	standard := selectionProb(NewTemperatureAnnealer(1.0), weights, 1)
	prev := standard
	for _, temperature := range []float64{0.9, 0.5, 0.2, 0.05} {
		p := selectionProb(NewTemperatureAnnealer(temperature), weights, 1)
		assert.GreaterOrEqual(t, p, standard)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
	hot := selectionProb(NewTemperatureAnnealer(5.0), weights, 1)
	assert.Less(t, hot, standard)
}

func TestTemperatureAnnealerSelect(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	annealer := NewTemperatureAnnealer(1.0)
	for n := 0; n < 100; n++ {
		weights := []float64{0.0, 1.0, 0.0}
		assert.Equal(t, 1, annealer.Select(weights, annealer.Anneal(weights), rng))
	}

	counts := make([]int, 2)
	for n := 0; n < 10000; n++ {
		weights := []float64{1.0, 3.0}
		counts[annealer.Select(weights, annealer.Anneal(weights), rng)]++
	}
	assert.InDelta(t, 0.75, float64(counts[1])/10000.0, 0.03)

	assert.Panics(t, func() { annealer.Select([]float64{0.0, 0.0}, 0.0, rng) })
	assert.Panics(t, func() { NewTemperatureAnnealer(0.0) })
}

func TestMaximumPosteriorDecoder(t *testing.T) {
	decoder := MaximumPosteriorDecoder{}
	weights := []float64{0.2, 0.7, 0.7, 0.1}
	assert.Equal(t, 1, decoder.Select(weights, decoder.Anneal(weights), nil))
	assert.Equal(t, []float64{0.2, 0.7, 0.7, 0.1}, weights)
}

func TestSchedule(t *testing.T) {
	schedule := Schedule{InitialTemperature: 2.0, TargetTemperature: 1.0, TemperatureDecrement: 0.4}
	require.NoError(t, schedule.Validate())
	temperatures := []float64{}
	temperature := schedule.InitialTemperature
	for {
		temperatures = append(temperatures, temperature)
		next, atTarget := schedule.Next(temperature)
		if atTarget {
			break
		}
		temperature = next
	}
	require.Len(t, temperatures, 4)
	assert.InDelta(t, 1.6, temperatures[1], 1e-12)
	assert.Equal(t, 1.0, temperatures[3])

	assert.Error(t, Schedule{InitialTemperature: 2.0, TargetTemperature: 1.0}.Validate())
	assert.Error(t, Schedule{InitialTemperature: 0.5, TargetTemperature: 1.0}.Validate())
	assert.NoError(t, Schedule{InitialTemperature: 1.0, TargetTemperature: 1.0}.Validate())
}
