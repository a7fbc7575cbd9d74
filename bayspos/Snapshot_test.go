package bayspos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"m1", "m4", "m8", "m9"} {
		t.Run(name, func(t *testing.T) {
			bhmm := trainedModel(t, name)
			path := filepath.Join(t.TempDir(), "model.gob.gz")
			require.NoError(t, bhmm.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, bhmm.Snapshot(), loaded.Snapshot())
			assert.Equal(t, bhmm.RunID(), loaded.RunID())
			assert.Equal(t, bhmm.LogLikelihood(), loaded.LogLikelihood())

			// both copies draw the same stream from here on
			annealer := NewTemperatureAnnealer(1.0)
			require.NoError(t, bhmm.sweep(bhmm.train, annealer))
			require.NoError(t, loaded.sweep(loaded.train, annealer))
			assert.Equal(t, bhmm.Snapshot(), loaded.Snapshot())
		})
	}
}

func TestSaveLoadUntrained(t *testing.T) {
	bhmm, err := GenerateBHMM(testConfig("m7"), trainingCorpus())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.gob.gz")
	require.NoError(t, bhmm.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, bhmm.Snapshot(), loaded.Snapshot())
	require.NoError(t, loaded.Train(context.Background(), nil))
	assertCountsConserved(t, loaded)
}

func TestResumeFromCheckpoint(t *testing.T) {
	cfg := testConfig("m3")
	cfg.Schedule = Schedule{InitialTemperature: 2.0, TargetTemperature: 1.0, TemperatureDecrement: 0.5}
	bhmm, err := GenerateBHMM(cfg, trainingCorpus())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "checkpoint.gob.gz")
	stop := errors.New("stop")
	err = bhmm.Train(context.Background(), func(bhmm *BHMM) error {
		if err := bhmm.Save(path); err != nil {
			return err
		}
		return stop
	})
	require.True(t, errors.Is(err, stop))

	resumed, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.Iteration())
	assert.Equal(t, 1.5, resumed.Temperature())
	require.NoError(t, resumed.Train(context.Background(), nil))
	assert.Equal(t, 3, resumed.Iteration())
	assertCountsConserved(t, resumed)
}

func TestRestoreRejectsMismatch(t *testing.T) {
	snap := trainedModel(t, "m2").Snapshot()
	snap.Trigrams = snap.Trigrams[1:]
	_, err := Restore(snap)
	assert.True(t, errors.Is(err, ErrFormat))

	snap = trainedModel(t, "m1").Snapshot()
	snap.Config.Model = "m0"
	_, err = Restore(snap)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob.gz"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.gob.gz")
	require.NoError(t, os.WriteFile(garbage, []byte("not a snapshot"), 0o644))
	_, err = Load(garbage)
	assert.Error(t, err)
}
