package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoris/BHMM/bayspos"
)

func TestApplyOverrides(t *testing.T) {
	defaults := bayspos.DefaultConfig()
	fs := flag.NewFlagSet("bhmm", flag.ContinueOnError)
	defineConfigFlags(fs, defaults)
	out := fs.String("out", "-", "")
	require.NoError(t, fs.Parse([]string{"-model", "m8", "-stateC", "3", "-gamma", "0.5", "-seed", "9", "-resampleHyper", "-out", "summary.txt"}))

	cfg := defaults
	applied := applyOverrides(fs, &cfg)
	// flag.Visit walks in lexical order; -out is not a config flag
	assert.Equal(t, []string{"gamma", "model", "resampleHyper", "seed", "stateC"}, applied)
	assert.Equal(t, "summary.txt", *out)

	assert.Equal(t, "m8", cfg.Model)
	assert.Equal(t, 3, cfg.StateC)
	assert.Equal(t, 0.5, cfg.Hyper.Gamma)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.True(t, cfg.ResampleHyper)
	// untouched flags keep the loaded values
	assert.Equal(t, defaults.StateF, cfg.StateF)
	assert.Equal(t, defaults.Hyper.Delta, cfg.Hyper.Delta)
}

func TestApplyOverridesNothingSet(t *testing.T) {
	fs := flag.NewFlagSet("bhmm", flag.ContinueOnError)
	defineConfigFlags(fs, bayspos.DefaultConfig())
	require.NoError(t, fs.Parse(nil))

	cfg := bayspos.DefaultConfig()
	cfg.StateC = 7
	assert.Empty(t, applyOverrides(fs, &cfg))
	assert.Equal(t, 7, cfg.StateC)
}
