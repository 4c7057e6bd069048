package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/fujisakiest-go/estimation"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, estimation.DefaultConfig(), cfg)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"isHmmSerialized": true,
		"accentBigStateNum": 4,
		"iterationNum": 7,
		"defaultSigman2_voiced": 0.02,
		"enableLimitedDurationExtension": false
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Serialized)
	assert.Equal(t, 4, cfg.AccentBigStateNum)
	assert.Equal(t, 7, cfg.IterationNum)
	assert.Equal(t, 0.02, cfg.SigmaN2Voiced)
	assert.False(t, cfg.LimitedDurationExtension)

	// untouched keys keep their defaults
	d := estimation.DefaultConfig()
	assert.Equal(t, d.PhraseBigStateNum, cfg.PhraseBigStateNum)
	assert.Equal(t, d.Beta, cfg.Beta)
	assert.True(t, cfg.HardEM)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phraseBigStateNum: 2\nperturbSearchWidth: 3\ndefaultBeta: 15.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PhraseBigStateNum)
	assert.Equal(t, 3, cfg.PerturbSearchWidth)
	assert.Equal(t, 15.5, cfg.Beta)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FUJISAKI_ITERATIONNUM", "42")
	t.Setenv("FUJISAKI_ISHMMSERIALIZED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.IterationNum)
	assert.True(t, cfg.Serialized)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	st, ok := estimation.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, estimation.StatusNoFile, st)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"iterationNum": `), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	_, ok := estimation.StatusOf(err)
	assert.False(t, ok)
}
