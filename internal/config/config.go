// Package config loads estimator settings from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/ieee0824/fujisakiest-go/estimation"
)

// EnvPrefix is prepended to every environment override, e.g. FUJISAKI_ITERATIONNUM.
const EnvPrefix = "FUJISAKI"

// Load reads the configuration at path on top of estimation.DefaultConfig.
// The file format follows the extension (json, yaml, toml). An empty path
// yields the defaults plus environment overrides.
func Load(path string) (estimation.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return estimation.Config{}, fmt.Errorf("%w: %w", estimation.StatusNoFile, err)
			}
			return estimation.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg estimation.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return estimation.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := estimation.DefaultConfig()
	v.SetDefault("isHmmSerialized", d.Serialized)
	v.SetDefault("phraseBigStateNum", d.PhraseBigStateNum)
	v.SetDefault("accentBigStateNum", d.AccentBigStateNum)
	v.SetDefault("serializedBranchNum", d.SerializedBranchNum)
	v.SetDefault("serializedMargin", d.SerializedMargin)
	v.SetDefault("longestAccentFrames", d.LongestAccentFrames)
	v.SetDefault("phraseOnDuration", d.PhraseOnDuration)
	v.SetDefault("enableLimitedDurationExtension", d.LimitedDurationExtension)
	v.SetDefault("durationExtensionFactor", d.DurationExtensionFactor)
	v.SetDefault("isHardEmEnabled", d.HardEM)
	v.SetDefault("iterationNum", d.IterationNum)
	v.SetDefault("mstepUpdateNumPerIteration", d.MStepUpdateNumPerIteration)
	v.SetDefault("perturbSearchWidth", d.PerturbSearchWidth)
	v.SetDefault("defaultAlpha", d.Alpha)
	v.SetDefault("defaultBeta", d.Beta)
	v.SetDefault("defaultSigmap2", d.SigmaP2)
	v.SetDefault("defaultSigmaa2", d.SigmaA2)
	v.SetDefault("defaultSigman2_voiced", d.SigmaN2Voiced)
	v.SetDefault("defaultSigman2_unvoiced", d.SigmaN2Unvoiced)
	v.SetDefault("regularizerOffset", d.RegularizerOffset)
	v.SetDefault("zeroThreshold", d.ZeroThreshold)
	v.SetDefault("inf", d.Inf)
}
