package estimation

// Config holds the estimator settings. Field tags keep the camelCase keys of
// the configuration files.
type Config struct {
	// HMM layout
	Serialized        bool `mapstructure:"isHmmSerialized" json:"isHmmSerialized" yaml:"isHmmSerialized"`
	PhraseBigStateNum int  `mapstructure:"phraseBigStateNum" json:"phraseBigStateNum" yaml:"phraseBigStateNum"` // loop topology only
	AccentBigStateNum int  `mapstructure:"accentBigStateNum" json:"accentBigStateNum" yaml:"accentBigStateNum"`

	// serialized topology
	SerializedBranchNum int `mapstructure:"serializedBranchNum" json:"serializedBranchNum" yaml:"serializedBranchNum"`
	SerializedMargin    int `mapstructure:"serializedMargin" json:"serializedMargin" yaml:"serializedMargin"`
	LongestAccentFrames int `mapstructure:"longestAccentFrames" json:"longestAccentFrames" yaml:"longestAccentFrames"`

	// durations
	PhraseOnDuration         int     `mapstructure:"phraseOnDuration" json:"phraseOnDuration" yaml:"phraseOnDuration"`
	LimitedDurationExtension bool    `mapstructure:"enableLimitedDurationExtension" json:"enableLimitedDurationExtension" yaml:"enableLimitedDurationExtension"` // false: always extend
	DurationExtensionFactor  float64 `mapstructure:"durationExtensionFactor" json:"durationExtensionFactor" yaml:"durationExtensionFactor"`

	// EM
	HardEM                     bool `mapstructure:"isHardEmEnabled" json:"isHardEmEnabled" yaml:"isHardEmEnabled"`
	IterationNum               int  `mapstructure:"iterationNum" json:"iterationNum" yaml:"iterationNum"`
	MStepUpdateNumPerIteration int  `mapstructure:"mstepUpdateNumPerIteration" json:"mstepUpdateNumPerIteration" yaml:"mstepUpdateNumPerIteration"`
	PerturbSearchWidth         int  `mapstructure:"perturbSearchWidth" json:"perturbSearchWidth" yaml:"perturbSearchWidth"` // frames

	// model
	Alpha           float64 `mapstructure:"defaultAlpha" json:"defaultAlpha" yaml:"defaultAlpha"` // phrase filter, rad/s
	Beta            float64 `mapstructure:"defaultBeta" json:"defaultBeta" yaml:"defaultBeta"`    // accent filter, rad/s
	SigmaP2         float64 `mapstructure:"defaultSigmap2" json:"defaultSigmap2" yaml:"defaultSigmap2"`
	SigmaA2         float64 `mapstructure:"defaultSigmaa2" json:"defaultSigmaa2" yaml:"defaultSigmaa2"`
	SigmaN2Voiced   float64 `mapstructure:"defaultSigman2_voiced" json:"defaultSigman2_voiced" yaml:"defaultSigman2_voiced"`
	SigmaN2Unvoiced float64 `mapstructure:"defaultSigman2_unvoiced" json:"defaultSigman2_unvoiced" yaml:"defaultSigman2_unvoiced"`

	// numerics
	RegularizerOffset float64 `mapstructure:"regularizerOffset" json:"regularizerOffset" yaml:"regularizerOffset"`
	ZeroThreshold     float64 `mapstructure:"zeroThreshold" json:"zeroThreshold" yaml:"zeroThreshold"`
	Inf               float64 `mapstructure:"inf" json:"inf" yaml:"inf"`
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		Serialized:                 false,
		PhraseBigStateNum:          3,
		AccentBigStateNum:          5,
		SerializedBranchNum:        20,
		SerializedMargin:           150,
		LongestAccentFrames:        160,
		PhraseOnDuration:           1,
		LimitedDurationExtension:   true,
		DurationExtensionFactor:    0.1,
		HardEM:                     true,
		IterationNum:               10,
		MStepUpdateNumPerIteration: 3,
		PerturbSearchWidth:         5,
		Alpha:                      3.0,
		Beta:                       20.0,
		SigmaP2:                    1.0,
		SigmaA2:                    0.01,
		SigmaN2Voiced:              0.01,
		SigmaN2Unvoiced:            1e4,
		RegularizerOffset:          1e-7,
		ZeroThreshold:              1e-10,
		Inf:                        1e100,
	}
}

// phraseBranches returns the number of phrase branches the topology builder uses.
func (c Config) phraseBranches() int {
	if c.Serialized {
		return c.SerializedBranchNum
	}
	return c.PhraseBigStateNum
}

// accentBranches returns the number of accent branches the topology builder uses.
func (c Config) accentBranches() int {
	if c.Serialized {
		return c.SerializedBranchNum
	}
	return c.AccentBigStateNum
}

func (c Config) valid() bool {
	switch {
	case !c.Serialized && c.PhraseBigStateNum < 1,
		c.AccentBigStateNum < 1,
		c.Serialized && (c.SerializedBranchNum < 1 || c.SerializedMargin < 1 || c.LongestAccentFrames < 1),
		c.IterationNum < 0,
		c.MStepUpdateNumPerIteration < 0,
		c.PerturbSearchWidth < 0,
		c.Alpha < 0,
		c.Beta < 0,
		c.SigmaP2 <= 0,
		c.SigmaA2 <= 0,
		c.SigmaN2Voiced <= 0,
		c.SigmaN2Unvoiced <= 0,
		c.RegularizerOffset < 0,
		c.ZeroThreshold < 0,
		c.Inf <= 0,
		c.DurationExtensionFactor < 0,
		!c.HardEM:
		return false
	}
	return true
}
