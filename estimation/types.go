package estimation

import "github.com/ieee0824/fujisakiest-go/fujisaki"

// Input is one observed signal with its initial amplitudes.
type Input struct {
	Fs         float64   `json:"fs" yaml:"fs"`
	LogF0      []float64 `json:"logf0" yaml:"logf0"`
	VUV        []float64 `json:"vuv" yaml:"vuv"`
	InitialUp  []float64 `json:"initial_up" yaml:"initial_up"`
	InitialUa  []float64 `json:"initial_ua" yaml:"initial_ua"`
	InitialMub float64   `json:"initial_mub" yaml:"initial_mub"`
}

// Result is the decoded command structure and fitted parameters of one signal.
type Result struct {
	Up               []float64          `json:"up" yaml:"up"`
	Ua               []float64          `json:"ua" yaml:"ua"`
	Mup              []float64          `json:"mup" yaml:"mup"`
	Mua              []float64          `json:"mua" yaml:"mua"`
	Mub              float64            `json:"mub" yaml:"mub"`
	Cp               []float64          `json:"Cp" yaml:"Cp"`
	Ca               []float64          `json:"Ca" yaml:"Ca"`
	BigStates        []int              `json:"bigs" yaml:"bigs"`
	Commands         []fujisaki.Command `json:"commands" yaml:"commands"`
	RegeneratedLogF0 []float64          `json:"regeneratedlf0" yaml:"regeneratedlf0"`
	RMSE             float64            `json:"rmse" yaml:"rmse"`
	VoicedFrameNum   int                `json:"voicedFrameNum" yaml:"voicedFrameNum"`
}

// StochasticConstraint is a Gaussian-mixture prior on the onset and offset
// time of one accent command. Means are relative to the base times, in seconds.
type StochasticConstraint struct {
	OnBasetime  float64   `json:"onBasetime" yaml:"onBasetime"`
	OffBasetime float64   `json:"offBasetime" yaml:"offBasetime"`
	OnWeights   []float64 `json:"onWeights" yaml:"onWeights"`
	OffWeights  []float64 `json:"offWeights" yaml:"offWeights"`
	OnMeans     []float64 `json:"onMeans" yaml:"onMeans"`
	OffMeans    []float64 `json:"offMeans" yaml:"offMeans"`
	OnSigmas    []float64 `json:"onSigmas" yaml:"onSigmas"`
	OffSigmas   []float64 `json:"offSigmas" yaml:"offSigmas"`
}
