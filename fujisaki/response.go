// Package fujisaki implements the critically damped phrase/accent filters of
// the Fujisaki F0 model and the regeneration of log-F0 contours from commands.
package fujisaki

import (
	"errors"
	"fmt"
	"math"
)

// NoVoicedRMSE is returned by RMSE when no frame is voiced.
const NoVoicedRMSE = 1e20

// Default filter angular frequencies (rad/s).
const (
	DefaultPhraseOmega = 3.0
	DefaultAccentOmega = 20.0
)

// impulseLikeLimit is the duration×omega product below which a command is
// treated as an impulse instead of a rectangle.
const impulseLikeLimit = 0.01

// minOmega is the smallest accepted filter angular frequency.
const minOmega = 1e-9

var (
	// ErrInvalidCommand is returned for commands with offset < onset or a
	// vanishing filter frequency.
	ErrInvalidCommand = errors.New("fujisaki: invalid command")
	// ErrLengthMismatch is returned when paired sequences differ in length.
	ErrLengthMismatch = errors.New("fujisaki: length mismatch")
)

// ImpulseResponse returns the critically damped impulse response
// omega^2 * t * exp(-omega*t) for t > 0, and 0 otherwise.
func ImpulseResponse(omega, t float64) float64 {
	if t <= 0 {
		return 0
	}
	return omega * omega * t * math.Exp(-omega*t)
}

// StepResponse returns 1 - (1 + omega*t) * exp(-omega*t) for t > 0, and 0 otherwise.
func StepResponse(omega, t float64) float64 {
	if t <= 0 {
		return 0
	}
	return 1 - (1+omega*t)*math.Exp(-omega*t)
}

// Response renders a single command through its filter over frameNum frames
// sampled at fs. Commands shorter than 0.01/omega seconds are rendered as
// impulses carrying the integrated amplitude; longer ones as rectangles.
func (c Command) Response(fs float64, frameNum int) ([]float64, error) {
	if c.Offset < c.Onset {
		return nil, fmt.Errorf("%w: onset %g > offset %g", ErrInvalidCommand, c.Onset, c.Offset)
	}
	if c.Omega < minOmega {
		return nil, fmt.Errorf("%w: omega %g too small", ErrInvalidCommand, c.Omega)
	}

	out := make([]float64, frameNum)
	dur := c.Offset - c.Onset
	if dur*c.Omega < impulseLikeLimit {
		for i := range out {
			t := float64(i) / fs
			out[i] = ImpulseResponse(c.Omega, t-c.Onset) * c.IntegratedAmplitude
		}
		return out, nil
	}

	amp := c.IntegratedAmplitude / dur
	for i := range out {
		t := float64(i) / fs
		out[i] = (StepResponse(c.Omega, t-c.Onset) - StepResponse(c.Omega, t-c.Offset)) * amp
	}
	return out, nil
}

// Regenerate sums the responses of all commands on top of the baseline mub.
func Regenerate(cmds []Command, mub, fs float64, frameNum int) ([]float64, error) {
	sum := make([]float64, frameNum)
	for i := range sum {
		sum[i] = mub
	}
	for i, c := range cmds {
		r, err := c.Response(fs, frameNum)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		for k := range sum {
			sum[k] += r[k]
		}
	}
	return sum, nil
}

// RMSE returns the root mean squared difference of a and b over frames whose
// voicing exceeds vuvThresh. It returns NoVoicedRMSE when no frame is voiced.
func RMSE(a, b, vuv []float64, vuvThresh float64) (float64, error) {
	if len(a) != len(b) || len(a) != len(vuv) {
		return 0, fmt.Errorf("%w: %d, %d, %d", ErrLengthMismatch, len(a), len(b), len(vuv))
	}
	sq := 0.0
	n := 0
	for i := range a {
		if vuv[i] > vuvThresh {
			d := a[i] - b[i]
			sq += d * d
			n++
		}
	}
	if n == 0 {
		return NoVoicedRMSE, nil
	}
	return math.Sqrt(sq / float64(n)), nil
}
