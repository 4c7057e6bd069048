package fujisaki

import (
	"fmt"
	"math"
	"sort"
)

// CommandType distinguishes phrase and accent commands.
type CommandType int

const (
	Phrase CommandType = iota
	Accent
)

func (t CommandType) String() string {
	switch t {
	case Phrase:
		return "phrase"
	case Accent:
		return "accent"
	default:
		return fmt.Sprintf("CommandType(%d)", int(t))
	}
}

// Command is one phrase or accent command.
// Times are in seconds; Omega is the filter angular frequency.
type Command struct {
	Type                CommandType `json:"FilterType" yaml:"FilterType"`
	Onset               float64     `json:"onset" yaml:"onset"`
	Offset              float64     `json:"offset" yaml:"offset"`
	IntegratedAmplitude float64     `json:"integratedAmplitude" yaml:"integratedAmplitude"`
	Omega               float64     `json:"omega" yaml:"omega"`
}

// Amplitude returns the rectangle height of the command (integrated
// amplitude divided by duration), or 0 for zero-length commands.
func (c Command) Amplitude() float64 {
	dur := c.Offset - c.Onset
	if dur <= 0 {
		return 0
	}
	return c.IntegratedAmplitude / dur
}

// SortByOnset sorts commands by onset, keeping the relative order of ties.
func SortByOnset(cmds []Command) {
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Onset < cmds[j].Onset })
}

// CommandsFromTrajectory converts a per-frame amplitude trajectory into
// commands: each maximal run of equal non-zero values becomes one command
// whose integrated amplitude is the sum of the run. The sum is taken over
// frames, so the resulting rectangle height is fs times the run value.
func CommandsFromTrajectory(mux []float64, typ CommandType, omega, fs float64) []Command {
	var cmds []Command
	onset := 0
	for i := 1; i <= len(mux); i++ {
		cur := 0.0
		if i < len(mux) {
			cur = mux[i]
		}
		prev := mux[i-1]
		if cur == prev {
			continue
		}
		if prev != 0 {
			sum := 0.0
			for _, v := range mux[onset:i] {
				sum += v
			}
			cmds = append(cmds, Command{
				Type:                typ,
				Onset:               float64(onset) / fs,
				Offset:              float64(i) / fs,
				IntegratedAmplitude: sum,
				Omega:               omega,
			})
		}
		if cur != 0 {
			onset = i
		}
	}
	return cmds
}

// CommandsFromTrajectories converts phrase and accent trajectories of equal
// length into one onset-sorted command list using the default filter frequencies.
func CommandsFromTrajectories(mup, mua []float64, fs float64) ([]Command, error) {
	if len(mup) != len(mua) || len(mup) == 0 {
		return nil, fmt.Errorf("%w: mup %d, mua %d", ErrLengthMismatch, len(mup), len(mua))
	}
	cmds := CommandsFromTrajectory(mup, Phrase, DefaultPhraseOmega, fs)
	cmds = append(cmds, CommandsFromTrajectory(mua, Accent, DefaultAccentOmega, fs)...)
	SortByOnset(cmds)
	return cmds, nil
}

// Trajectory renders commands of the given type back into a per-frame
// amplitude trace: frames in [onset, offset) carry the command's amplitude.
func Trajectory(cmds []Command, typ CommandType, fs float64, frameNum int) []float64 {
	out := make([]float64, frameNum)
	for _, c := range cmds {
		if c.Type != typ {
			continue
		}
		start := int(math.Round(c.Onset * fs))
		end := int(math.Round(c.Offset * fs))
		amp := c.Amplitude()
		for f := max(start, 0); f < min(end, frameNum); f++ {
			out[f] += amp
		}
	}
	return out
}
