package estimation

import (
	"fmt"
	"math"

	"github.com/ieee0824/fujisakiest-go/fujisaki"
	"github.com/ieee0824/fujisakiest-go/hmm"
)

// commands scans the decoded big-state sequence, with the initial state
// before the first frame and the final state after the last, and turns every
// phrase or accent sojourn into a command. Commands whose target amplitude
// is below ZeroThreshold are dropped.
func (e *Estimator) commands() ([]fujisaki.Command, error) {
	var cmds []fujisaki.Command
	fs := e.in.Fs
	zt := e.cfg.ZeroThreshold

	prev := e.hmm.Initial()
	open := false
	for f := 0; f <= e.frames; f++ {
		cur := e.hmm.Final()
		if f < e.frames {
			cur = e.lat.States[e.path[f]].BigState
		}
		if cur == prev {
			continue
		}

		if open {
			c := &cmds[len(cmds)-1]
			amp := e.ca[prev]
			if e.hmm.State(prev).Type() == hmm.Phrase {
				amp = e.cp[prev]
			}
			c.Offset = float64(f) / fs
			c.IntegratedAmplitude = (c.Offset - c.Onset) * amp
			if math.Abs(amp) < zt {
				cmds = cmds[:len(cmds)-1]
			}
			open = false
		}

		switch t := e.hmm.State(cur).Type(); t {
		case hmm.Phrase:
			cmds = append(cmds, fujisaki.Command{Type: fujisaki.Phrase, Onset: float64(f) / fs, Omega: e.cfg.Alpha})
			open = true
		case hmm.Accent:
			cmds = append(cmds, fujisaki.Command{Type: fujisaki.Accent, Onset: float64(f) / fs, Omega: e.cfg.Beta})
			open = true
		case hmm.Begin, hmm.End, hmm.Reset0, hmm.Reset1, hmm.ResetOther:
		default:
			return nil, fmt.Errorf("big state %d has invalid type %s", cur, t)
		}
		prev = cur
	}
	return cmds, nil
}

// perturb tries shifting each accent command's amplitude block by up to
// PerturbSearchWidth frames without overlapping its neighbours and keeps
// the shift with the strictly lowest distance to the observation.
func (e *Estimator) perturb() error {
	cmds, err := e.commands()
	if err != nil {
		return err
	}
	n := e.frames
	fs := e.in.Fs
	w := e.cfg.PerturbSearchWidth
	fill := e.cfg.RegularizerOffset
	upTmp := make([]float64, n)
	uaTmp := make([]float64, n)

	for i, c := range cmds {
		if c.Type == fujisaki.Phrase {
			continue
		}
		lo, hi := 0, n
		if i > 0 {
			lo = int(math.Round(cmds[i-1].Offset*fs)) + 1
		}
		if i < len(cmds)-1 {
			hi = int(math.Round(cmds[i+1].Onset * fs))
		}
		start := int(math.Round(c.Onset * fs))
		end := int(math.Round(c.Offset * fs))

		best := e.distance(e.up, e.ua)
		shift := 0
		for fr := -w; fr <= w; fr++ {
			if fr == 0 || lo >= start+fr || hi <= end+fr {
				continue
			}
			shiftBlock(upTmp, e.up, start, end, fr, fill)
			shiftBlock(uaTmp, e.ua, start, end, fr, fill)
			if d := e.distance(upTmp, uaTmp); d < best {
				best = d
				shift = fr
			}
		}
		if shift != 0 {
			shiftBlock(upTmp, e.up, start, end, shift, fill)
			shiftBlock(uaTmp, e.ua, start, end, shift, fill)
			copy(e.up, upTmp)
			copy(e.ua, uaTmp)
		}
	}
	return nil
}

// shiftBlock copies src into dst, clears [start, end) to fill and writes
// src[start:end] at offset shift.
func shiftBlock(dst, src []float64, start, end, shift int, fill float64) {
	copy(dst, src)
	for j := start; j < end; j++ {
		dst[j] = fill
	}
	for j := start; j < end; j++ {
		dst[j+shift] = src[j]
	}
}
