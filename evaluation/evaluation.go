// Package evaluation scores estimated commands against reference commands by
// a longest-common-subsequence alignment per command type.
package evaluation

import (
	"math"

	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

// DefaultTimeLag is the allowed onset/offset lag in seconds.
const DefaultTimeLag = 0.1

// Result counts the commands of one type.
type Result struct {
	TotalNumInReference int     `json:"totalNumInReference" yaml:"totalNumInReference"`
	TotalNumInEstimated int     `json:"totalNumInEstimated" yaml:"totalNumInEstimated"`
	MatchedNum          int     `json:"matchedNum" yaml:"matchedNum"`
	AllowedTimeLag      float64 `json:"allowedTimeLag" yaml:"allowedTimeLag"`
}

// Recall is the matched fraction of reference commands, or 0 without references.
func (r Result) Recall() float64 {
	if r.TotalNumInReference == 0 {
		return 0
	}
	return float64(r.MatchedNum) / float64(r.TotalNumInReference)
}

// Precision is the matched fraction of estimated commands, or 0 without estimates.
func (r Result) Precision() float64 {
	if r.TotalNumInEstimated == 0 {
		return 0
	}
	return float64(r.MatchedNum) / float64(r.TotalNumInEstimated)
}

// TypeResult is the Result of one command type.
type TypeResult struct {
	Type   fujisaki.CommandType `json:"type" yaml:"type"`
	Result `yaml:",inline"`
}

// CoOccur reports whether two commands have the same type and their summed
// onset and offset deviation is within 2*lag, with a relative slack of
// zeroThreshold.
func CoOccur(a, b fujisaki.Command, lag, zeroThreshold float64) bool {
	if a.Type != b.Type {
		return false
	}
	d := math.Abs(a.Onset-b.Onset) + math.Abs(a.Offset-b.Offset)
	return d-2*lag <= lag*zeroThreshold
}

// Evaluate aligns reference and estimated commands. Both lists are sorted by
// onset; results are returned per command type in order of first appearance,
// reference first.
func Evaluate(reference, estimated []fujisaki.Command, lag, zeroThreshold float64) []TypeResult {
	ref := append([]fujisaki.Command(nil), reference...)
	est := append([]fujisaki.Command(nil), estimated...)
	fujisaki.SortByOnset(ref)
	fujisaki.SortByOnset(est)

	var types []fujisaki.CommandType
	seen := make(map[fujisaki.CommandType]bool)
	for _, list := range [][]fujisaki.Command{ref, est} {
		for _, c := range list {
			if !seen[c.Type] {
				seen[c.Type] = true
				types = append(types, c.Type)
			}
		}
	}

	out := make([]TypeResult, 0, len(types))
	for _, typ := range types {
		r := filter(ref, typ)
		e := filter(est, typ)
		out = append(out, TypeResult{
			Type: typ,
			Result: Result{
				TotalNumInReference: len(r),
				TotalNumInEstimated: len(e),
				MatchedNum:          matchCount(r, e, lag, zeroThreshold),
				AllowedTimeLag:      lag,
			},
		})
	}
	return out
}

func filter(cmds []fujisaki.Command, typ fujisaki.CommandType) []fujisaki.Command {
	var out []fujisaki.Command
	for _, c := range cmds {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// matchCount is the length of the longest common subsequence of a and b
// under CoOccur.
func matchCount(a, b []fujisaki.Command, lag, zeroThreshold float64) int {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	// Keep only the previous and current DP rows.
	prev := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		cur := make([]int, lb+1)
		for j := 1; j <= lb; j++ {
			m := prev[j]
			if cur[j-1] > m {
				m = cur[j-1]
			}
			if CoOccur(a[i-1], b[j-1], lag, zeroThreshold) && prev[j-1]+1 > m {
				m = prev[j-1] + 1
			}
			cur[j] = m
		}
		prev = cur
	}
	return prev[lb]
}

// Aggregate sums per-signal results into one phrase and one accent total.
// Other command types are ignored.
func Aggregate(perSignal [][]TypeResult) []TypeResult {
	total := []TypeResult{{Type: fujisaki.Phrase}, {Type: fujisaki.Accent}}
	for _, signal := range perSignal {
		for _, tr := range signal {
			var t *TypeResult
			switch tr.Type {
			case fujisaki.Phrase:
				t = &total[0]
			case fujisaki.Accent:
				t = &total[1]
			default:
				continue
			}
			t.AllowedTimeLag = tr.AllowedTimeLag
			t.MatchedNum += tr.MatchedNum
			t.TotalNumInEstimated += tr.TotalNumInEstimated
			t.TotalNumInReference += tr.TotalNumInReference
		}
	}
	return total
}
