package lattice

// Reachability is a frames x states grid marking cells that lie on at least
// one path from a start state at the first frame to an end state at the
// last frame.
type Reachability struct {
	lat    *Lattice
	frames int
	states int
	cells  []bool
}

// NewReachability returns the initial grid: every cell is set except that
// the first frame admits only start states and the last frame only end
// states. Call Propagate to reach the fixed point.
func NewReachability(lat *Lattice, frames int) *Reachability {
	n := lat.NumStates()
	if frames < 0 {
		frames = 0
	}
	r := &Reachability{
		lat:    lat,
		frames: frames,
		states: n,
		cells:  make([]bool, frames*n),
	}
	for i := range r.cells {
		r.cells[i] = true
	}
	if frames == 0 {
		return r
	}
	for i, ss := range lat.States {
		if !ss.Start {
			r.cells[i] = false
		}
		if !ss.End {
			r.cells[(frames-1)*n+i] = false
		}
	}
	return r
}

// Frames returns the number of frames.
func (r *Reachability) Frames() int { return r.frames }

// At reports whether state i is reachable at frame f.
func (r *Reachability) At(f, i int) bool { return r.cells[f*r.states+i] }

// Block marks state i unreachable at frame f. Propagate must be called
// afterwards to restore consistency.
func (r *Reachability) Block(f, i int) { r.cells[f*r.states+i] = false }

// Propagate runs a forward sweep, keeping a cell only when some predecessor
// is reachable at the previous frame, then a backward sweep, keeping a cell
// only when some successor is reachable at the next frame.
func (r *Reachability) Propagate() {
	n := r.states
	for f := 1; f < r.frames; f++ {
		row := r.cells[f*n : (f+1)*n]
		prev := r.cells[(f-1)*n : f*n]
		for i := range row {
			if !row[i] {
				continue
			}
			row[i] = false
			for _, p := range r.lat.States[i].Prev {
				if prev[p] {
					row[i] = true
					break
				}
			}
		}
	}
	for f := r.frames - 2; f >= 0; f-- {
		row := r.cells[f*n : (f+1)*n]
		next := r.cells[(f+1)*n : (f+2)*n]
		for i := range row {
			if !row[i] {
				continue
			}
			row[i] = false
			for _, s := range r.lat.States[i].Next {
				if next[s] {
					row[i] = true
					break
				}
			}
		}
	}
}

func (r *Reachability) row(f int) []int {
	if r.frames == 0 {
		return nil
	}
	var out []int
	for i := 0; i < r.states; i++ {
		if r.At(f, i) {
			out = append(out, i)
		}
	}
	return out
}

// Starts returns the states reachable at the first frame.
func (r *Reachability) Starts() []int { return r.row(0) }

// Ends returns the states reachable at the last frame.
func (r *Reachability) Ends() []int { return r.row(r.frames - 1) }

// Clone returns an independent copy of the grid.
func (r *Reachability) Clone() *Reachability {
	c := *r
	c.cells = make([]bool, len(r.cells))
	copy(c.cells, r.cells)
	return &c
}

// Equal reports whether both grids have the same shape and cells.
func (r *Reachability) Equal(o *Reachability) bool {
	if r.frames != o.frames || r.states != o.states {
		return false
	}
	for i := range r.cells {
		if r.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}
