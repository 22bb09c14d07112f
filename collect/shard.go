package collect

import "github.com/robert-malhotra/go-boutdata/datafile"

// topology is the process grid of a run.
type topology struct {
	nxpe, nype   int
	mxsub, mysub int
	mxg, myg     int

	// upperTarget is the process row whose upper edge is the second
	// target, or -1.
	upperTarget int

	xguards bool
	yguards bool
}

// shard is the part of the requested region one process holds.
type shard struct {
	proc     int
	peX, peY int

	// x and y are local index ranges into the process's arrays.
	x, y datafile.Slice
	// gx and gy are the first x and y indices in the output.
	gx, gy int
}

// extract maps the requested x and y ranges into the local coordinates of
// process i. It reports false when the process holds none of the region.
// x and y must have unit steps; steps are applied after assembly.
func (tp *topology) extract(i int, x, y datafile.Slice) (shard, bool) {
	s := shard{proc: i, peX: i % tp.nxpe, peY: i / tp.nxpe}
	ok := true

	var ys, ye int
	if tp.yguards {
		ys = y.Start - s.peY*tp.mysub
		ye = y.Stop - s.peY*tp.mysub

		if s.peY == 0 {
			if ye <= 0 {
				ok = false
			}
			ys = max(ys, 0)
		} else {
			if ye < tp.myg-1 {
				ok = false
			}
			ys = max(ys, tp.myg)
		}
		if tp.upperTarget >= 0 && s.peY-1 == tp.upperTarget {
			ys -= tp.myg
		}

		if s.peY == tp.nype-1 {
			if ys >= tp.mysub+2*tp.myg {
				ok = false
			}
			ye = min(ye, tp.mysub+2*tp.myg)
		} else {
			if ys >= tp.mysub+tp.myg {
				ok = false
			}
			ye = min(ye, tp.mysub+tp.myg)
		}
		if tp.upperTarget >= 0 && s.peY == tp.upperTarget {
			ye += tp.myg
		}
	} else {
		ys = y.Start - s.peY*tp.mysub + tp.myg
		ye = y.Stop - s.peY*tp.mysub + tp.myg
		if ys >= tp.mysub+tp.myg || ye <= tp.myg {
			ok = false
		}
		ys = max(ys, tp.myg)
		ye = min(ye, tp.mysub+tp.myg)
	}

	var xs, xe int
	if tp.xguards {
		xs = x.Start - s.peX*tp.mxsub
		xe = x.Stop - s.peX*tp.mxsub

		if s.peX == 0 {
			if xe <= 0 {
				ok = false
			}
			xs = max(xs, 0)
		} else {
			if xe <= tp.mxg {
				ok = false
			}
			xs = max(xs, tp.mxg)
		}

		if s.peX == tp.nxpe-1 {
			if xs >= tp.mxsub+2*tp.mxg {
				ok = false
			}
			xe = min(xe, tp.mxsub+2*tp.mxg)
		} else {
			if xs >= tp.mxsub+tp.mxg {
				ok = false
			}
			xe = min(xe, tp.mxsub+tp.mxg)
		}
	} else {
		xs = x.Start - s.peX*tp.mxsub + tp.mxg
		xe = x.Stop - s.peX*tp.mxsub + tp.mxg
		if xs >= tp.mxsub+tp.mxg || xe <= tp.mxg {
			ok = false
		}
		xs = max(xs, tp.mxg)
		xe = min(xe, tp.mxsub+tp.mxg)
	}
	if !ok {
		return s, false
	}

	s.x = datafile.Slice{Start: xs, Stop: xe, Step: 1}
	s.y = datafile.Slice{Start: ys, Stop: ye, Step: 1}

	s.gx = xs + s.peX*tp.mxsub - x.Start
	if !tp.xguards {
		s.gx -= tp.mxg
	}
	s.gy = ys + s.peY*tp.mysub - y.Start
	if tp.yguards {
		if tp.upperTarget >= 0 && s.peY > tp.upperTarget {
			s.gy += 2 * tp.myg
		}
	} else {
		s.gy -= tp.myg
	}
	return s, true
}
