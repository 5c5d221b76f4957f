package smooth

import (
	"fmt"
	"math"
)

var invPhi = (math.Sqrt(5) - 1) / 2

// lineSearch maximizes f(alpha) for alpha > 0 given f0 = f(0). The first
// step is halved until it improves on f0, or doubled while it keeps
// improving; the resulting bracket is narrowed by golden sections. It
// returns the best alpha seen and its value, or (0, f0) when no step
// improved.
func (o *Optimizer) lineSearch(f func(float64) float64, f0, step float64) (float64, float64) {
	if step <= 0 {
		return 0, f0
	}
	a := step
	fa := f(a)
	var lo, hi float64
	if fa <= f0 {
		for i := 0; i < o.Config.BackoffRetries && fa <= f0; i++ {
			a /= 2
			fa = f(a)
		}
		if fa <= f0 {
			return 0, f0
		}
		lo, hi = 0, 2*a
	} else {
		for i := 0; i < o.Config.ExpandLimit; i++ {
			b := 2 * a
			fb := f(b)
			if fb <= fa {
				break
			}
			a, fa = b, fb
		}
		lo, hi = a/2, 2*a
	}

	best, fbest := a, fa
	keep := func(x, fx float64) {
		if fx > fbest {
			best, fbest = x, fx
		}
	}
	x1 := hi - invPhi*(hi-lo)
	x2 := lo + invPhi*(hi-lo)
	f1, f2 := f(x1), f(x2)
	for i := 0; i < o.Config.LineSearchIterations; i++ {
		keep(x1, f1)
		keep(x2, f2)
		if f1 >= f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - invPhi*(hi-lo)
			f1 = f(x1)
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + invPhi*(hi-lo)
			f2 = f(x2)
		}
	}
	keep(x1, f1)
	keep(x2, f2)
	return best, fbest
}

// optimizeAlong line searches objective along parameter direction d and
// commits the best point if it beats the current value.
func (o *Optimizer) optimizeAlong(mv *move, d []float64, objective func(int) (float64, error), op string) (float64, error) {
	f0, err := objective(mv.node)
	if err != nil {
		return 0, err
	}
	dir, ok := normalize(d)
	if !ok {
		return f0, o.reject(op, mv.node, fmt.Errorf("node %d zero direction: %w", mv.node, ErrNoImprovement))
	}
	f := func(alpha float64) float64 {
		return mv.evaluate(mv.along(alpha, dir), objective)
	}
	alpha, fbest := o.lineSearch(f, f0, o.stepLength(mv, dir))
	if alpha == 0 || !(fbest > f0) {
		return f0, o.reject(op, mv.node, fmt.Errorf("node %d: %w", mv.node, ErrNoImprovement))
	}
	if err := mv.commit(mv.along(alpha, dir), op, f0, fbest); err != nil {
		return f0, err
	}
	return fbest, nil
}
