package classifier

import (
	"fmt"
	"math"
)

const (
	regularizationC = 12.0
	tolerance       = 1e-4
	maxNewtonIter   = 100
	maxCGIter       = 250
	maxLineSearch   = 20
)

// LabelFitError reports that a label's classifier could not be fit. The label scores
// zero for the batch.
type LabelFitError struct {
	Label  string
	Reason string
}

func (e *LabelFitError) Error() string {
	return fmt.Sprintf("cannot fit classifier for %s: %s", e.Label, e.Reason)
}

// LogisticRegression is an L2-regularized binary logistic model. The intercept is
// learned as an extra weight on a constant feature of value 1 and is regularized too.
type LogisticRegression struct {
	weights []float64 // last element is the intercept
}

func margin(w []float64, x SparseVector) float64 {
	return x.Dot(w) + w[len(w)-1]
}

// logLoss computes log(1+exp(-m)) without overflow.
func logLoss(m float64) float64 {
	if m >= 0 {
		return math.Log1p(math.Exp(-m))
	}
	return -m + math.Log1p(math.Exp(m))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// FitLogistic trains on rows x with targets y (values >= 0.5 are positive).
// features is the width of the feature space.
func FitLogistic(x []SparseVector, y []float64, features int) (*LogisticRegression, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d rows and %d targets", len(x), len(y))
	}

	signs := make([]float64, len(y))
	var pos, neg int
	for i, v := range y {
		if v >= 0.5 {
			signs[i] = 1
			pos++
		} else {
			signs[i] = -1
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("target has a single class")
	}

	dim := features + 1
	w := make([]float64, dim)
	grad := make([]float64, dim)
	d := make([]float64, len(x))

	objective := func(w []float64) float64 {
		var f float64
		for _, wi := range w {
			f += wi * wi
		}
		f /= 2
		for i, row := range x {
			f += regularizationC * logLoss(signs[i]*margin(w, row))
		}
		return f
	}

	// gradient fills grad and the Hessian diagonal d for the current w.
	gradient := func() float64 {
		copy(grad, w)
		for i, row := range x {
			s := sigmoid(signs[i] * margin(w, row))
			d[i] = s * (1 - s)
			coef := regularizationC * (s - 1) * signs[i]
			for k, idx := range row.Indices {
				grad[idx] += coef * row.Values[k]
			}
			grad[dim-1] += coef
		}
		return norm2(grad)
	}

	// hessVec computes (I + C X^T D X) v.
	hessVec := func(v, out []float64) {
		copy(out, v)
		for i, row := range x {
			xv := margin(v, row)
			coef := regularizationC * d[i] * xv
			for k, idx := range row.Indices {
				out[idx] += coef * row.Values[k]
			}
			out[dim-1] += coef
		}
	}

	minClass := math.Max(math.Min(float64(pos), float64(neg)), 1)
	gnorm0 := gradient()
	eps := tolerance * minClass / float64(len(x)) * gnorm0

	step := make([]float64, dim)
	trial := make([]float64, dim)
	f := objective(w)
	gnorm := gnorm0
	for iter := 0; iter < maxNewtonIter && gnorm > eps; iter++ {
		conjugateGradient(hessVec, grad, step, 0.1*gnorm)

		var slope float64
		for k := range step {
			slope += grad[k] * step[k]
		}

		alpha := 1.0
		accepted := false
		for ls := 0; ls < maxLineSearch; ls++ {
			for k := range w {
				trial[k] = w[k] + alpha*step[k]
			}
			if ft := objective(trial); ft <= f+1e-4*alpha*slope {
				copy(w, trial)
				f = ft
				accepted = true
				break
			}
			alpha /= 2
		}
		if !accepted {
			break
		}
		gnorm = gradient()
	}

	return &LogisticRegression{weights: w}, nil
}

// conjugateGradient approximately solves H s = -g, writing the result into s.
func conjugateGradient(hessVec func(v, out []float64), g, s []float64, tol float64) {
	n := len(g)
	r := make([]float64, n)
	p := make([]float64, n)
	hp := make([]float64, n)
	for i := range g {
		s[i] = 0
		r[i] = -g[i]
		p[i] = r[i]
	}
	rr := dot(r, r)
	for it := 0; it < maxCGIter && math.Sqrt(rr) > tol; it++ {
		hessVec(p, hp)
		alpha := rr / dot(p, hp)
		for i := range s {
			s[i] += alpha * p[i]
			r[i] -= alpha * hp[i]
		}
		rrNew := dot(r, r)
		beta := rrNew / rr
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
		rr = rrNew
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

// PredictProba returns the positive-class probability for each row.
func (m *LogisticRegression) PredictProba(x []SparseVector) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = sigmoid(margin(m.weights, row))
	}
	return out
}
