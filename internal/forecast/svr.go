package forecast

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
)

// SVR kernels
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
)

func svrModel() Model {
	return &regressionModel{
		info: Info{
			ID:          ModelSVR,
			Name:        "Support Vector Regression",
			Description: "Epsilon-insensitive support vector regression over the value position",
			Params: []ParamInfo{
				{Name: "kernel", Default: KernelRBF, Help: "rbf or linear"},
				{Name: "C", Default: 1.0},
				{Name: "epsilon", Default: 0.1},
				{Name: "gamma", Default: "scale", Help: "rbf width; scale uses 1 / var(x)"},
			},
		},
		minPoint: 2,
		build: func(p Params) (indexRegressor, error) {
			kernel := strings.ToLower(p.String("kernel", KernelRBF))
			if kernel != KernelRBF && kernel != KernelLinear {
				return nil, apperrors.NewInvalidParameterError("kernel", fmt.Sprintf("unsupported kernel %q", kernel))
			}
			c, err := p.Float("C", 1)
			if err != nil {
				return nil, err
			}
			if c <= 0 {
				return nil, apperrors.NewInvalidParameterError("C", "must be positive")
			}
			eps, err := p.Float("epsilon", 0.1)
			if err != nil {
				return nil, err
			}
			if eps < 0 {
				return nil, apperrors.NewInvalidParameterError("epsilon", "must not be negative")
			}
			gamma := 0.0
			if g := p.String("gamma", "scale"); g != "scale" {
				if gamma, err = p.Float("gamma", 0); err != nil {
					return nil, err
				}
				if gamma <= 0 {
					return nil, apperrors.NewInvalidParameterError("gamma", "must be positive")
				}
			}
			return &svrRegressor{kernel: kernel, c: c, epsilon: eps, gamma: gamma}, nil
		},
	}
}

const (
	svrMaxSweeps = 1000
	svrTolerance = 1e-6
)

// svrRegressor solves the epsilon-SVR dual by coordinate descent on the
// centred targets. The mean is the free intercept; the residual bias is
// folded into the kernel as K+1, so each coefficient is updated on its own.
type svrRegressor struct {
	kernel  string
	c       float64
	epsilon float64
	gamma   float64

	x      []float64
	beta   []float64
	offset float64
}

func (r *svrRegressor) k(a, b float64) float64 {
	if r.kernel == KernelLinear {
		return a*b + 1
	}
	d := a - b
	return math.Exp(-r.gamma*d*d) + 1
}

func (r *svrRegressor) fit(x, y []float64) error {
	n := len(x)
	if r.kernel == KernelRBF && r.gamma == 0 {
		v := stat.PopVariance(x, nil)
		if v == 0 {
			v = 1
		}
		r.gamma = 1 / v
	}

	r.offset = stat.Mean(y, nil)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - r.offset
	}

	q := make([][]float64, n)
	for i := range q {
		q[i] = make([]float64, n)
		for j := range q[i] {
			q[i][j] = r.k(x[i], x[j])
		}
	}

	beta := make([]float64, n)
	// qb caches Q*beta.
	qb := make([]float64, n)
	for sweep := 0; sweep < svrMaxSweeps; sweep++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			rest := qb[i] - q[i][i]*beta[i] - yc[i]
			next := -softThreshold(rest, r.epsilon) / q[i][i]
			next = math.Max(-r.c, math.Min(r.c, next))
			delta := next - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = next
			for j := 0; j < n; j++ {
				qb[j] += delta * q[j][i]
			}
			maxDelta = math.Max(maxDelta, math.Abs(delta))
		}
		if maxDelta < svrTolerance {
			break
		}
	}

	r.x = append([]float64(nil), x...)
	r.beta = beta
	return nil
}

func (r *svrRegressor) predict(x float64) float64 {
	sum := r.offset
	for i, xi := range r.x {
		if r.beta[i] != 0 {
			sum += r.beta[i] * r.k(xi, x)
		}
	}
	return sum
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}
