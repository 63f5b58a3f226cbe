package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
)

// arimaOrder is the (p, d, q) order of an ARIMA model.
type arimaOrder struct {
	P, D, Q int
}

func (o arimaOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// parseOrder reads "(p,d,q)", with or without parentheses.
func parseOrder(s string) (arimaOrder, error) {
	fields := strings.Split(strings.Trim(strings.TrimSpace(s), "()"), ",")
	if len(fields) != 3 {
		return arimaOrder{}, apperrors.NewInvalidParameterError("order", fmt.Sprintf("expected (p,d,q), got %q", s))
	}
	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || v < 0 || v > 10 {
			return arimaOrder{}, apperrors.NewInvalidParameterError("order", fmt.Sprintf("expected (p,d,q) with terms 0-10, got %q", s))
		}
		vals[i] = v
	}
	return arimaOrder{P: vals[0], D: vals[1], Q: vals[2]}, nil
}

type arimaModel struct{}

func (m *arimaModel) Info() Info {
	return Info{
		ID:          ModelARIMA,
		Name:        "ARIMA",
		Description: "Autoregressive integrated moving average fitted by conditional sum of squares",
		Params:      []ParamInfo{{Name: "order", Default: "(1,1,1)", Help: "(p,d,q)"}},
	}
}

func (m *arimaModel) Fit(s Series, p Params) (Fitted, error) {
	order, err := parseOrder(p.String("order", "(1,1,1)"))
	if err != nil {
		return nil, err
	}

	y := s.Present()
	need := order.P + order.D + order.Q + 10
	if len(y) < need {
		return nil, apperrors.NewInsufficientDataError("ARIMA"+order.String(), len(y), need)
	}

	f := &fittedARIMA{order: order}
	// tails[k] is the last value of the k-times differenced series.
	f.tails = make([]float64, order.D)
	w := y
	for k := 0; k < order.D; k++ {
		f.tails[k] = w[len(w)-1]
		w = diff(w)
	}
	f.w = w
	f.fitCSS()
	return f, nil
}

type fittedARIMA struct {
	order     arimaOrder
	tails     []float64
	w         []float64
	mean      float64
	ar        []float64
	ma        []float64
	residuals []float64
}

const (
	cssMaxEvaluations = 4000
	coeffBound        = 0.99
)

// fitCSS estimates the ARMA part on the differenced series by minimising the
// conditional sum of squares with Nelder-Mead. The search runs on the
// standardised series, starts from Yule-Walker AR values and maps each
// coefficient through bound*tanh so it stays inside (-1, 1). ARMA
// coefficients are scale free, so they carry over to the raw series.
func (f *fittedARIMA) fitCSS() {
	p, q := f.order.P, f.order.Q
	f.mean = stat.Mean(f.w, nil)
	f.ar = make([]float64, p)
	f.ma = make([]float64, q)
	sd := stat.StdDev(f.w, nil)
	if p+q == 0 || sd == 0 || math.IsNaN(sd) {
		f.css()
		return
	}

	if p > 0 {
		if acf := autocorrelation(f.w, p); acf != nil {
			copy(f.ar, levinsonDurbin(acf, p))
		}
	}
	for i := range f.ma {
		f.ma[i] = 0.1
	}
	clampCoeffs(f.ar)

	z := make([]float64, len(f.w))
	for i, v := range f.w {
		z[i] = (v - f.mean) / sd
	}
	std := &fittedARIMA{order: f.order, w: z, ar: make([]float64, p), ma: make([]float64, q)}
	unpack := func(x []float64) {
		for i := range std.ar {
			std.ar[i] = coeffBound * math.Tanh(x[i])
		}
		for i := range std.ma {
			std.ma[i] = coeffBound * math.Tanh(x[p+i])
		}
	}

	x0 := make([]float64, p+q)
	for i, c := range append(append([]float64(nil), f.ar...), f.ma...) {
		x0[i] = math.Atanh(math.Max(-0.95, math.Min(0.95, c/coeffBound)))
	}

	problem := optimize.Problem{Func: func(x []float64) float64 {
		unpack(x)
		return std.css()
	}}
	unpack(x0)
	best, bestX := std.css(), append([]float64(nil), x0...)
	// Minimize still reports its best location when it stops on the budget.
	result, _ := optimize.Minimize(problem, x0, &optimize.Settings{FuncEvaluations: cssMaxEvaluations}, &optimize.NelderMead{})
	if result != nil && !math.IsNaN(result.F) && !math.IsInf(result.F, 0) && result.F <= best {
		bestX = result.X
	}

	unpack(bestX)
	copy(f.ar, std.ar)
	copy(f.ma, std.ma)
	f.css()
}

// css refreshes the residuals and returns their sum of squares.
func (f *fittedARIMA) css() float64 {
	p, q := f.order.P, f.order.Q
	f.residuals = make([]float64, len(f.w))
	start := max(p, q)
	sse := 0.0
	for t := start; t < len(f.w); t++ {
		pred := f.mean
		for i := 0; i < p; i++ {
			pred += f.ar[i] * (f.w[t-i-1] - f.mean)
		}
		for i := 0; i < q; i++ {
			pred += f.ma[i] * f.residuals[t-i-1]
		}
		f.residuals[t] = f.w[t] - pred
		sse += f.residuals[t] * f.residuals[t]
	}
	return sse
}

func (f *fittedARIMA) Predict(horizon int) ([]float64, error) {
	p, q := f.order.P, f.order.Q
	n := len(f.w)
	ext := make([]float64, n+horizon)
	copy(ext, f.w)
	res := make([]float64, n+horizon)
	copy(res, f.residuals)

	for t := n; t < n+horizon; t++ {
		pred := f.mean
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += f.ar[i] * (ext[t-i-1] - f.mean)
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += f.ma[i] * res[t-i-1]
		}
		ext[t] = pred
	}

	out := append([]float64(nil), ext[n:]...)
	for k := f.order.D - 1; k >= 0; k-- {
		level := f.tails[k]
		for i := range out {
			level += out[i]
			out[i] = level
		}
	}
	return out, nil
}

func diff(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := range out {
		out[i] = v[i+1] - v[i]
	}
	return out
}

// autocorrelation returns lags 0..maxLag, or nil for a constant series.
func autocorrelation(v []float64, maxLag int) []float64 {
	n := len(v)
	if maxLag >= n {
		maxLag = n - 1
	}
	mean := stat.Mean(v, nil)
	denom := 0.0
	for _, x := range v {
		denom += (x - mean) * (x - mean)
	}
	if denom == 0 || maxLag < 0 {
		return nil
	}
	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (v[i] - mean) * (v[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// levinsonDurbin solves the Yule-Walker equations for order AR terms.
func levinsonDurbin(acf []float64, order int) []float64 {
	phi := make([]float64, order)
	if len(acf) <= order {
		return phi
	}
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]
	for i := 1; i < order && v > 0; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v
		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)
		v *= 1 - lambda*lambda
	}
	return phi
}

func clampCoeffs(c []float64) {
	for i, v := range c {
		if math.IsNaN(v) {
			c[i] = 0
			continue
		}
		c[i] = math.Max(-coeffBound, math.Min(coeffBound, v))
	}
}
