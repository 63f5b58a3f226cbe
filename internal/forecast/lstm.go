package forecast

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
)

const (
	lstmHidden    = 50
	lstmBatchSize = 32
	lstmRate      = 0.001
	lstmBeta1     = 0.9
	lstmBeta2     = 0.999
	lstmEpsilon   = 1e-7
	lstmClipNorm  = 5.0
	lstmSeed      = 42
)

// lstmModel is a single LSTM layer of 50 units with ReLU cell activation and
// a dense output, trained with Adam on mean squared error over sliding
// windows of the standardised series.
type lstmModel struct{}

func (m *lstmModel) Info() Info {
	return Info{
		ID:          ModelLSTM,
		Name:        "LSTM Neural Network",
		Description: "Recurrent network over sliding windows, forecasting one step at a time",
		Params: []ParamInfo{
			{Name: "sequence_length", Default: 10, Help: "1 to 365"},
			{Name: "epochs", Default: 10, Help: "1 to 500"},
			{Name: "seed", Default: lstmSeed},
		},
	}
}

func (m *lstmModel) Fit(s Series, p Params) (Fitted, error) {
	seqLen, err := intInRange(p, "sequence_length", 10, 1, maxSequenceLength)
	if err != nil {
		return nil, err
	}
	epochs, err := intInRange(p, "epochs", 10, 1, maxEpochs)
	if err != nil {
		return nil, err
	}
	seed, err := p.Int("seed", lstmSeed)
	if err != nil {
		return nil, err
	}

	y := s.Present()
	if len(y) <= seqLen {
		return nil, apperrors.NewInsufficientDataError("LSTM", len(y), seqLen+1)
	}

	mu, sigma := stat.MeanStdDev(y, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		sigma = 1
	}
	z := make([]float64, len(y))
	for i, v := range y {
		z[i] = (v - mu) / sigma
	}

	net := newLSTMNet(lstmHidden, rand.New(rand.NewSource(int64(seed))))
	samples := len(z) - seqLen
	order := make([]int, samples)
	for i := range order {
		order[i] = i
	}
	shuffle := rand.New(rand.NewSource(int64(seed) + 1))
	for e := 0; e < epochs; e++ {
		shuffle.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		for start := 0; start < samples; start += lstmBatchSize {
			end := min(start+lstmBatchSize, samples)
			net.zeroGrad()
			for _, i := range order[start:end] {
				net.backward(z[i:i+seqLen], z[i+seqLen], float64(end-start))
			}
			net.step()
		}
	}
	for _, w := range net.params {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, apperrors.NewModelFitFailureError(ModelLSTM, errors.New("training diverged"))
		}
	}

	window := append([]float64(nil), z[len(z)-seqLen:]...)
	return &fittedLSTM{net: net, window: window, mu: mu, sigma: sigma}, nil
}

type fittedLSTM struct {
	net       *lstmNet
	window    []float64
	mu, sigma float64
}

// Predict feeds each prediction back into the trailing window.
func (f *fittedLSTM) Predict(horizon int) ([]float64, error) {
	window := append([]float64(nil), f.window...)
	out := make([]float64, horizon)
	for h := range out {
		next := f.net.forward(window).y
		out[h] = next*f.sigma + f.mu
		window = append(window[1:], next)
	}
	return out, nil
}

// lstmNet stores every weight in one flat slice so Adam can treat them alike.
// Layout: wx[4H] | wh[4H*H] | b[4H] | wy[H] | by. Gates are ordered input,
// forget, candidate, output.
type lstmNet struct {
	h      int
	params []float64
	grads  []float64
	m, v   []float64
	t      int

	wx, wh, b, wy []float64
	by            *float64
	gwx, gwh, gb  []float64
	gwy           []float64
	gby           *float64
}

func newLSTMNet(hidden int, rng *rand.Rand) *lstmNet {
	g := 4 * hidden
	size := g + g*hidden + g + hidden + 1
	n := &lstmNet{
		h:      hidden,
		params: make([]float64, size),
		grads:  make([]float64, size),
		m:      make([]float64, size),
		v:      make([]float64, size),
	}
	n.wx, n.wh, n.b, n.wy, n.by = n.views(n.params)
	n.gwx, n.gwh, n.gb, n.gwy, n.gby = n.views(n.grads)

	glorot := func(w []float64, fanIn, fanOut int) {
		limit := math.Sqrt(6 / float64(fanIn+fanOut))
		for i := range w {
			w[i] = (rng.Float64()*2 - 1) * limit
		}
	}
	glorot(n.wx, 1, g)
	glorot(n.wh, hidden, g)
	glorot(n.wy, hidden, 1)
	// Forget gate bias starts at one.
	for j := hidden; j < 2*hidden; j++ {
		n.b[j] = 1
	}
	return n
}

func (n *lstmNet) views(flat []float64) (wx, wh, b, wy []float64, by *float64) {
	g := 4 * n.h
	off := 0
	wx = flat[off : off+g]
	off += g
	wh = flat[off : off+g*n.h]
	off += g * n.h
	b = flat[off : off+g]
	off += g
	wy = flat[off : off+n.h]
	off += n.h
	return wx, wh, b, wy, &flat[off]
}

type lstmStep struct {
	x          float64
	z          []float64
	i, f, g, o []float64
	c, h       []float64
}

type lstmTrace struct {
	steps []lstmStep
	y     float64
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func relu(x float64) float64 {
	return math.Max(0, x)
}

func (n *lstmNet) forward(seq []float64) lstmTrace {
	H := n.h
	hPrev := make([]float64, H)
	cPrev := make([]float64, H)
	tr := lstmTrace{steps: make([]lstmStep, len(seq))}
	for t, x := range seq {
		st := lstmStep{
			x: x,
			z: make([]float64, 4*H),
			i: make([]float64, H), f: make([]float64, H),
			g: make([]float64, H), o: make([]float64, H),
			c: make([]float64, H), h: make([]float64, H),
		}
		for k := 0; k < 4*H; k++ {
			st.z[k] = n.wx[k]*x + n.b[k] + floats.Dot(n.wh[k*H:(k+1)*H], hPrev)
		}
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(st.z[j])
			st.f[j] = sigmoid(st.z[H+j])
			st.g[j] = relu(st.z[2*H+j])
			st.o[j] = sigmoid(st.z[3*H+j])
			st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
			st.h[j] = st.o[j] * relu(st.c[j])
		}
		tr.steps[t] = st
		hPrev, cPrev = st.h, st.c
	}
	tr.y = floats.Dot(n.wy, hPrev) + *n.by
	return tr
}

// backward accumulates the gradient of the squared error for one window,
// divided by batch so a step averages over the batch.
func (n *lstmNet) backward(seq []float64, target, batch float64) {
	H := n.h
	tr := n.forward(seq)
	dy := 2 * (tr.y - target) / batch

	last := tr.steps[len(seq)-1].h
	for j := 0; j < H; j++ {
		n.gwy[j] += dy * last[j]
	}
	*n.gby += dy

	dh := make([]float64, H)
	for j := range dh {
		dh[j] = dy * n.wy[j]
	}
	dc := make([]float64, H)
	dz := make([]float64, 4*H)
	zeros := make([]float64, H)

	for t := len(seq) - 1; t >= 0; t-- {
		st := tr.steps[t]
		cPrev, hPrev := zeros, zeros
		if t > 0 {
			cPrev, hPrev = tr.steps[t-1].c, tr.steps[t-1].h
		}
		for j := 0; j < H; j++ {
			do := dh[j] * relu(st.c[j])
			if st.c[j] > 0 {
				dc[j] += dh[j] * st.o[j]
			}
			dz[j] = dc[j] * st.g[j] * st.i[j] * (1 - st.i[j])
			dz[H+j] = dc[j] * cPrev[j] * st.f[j] * (1 - st.f[j])
			if st.z[2*H+j] > 0 {
				dz[2*H+j] = dc[j] * st.i[j]
			} else {
				dz[2*H+j] = 0
			}
			dz[3*H+j] = do * st.o[j] * (1 - st.o[j])
			dc[j] *= st.f[j]
		}

		next := make([]float64, H)
		for k := 0; k < 4*H; k++ {
			if dz[k] == 0 {
				continue
			}
			n.gwx[k] += dz[k] * st.x
			n.gb[k] += dz[k]
			row := n.wh[k*H : (k+1)*H]
			floats.AddScaled(n.gwh[k*H:(k+1)*H], dz[k], hPrev)
			floats.AddScaled(next, dz[k], row)
		}
		dh = next
	}
}

func (n *lstmNet) zeroGrad() {
	for i := range n.grads {
		n.grads[i] = 0
	}
}

// step applies one Adam update after clipping the gradient norm.
func (n *lstmNet) step() {
	if norm := floats.Norm(n.grads, 2); norm > lstmClipNorm {
		floats.Scale(lstmClipNorm/norm, n.grads)
	}
	n.t++
	c1 := 1 - math.Pow(lstmBeta1, float64(n.t))
	c2 := 1 - math.Pow(lstmBeta2, float64(n.t))
	for i, g := range n.grads {
		n.m[i] = lstmBeta1*n.m[i] + (1-lstmBeta1)*g
		n.v[i] = lstmBeta2*n.v[i] + (1-lstmBeta2)*g*g
		n.params[i] -= lstmRate * (n.m[i] / c1) / (math.Sqrt(n.v[i]/c2) + lstmEpsilon)
	}
}
