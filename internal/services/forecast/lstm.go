package forecast

import (
	"fmt"
	"math"
	"math/rand"

	domsvc "CoinSight/internal/domain/service"
)

// LSTM is the learned predictor: a single gated recurrent cell trained with
// a simplified gradient update over min-max normalized prices. It is not a
// deep-learning framework; it is the small from-scratch cell this engine
// has always used, which is enough to pick up momentum and mean reversion
// in daily series.
type LSTM struct {
	hiddenSize int
	seqLen     int
	epochs     int
	lr         float64
	rng        *rand.Rand

	// gate weight matrices: input, forget, cell, output, then the output layer
	weights [][][]float64
	biases  [][]float64

	series []float64
	min    float64
	max    float64
	fitted bool
}

var _ domsvc.PricePredictor = (*LSTM)(nil)

// LSTMOption configures an LSTM predictor.
type LSTMOption func(*LSTM)

func WithHiddenSize(n int) LSTMOption {
	return func(m *LSTM) {
		if n > 0 {
			m.hiddenSize = n
		}
	}
}

func WithWindow(n int) LSTMOption {
	return func(m *LSTM) {
		if n > 0 {
			m.seqLen = n
		}
	}
}

func WithEpochs(n int) LSTMOption {
	return func(m *LSTM) {
		if n > 0 {
			m.epochs = n
		}
	}
}

// WithSeed makes the weight initialization reproducible.
func WithSeed(seed int64) LSTMOption {
	return func(m *LSTM) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

func NewLSTM(opts ...LSTMOption) *LSTM {
	m := &LSTM{
		hiddenSize: 50,
		seqLen:     60,
		epochs:     100,
		lr:         0.001,
		rng:        rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initWeights()
	return m
}

func (m *LSTM) Name() string { return "LSTM" }

func (m *LSTM) initWeights() {
	inputSize := 1
	m.weights = make([][][]float64, 0, 5)
	m.biases = make([][]float64, 0, 5)
	for g := 0; g < 4; g++ {
		m.weights = append(m.weights, m.randomMatrix(m.hiddenSize, inputSize+m.hiddenSize))
	}
	m.weights = append(m.weights, m.randomMatrix(1, m.hiddenSize))
	for g := 0; g < 5; g++ {
		size := m.hiddenSize
		if g == 4 {
			size = 1
		}
		b := make([]float64, size)
		for i := range b {
			b[i] = m.rng.Float64()*0.1 - 0.05
		}
		m.biases = append(m.biases, b)
	}
}

func (m *LSTM) randomMatrix(rows, cols int) [][]float64 {
	mat := make([][]float64, rows)
	for i := range mat {
		row := make([]float64, cols)
		for j := range row {
			row[j] = m.rng.Float64()*0.1 - 0.05
		}
		mat[i] = row
	}
	return mat
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func matVec(a [][]float64, b []float64) []float64 {
	out := make([]float64, len(a))
	for i, row := range a {
		sum := 0.0
		for j, v := range row {
			sum += v * b[j]
		}
		out[i] = sum
	}
	return out
}

func (m *LSTM) cell(input float64, hidden, cellState []float64) ([]float64, []float64) {
	combined := make([]float64, 1+len(hidden))
	combined[0] = input
	copy(combined[1:], hidden)

	inputGate := matVec(m.weights[0], combined)
	forgetGate := matVec(m.weights[1], combined)
	cellGate := matVec(m.weights[2], combined)
	outputGate := matVec(m.weights[3], combined)
	for i := 0; i < m.hiddenSize; i++ {
		inputGate[i] = sigmoid(inputGate[i] + m.biases[0][i])
		forgetGate[i] = sigmoid(forgetGate[i] + m.biases[1][i])
		cellGate[i] = math.Tanh(cellGate[i] + m.biases[2][i])
		outputGate[i] = sigmoid(outputGate[i] + m.biases[3][i])
	}

	newCell := make([]float64, m.hiddenSize)
	newHidden := make([]float64, m.hiddenSize)
	for i := 0; i < m.hiddenSize; i++ {
		newCell[i] = forgetGate[i]*cellState[i] + inputGate[i]*cellGate[i]
		newHidden[i] = outputGate[i] * math.Tanh(newCell[i])
	}
	return newHidden, newCell
}

func (m *LSTM) forward(seq []float64) float64 {
	hidden := make([]float64, m.hiddenSize)
	cellState := make([]float64, m.hiddenSize)
	for _, v := range seq {
		hidden, cellState = m.cell(v, hidden, cellState)
	}
	out := 0.0
	for i, w := range m.weights[4][0] {
		out += w * hidden[i]
	}
	return out + m.biases[4][0]
}

func (m *LSTM) normalize(v float64) float64 {
	if m.max == m.min {
		return 0.5
	}
	return (v - m.min) / (m.max - m.min)
}

func (m *LSTM) denormalize(v float64) float64 {
	return m.min + v*(m.max-m.min)
}

// Fit trains the cell on normalized sliding windows of the series.
func (m *LSTM) Fit(prices []float64) error {
	if len(prices) < 4 {
		return fmt.Errorf("lstm: series too short: %d points", len(prices))
	}
	m.series = append([]float64(nil), prices...)

	m.min, m.max = prices[0], prices[0]
	for _, p := range prices {
		if p < m.min {
			m.min = p
		}
		if p > m.max {
			m.max = p
		}
	}

	// Shrink the window for short series so there is something to train on.
	if m.seqLen > len(prices)/2 {
		m.seqLen = len(prices) / 2
	}
	if m.seqLen < 1 {
		m.seqLen = 1
	}

	normalized := make([]float64, len(prices))
	for i, p := range prices {
		normalized[i] = m.normalize(p)
	}

	type sample struct {
		input  []float64
		target float64
	}
	samples := make([]sample, 0, len(normalized)-m.seqLen)
	for i := 0; i+m.seqLen < len(normalized); i++ {
		samples = append(samples, sample{
			input:  normalized[i : i+m.seqLen],
			target: normalized[i+m.seqLen],
		})
	}
	if len(samples) == 0 {
		return fmt.Errorf("lstm: no training windows for sequence length %d", m.seqLen)
	}

	for epoch := 0; epoch < m.epochs; epoch++ {
		for _, s := range samples {
			pred := m.forward(s.input)
			m.updateWeights(pred - s.target)
		}
	}

	m.fitted = true
	return nil
}

// updateWeights applies the simplified uniform gradient step used by this
// cell: every weight moves against the scaled output error.
func (m *LSTM) updateWeights(errOut float64) {
	step := m.lr * 2 * errOut * 0.01
	for g := range m.weights {
		for i := range m.weights[g] {
			for j := range m.weights[g][i] {
				m.weights[g][i][j] -= step
			}
		}
	}
}

// Predict extends the series iteratively, feeding each prediction back into
// the input window.
func (m *LSTM) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("lstm: predict before fit")
	}
	if steps <= 0 {
		return nil, fmt.Errorf("lstm: steps must be positive, got %d", steps)
	}

	window := make([]float64, 0, m.seqLen+steps)
	start := len(m.series) - m.seqLen
	if start < 0 {
		start = 0
	}
	for _, p := range m.series[start:] {
		window = append(window, m.normalize(p))
	}

	out := make([]float64, 0, steps)
	for s := 0; s < steps; s++ {
		seq := window
		if len(seq) > m.seqLen {
			seq = seq[len(seq)-m.seqLen:]
		}
		next := m.forward(seq)
		window = append(window, next)
		out = append(out, m.denormalize(next))
	}
	return out, nil
}
