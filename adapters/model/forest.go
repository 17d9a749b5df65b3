package model

import (
	"math/rand"
	"sort"

	"spatialview/domain/core"

	"gonum.org/v1/gonum/mat"
)

// ForestConfig tunes the bagged regression tree ensemble. Zero values take
// the defaults.
type ForestConfig struct {
	Trees       int     // number of bagged trees (default 64)
	MaxDepth    int     // maximum tree depth (default 6)
	MinLeaf     int     // minimum samples per leaf (default 5)
	FeatureFrac float64 // fraction of predictors tried per split (default 1/3)
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 64
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 6
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 5
	}
	if c.FeatureFrac <= 0 || c.FeatureFrac > 1 {
		c.FeatureFrac = 1.0 / 3
	}
	return c
}

// maxSplitCandidates bounds the thresholds tried per feature at a node.
const maxSplitCandidates = 16

// forestModel is a bagged ensemble of depth-limited regression trees.
// Each tree trains on a bootstrap sample over a random feature subset per
// split; prediction is the mean over trees. Importance accumulates the
// sample-weighted variance reduction at each split, normalized to sum to 1.
type forestModel struct {
	cfg        ForestConfig
	rng        *rand.Rand
	trees      []*treeNode
	importance []float64
}

func newForestModel(cfg ForestConfig, seed int64) *forestModel {
	return &forestModel{
		cfg: cfg.withDefaults(),
		rng: rand.New(rand.NewSource(seed)),
	}
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (m *forestModel) Fit(x *mat.Dense, y []float64) error {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return core.NewDegenerateError("", "", 0)
	}

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = mat.Row(nil, i, x)
	}

	m.importance = make([]float64, p)
	m.trees = make([]*treeNode, 0, m.cfg.Trees)
	for t := 0; t < m.cfg.Trees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = m.rng.Intn(n)
		}
		m.trees = append(m.trees, m.buildNode(rows, y, sample, 0))
	}

	total := 0.0
	for _, imp := range m.importance {
		total += imp
	}
	if total > 0 {
		for j := range m.importance {
			m.importance[j] /= total
		}
	}
	return nil
}

func (m *forestModel) buildNode(rows [][]float64, y []float64, idx []int, depth int) *treeNode {
	mean := meanAt(y, idx)
	if depth >= m.cfg.MaxDepth || len(idx) < 2*m.cfg.MinLeaf {
		return &treeNode{leaf: true, value: mean}
	}

	parentSSE := sseAt(y, idx, mean)
	if parentSSE <= 1e-12 {
		return &treeNode{leaf: true, value: mean}
	}

	p := len(rows[0])
	mtry := int(float64(p) * m.cfg.FeatureFrac)
	if mtry < 1 {
		mtry = 1
	}
	candidates := m.rng.Perm(p)[:mtry]

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	var bestLeft, bestRight []int

	for _, f := range candidates {
		for _, threshold := range splitCandidates(rows, idx, f) {
			var left, right []int
			for _, i := range idx {
				if rows[i][f] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < m.cfg.MinLeaf || len(right) < m.cfg.MinLeaf {
				continue
			}
			gain := parentSSE - sseAt(y, left, meanAt(y, left)) - sseAt(y, right, meanAt(y, right))
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: mean}
	}
	m.importance[bestFeature] += bestGain
	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      m.buildNode(rows, y, bestLeft, depth+1),
		right:     m.buildNode(rows, y, bestRight, depth+1),
	}
}

// splitCandidates returns up to maxSplitCandidates thresholds for a feature
// at a node, taken as midpoints between distinct quantile values.
func splitCandidates(rows [][]float64, idx []int, feature int) []float64 {
	values := make([]float64, len(idx))
	for i, r := range idx {
		values[i] = rows[r][feature]
	}
	sort.Float64s(values)

	step := len(values) / maxSplitCandidates
	if step < 1 {
		step = 1
	}
	var out []float64
	for i := step; i < len(values); i += step {
		lo, hi := values[i-1], values[i]
		if hi > lo {
			out = append(out, (lo+hi)/2)
		}
	}
	return out
}

func (m *forestModel) Predict(x *mat.Dense) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		sum := 0.0
		for _, tree := range m.trees {
			sum += tree.predict(row)
		}
		out[i] = sum / float64(len(m.trees))
	}
	return out
}

func (t *treeNode) predict(row []float64) float64 {
	for !t.leaf {
		if row[t.feature] <= t.threshold {
			t = t.left
		} else {
			t = t.right
		}
	}
	return t.value
}

func (m *forestModel) Importance() []float64 {
	return append([]float64(nil), m.importance...)
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sseAt(y []float64, idx []int, mean float64) float64 {
	sse := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	return sse
}
