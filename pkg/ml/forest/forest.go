package forest

import (
	"math"
	"math/rand"
	"sort"
)

type Options struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

type Metrics struct {
	Accuracy float64
}

// Node is one decision point of a tree, stored flat. Leaf nodes carry the
// fraction of positive samples that reached them.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is a bagged ensemble of decision trees. Prediction averages the
// per-tree positive fractions.
type Model struct {
	Trees []Tree `json:"trees"`
}

// Train fits a random forest with bootstrap sampling and per-split feature
// subsampling. Deterministic for a fixed seed.
func Train(samples [][]float64, labels []float64, opts Options) (Model, Metrics) {
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = 1
	}

	n := len(samples)
	if n == 0 {
		return Model{}, Metrics{}
	}
	featureCount := len(samples[0])
	mtry := int(math.Ceil(math.Sqrt(float64(featureCount))))

	model := Model{Trees: make([]Tree, 0, opts.Trees)}
	for t := 0; t < opts.Trees; t++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(t)))

		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		builder := &treeBuilder{
			samples:  samples,
			labels:   labels,
			maxDepth: opts.MaxDepth,
			minLeaf:  opts.MinLeaf,
			mtry:     mtry,
			features: featureCount,
			rng:      rng,
		}
		builder.build(indices, 0)
		model.Trees = append(model.Trees, Tree{Nodes: builder.nodes})
	}

	var correct int
	for i, sample := range samples {
		p := model.Predict(sample)
		if (p >= 0.5 && labels[i] == 1) || (p < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	return model, Metrics{Accuracy: float64(correct) / float64(n)}
}

// Predict returns the ensemble's probability of the positive class.
func (m Model) Predict(sample []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, tree := range m.Trees {
		sum += tree.predict(sample)
	}
	return sum / float64(len(m.Trees))
}

func (t Tree) predict(sample []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if sample[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

type treeBuilder struct {
	samples  [][]float64
	labels   []float64
	maxDepth int
	minLeaf  int
	mtry     int
	features int
	rng      *rand.Rand
	nodes    []Node
}

// build grows the subtree for indices and returns its node index.
func (b *treeBuilder) build(indices []int, depth int) int {
	positives := 0
	for _, i := range indices {
		if b.labels[i] == 1 {
			positives++
		}
	}
	value := float64(positives) / float64(len(indices))

	if depth >= b.maxDepth || len(indices) < 2*b.minLeaf || positives == 0 || positives == len(indices) {
		return b.leaf(value)
	}

	feature, threshold, ok := b.bestSplit(indices)
	if !ok {
		return b.leaf(value)
	}

	var left, right []int
	for _, i := range indices {
		if b.samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return b.leaf(value)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)
	b.nodes[idx].Left = leftIdx
	b.nodes[idx].Right = rightIdx
	return idx
}

func (b *treeBuilder) leaf(value float64) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: value, Left: -1, Right: -1})
	return idx
}

func (b *treeBuilder) bestSplit(indices []int) (int, float64, bool) {
	candidates := b.rng.Perm(b.features)
	if len(candidates) > b.mtry {
		candidates = candidates[:b.mtry]
	}

	bestGini := math.Inf(1)
	bestFeature := -1
	var bestThreshold float64

	for _, feature := range candidates {
		values := make([]float64, 0, len(indices))
		for _, i := range indices {
			values = append(values, b.samples[i][feature])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2
			gini := b.splitGini(indices, feature, threshold)
			if gini < bestGini {
				bestGini = gini
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) splitGini(indices []int, feature int, threshold float64) float64 {
	var leftPos, leftTotal, rightPos, rightTotal float64
	for _, i := range indices {
		if b.samples[i][feature] <= threshold {
			leftTotal++
			if b.labels[i] == 1 {
				leftPos++
			}
		} else {
			rightTotal++
			if b.labels[i] == 1 {
				rightPos++
			}
		}
	}
	if leftTotal == 0 || rightTotal == 0 {
		return math.Inf(1)
	}

	total := leftTotal + rightTotal
	return (leftTotal/total)*gini(leftPos/leftTotal) + (rightTotal/total)*gini(rightPos/rightTotal)
}

func gini(p float64) float64 {
	return 1 - p*p - (1-p)*(1-p)
}
