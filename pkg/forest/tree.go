package forest

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// node is a tree node. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	samples   int
}

// Tree is a fitted CART regression tree.
type Tree struct {
	nodes       []node
	importances []float64
}

type treeParams struct {
	minSplit int
	minLeaf  int
	maxDepth int
}

type builder struct {
	x      [][]float64
	y      []float64
	params treeParams
	tree   *Tree
	sorted []int
}

// fitTree grows a tree on the rows listed in idx. Rows may repeat.
func fitTree(x [][]float64, y []float64, idx []int, params treeParams) *Tree {
	nFeatures := len(x[0])
	b := &builder{
		x:      x,
		y:      y,
		params: params,
		tree:   &Tree{importances: make([]float64, nFeatures)},
		sorted: make([]int, len(idx)),
	}
	b.grow(idx, 0)
	return b.tree
}

func (b *builder) leaf(idx []int) int {
	vals := make([]float64, len(idx))
	for i, r := range idx {
		vals[i] = b.y[r]
	}
	b.tree.nodes = append(b.tree.nodes, node{
		feature: -1,
		value:   floats.Sum(vals) / float64(len(vals)),
		samples: len(idx),
	})
	return len(b.tree.nodes) - 1
}

// moments returns the sum and the sum of squares of y over idx.
func (b *builder) moments(idx []int) (sum, sumSq float64) {
	for _, r := range idx {
		v := b.y[r]
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}

func (b *builder) grow(idx []int, depth int) int {
	n := len(idx)
	if n < b.params.minSplit || n < 2*b.params.minLeaf ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) {
		return b.leaf(idx)
	}

	sum, sumSq := b.moments(idx)
	parentSSE := sumSq - sum*sum/float64(n)
	if parentSSE <= 1e-12*float64(n) {
		return b.leaf(idx)
	}

	feature, threshold, gain, ok := b.bestSplit(idx, sum, sumSq)
	if !ok {
		return b.leaf(idx)
	}

	var left, right []int
	for _, r := range idx {
		if b.x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	b.tree.importances[feature] += gain

	self := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{feature: feature, threshold: threshold, samples: n})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.nodes[self].left = l
	b.tree.nodes[self].right = r
	return self
}

// bestSplit scans every feature for the threshold with the largest
// reduction in squared error. gain is that reduction.
func (b *builder) bestSplit(idx []int, sum, sumSq float64) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	parentSSE := sumSq - sum*sum/float64(n)
	minLeaf := b.params.minLeaf
	sorted := b.sorted[:n]

	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(i, j int) int {
			a, c := b.x[i][f], b.x[j][f]
			switch {
			case a < c:
				return -1
			case a > c:
				return 1
			}
			return 0
		})

		var lSum, lSumSq float64
		for i := 0; i < n-1; i++ {
			v := b.y[sorted[i]]
			lSum += v
			lSumSq += v * v

			nl := i + 1
			nr := n - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}

			rSum := sum - lSum
			rSumSq := sumSq - lSumSq
			childSSE := (lSumSq - lSum*lSum/float64(nl)) + (rSumSq - rSum*rSum/float64(nr))
			g := parentSSE - childSSE
			if !ok || g > gain {
				t := lo + (hi-lo)/2
				if t >= hi {
					t = lo
				}
				feature, threshold, gain, ok = f, t, g, true
			}
		}
	}
	if ok && gain < 0 {
		gain = 0
	}
	return feature, threshold, gain, ok
}

// Predict returns the leaf mean reached by x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		nd := &t.nodes[i]
		if nd.feature < 0 {
			return nd.value
		}
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		nd := t.nodes[i]
		if nd.feature < 0 {
			return 0
		}
		return 1 + max(walk(nd.left), walk(nd.right))
	}
	return walk(0)
}

// Leaves returns the number of leaf nodes.
func (t *Tree) Leaves() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.feature < 0 {
			n++
		}
	}
	return n
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}
