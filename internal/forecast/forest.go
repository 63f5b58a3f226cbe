package forecast

import (
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const defaultForestSeed = 42

func randomForestModel() Model {
	return &regressionModel{
		info: Info{
			ID:          ModelRandomForest,
			Name:        "Random Forest",
			Description: "Average of bootstrapped regression trees over the value position",
			Params: []ParamInfo{
				{Name: "n_estimators", Default: 100, Help: "number of trees, 1 to 1000"},
				{Name: "max_depth", Default: 0, Help: "tree depth limit up to 64, 0 for unlimited"},
				{Name: "random_state", Default: defaultForestSeed},
			},
		},
		minPoint: 2,
		build: func(p Params) (indexRegressor, error) {
			trees, err := intInRange(p, "n_estimators", 100, 1, maxEstimators)
			if err != nil {
				return nil, err
			}
			depth, err := intInRange(p, "max_depth", 0, 0, maxTreeDepth)
			if err != nil {
				return nil, err
			}
			seed, err := p.Int("random_state", defaultForestSeed)
			if err != nil {
				return nil, err
			}
			return &forestRegressor{trees: trees, maxDepth: depth, seed: int64(seed)}, nil
		},
	}
}

type forestRegressor struct {
	trees    int
	maxDepth int
	seed     int64
	forest   []*treeNode
}

// fit grows the trees concurrently. Tree i always draws its bootstrap sample
// from seed+i, so the forest does not depend on scheduling.
func (r *forestRegressor) fit(x, y []float64) error {
	r.forest = make([]*treeNode, r.trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < r.trees; i++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(r.seed + int64(i)))
			sample := make([]point, len(x))
			for j := range sample {
				k := rng.Intn(len(x))
				sample[j] = point{x: x[k], y: y[k]}
			}
			sort.Slice(sample, func(a, b int) bool { return sample[a].x < sample[b].x })
			r.forest[i] = growTree(sample, 0, r.maxDepth)
			return nil
		})
	}
	return g.Wait()
}

func (r *forestRegressor) predict(x float64) float64 {
	sum := 0.0
	for _, t := range r.forest {
		sum += t.predict(x)
	}
	return sum / float64(len(r.forest))
}

type point struct {
	x, y float64
}

type treeNode struct {
	leaf      bool
	value     float64
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x float64) float64 {
	for !n.leaf {
		if x <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// growTree builds a CART regression tree over points sorted by x, splitting
// where the summed squared error of the two halves is smallest.
func growTree(pts []point, depth, maxDepth int) *treeNode {
	total := 0.0
	for _, p := range pts {
		total += p.y
	}
	mean := total / float64(len(pts))
	if len(pts) < 2 || (maxDepth > 0 && depth >= maxDepth) {
		return &treeNode{leaf: true, value: mean}
	}

	var sum, sumSq float64
	for _, p := range pts {
		sum += p.y
		sumSq += p.y * p.y
	}
	parentSSE := sumSq - sum*sum/float64(len(pts))
	if parentSSE <= 1e-12 {
		return &treeNode{leaf: true, value: mean}
	}

	best, bestSSE := -1, parentSSE
	var leftSum, leftSq float64
	for i := 0; i < len(pts)-1; i++ {
		leftSum += pts[i].y
		leftSq += pts[i].y * pts[i].y
		if pts[i].x == pts[i+1].x {
			continue
		}
		nl := float64(i + 1)
		nr := float64(len(pts) - i - 1)
		rightSum := sum - leftSum
		rightSq := sumSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < bestSSE {
			best, bestSSE = i, sse
		}
	}
	if best < 0 {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		threshold: (pts[best].x + pts[best+1].x) / 2,
		left:      growTree(pts[:best+1], depth+1, maxDepth),
		right:     growTree(pts[best+1:], depth+1, maxDepth),
	}
}
