package boundary

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/errors"
	"stagewise/internal/impact"
	"stagewise/internal/relations"
	"stagewise/internal/slogutil"
)

// Options configures clustering and boundary scoring
type Options struct {
	// MinBoundarySize is the smallest boundary the post-pass tries to reach (default: 1)
	MinBoundarySize int

	// MaxBoundarySize caps cluster growth unless Force is set (default: 8)
	MaxBoundarySize int

	// Force lets merges exceed MaxBoundarySize
	Force bool

	// EdgeThreshold is the minimum pair weight that forms a clustering edge (default: 0.3)
	EdgeThreshold float64

	// MediumLineThreshold and MediumFileThreshold promote a boundary to medium priority (defaults: 200, 5)
	MediumLineThreshold int
	MediumFileThreshold int

	// CompanionVoteFactor scales testing/documentation votes in mixed boundaries (default: 0.5)
	CompanionVoteFactor float64
}

// DefaultOptions returns the default clustering options
func DefaultOptions() Options {
	return Options{
		MinBoundarySize:     1,
		MaxBoundarySize:     8,
		EdgeThreshold:       0.3,
		MediumLineThreshold: 200,
		MediumFileThreshold: 5,
		CompanionVoteFactor: 0.5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinBoundarySize <= 0 {
		o.MinBoundarySize = d.MinBoundarySize
	}
	if o.MaxBoundarySize <= 0 {
		o.MaxBoundarySize = d.MaxBoundarySize
	}
	if o.EdgeThreshold <= 0 {
		o.EdgeThreshold = d.EdgeThreshold
	}
	if o.MediumLineThreshold <= 0 {
		o.MediumLineThreshold = d.MediumLineThreshold
	}
	if o.MediumFileThreshold <= 0 {
		o.MediumFileThreshold = d.MediumFileThreshold
	}
	if o.CompanionVoteFactor <= 0 {
		o.CompanionVoteFactor = d.CompanionVoteFactor
	}
	return o
}

// Result is the output of one build
type Result struct {
	Boundaries []CommitBoundary
	Warnings   []string
}

// Builder clusters changes into boundaries
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder creates a builder; zero option fields take their defaults
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	return &Builder{opts: opts.withDefaults(), logger: slogutil.OrDiscard(logger)}
}

// Options returns the effective options
func (b *Builder) Options() Options {
	return b.opts
}

type edge struct {
	i, j   int
	weight float64
}

// Build clusters the change-set. analyses and assessments are aligned with cs
// by index. Boundaries are ordered by the input position of their first
// member and members keep input order.
func (b *Builder) Build(cs []changes.GitChange, analyses []classify.Analysis, assessments []impact.Assessment, rels []relations.FileRelationship) (Result, error) {
	n := len(cs)
	if len(analyses) != n || len(assessments) != n {
		return Result{}, errors.New(errors.InternalError,
			fmt.Sprintf("boundary: %d changes, %d analyses, %d assessments", n, len(analyses), len(assessments)), nil, nil)
	}
	if n == 0 {
		return Result{Boundaries: []CommitBoundary{}}, nil
	}

	index := make(map[string]int, n)
	for i, c := range cs {
		index[c.Path] = i
	}
	weights := make(map[[2]int]float64)
	links := make(map[[2]int]relations.FileRelationship)
	for _, r := range rels {
		i, okA := index[r.FileA]
		j, okB := index[r.FileB]
		if !okA || !okB || i == j {
			continue
		}
		if j < i {
			i, j = j, i
		}
		key := [2]int{i, j}
		if r.Strength > weights[key] {
			weights[key] = r.Strength
			links[key] = r
		}
	}

	uf := newUnionFind(n)
	for _, e := range b.sortedEdges(weights) {
		ri, rj := uf.find(e.i), uf.find(e.j)
		if ri == rj {
			continue
		}
		if uf.size[ri]+uf.size[rj] > b.opts.MaxBoundarySize && !b.opts.Force {
			continue
		}
		uf.union(ri, rj)
	}

	clusters := uf.clusters()
	clusters, warnings := b.enforceMinSize(clusters, weights, cs)

	out := make([]CommitBoundary, 0, len(clusters))
	for _, cl := range clusters {
		members := make([]Member, len(cl.idx))
		for k, i := range cl.idx {
			members[k] = NewMember(cs[i], analyses[i], assessments[i])
		}
		bd := Describe(members, b.opts)
		bd.Reasoning = reasoningFor(cl, links, cs)
		out = append(out, bd)
	}

	b.logger.Debug("boundaries built",
		"files", n,
		"edges", len(weights),
		"boundaries", len(out),
		"warnings", len(warnings),
	)
	return Result{Boundaries: out, Warnings: warnings}, nil
}

// sortedEdges returns pairs at or above the edge threshold, strongest first,
// ties in pair order.
func (b *Builder) sortedEdges(weights map[[2]int]float64) []edge {
	edges := make([]edge, 0, len(weights))
	for k, w := range weights {
		if w >= b.opts.EdgeThreshold {
			edges = append(edges, edge{i: k[0], j: k[1], weight: w})
		}
	}
	sort.Slice(edges, func(x, y int) bool {
		if edges[x].weight != edges[y].weight {
			return edges[x].weight > edges[y].weight
		}
		if edges[x].i != edges[y].i {
			return edges[x].i < edges[y].i
		}
		return edges[x].j < edges[y].j
	})
	return edges
}

// cluster holds member indices in input order
type cluster struct {
	idx    []int
	merged bool // grew in the min-size post-pass
}

func (c cluster) first() int { return c.idx[0] }

// enforceMinSize merges undersized clusters, smallest first, into the
// cluster they are most strongly related to. A cluster that cannot be placed
// within the max size is kept and reported.
func (b *Builder) enforceMinSize(clusters []cluster, weights map[[2]int]float64, cs []changes.GitChange) ([]cluster, []string) {
	var warnings []string
	if b.opts.MinBoundarySize <= 1 || len(cs) < 2 {
		return clusters, warnings
	}

	stuck := make(map[int]bool) // keyed by first member index
	for {
		u := -1
		for k, cl := range clusters {
			if len(cl.idx) >= b.opts.MinBoundarySize || stuck[cl.first()] {
				continue
			}
			if u < 0 || len(cl.idx) < len(clusters[u].idx) {
				u = k
			}
		}
		if u < 0 {
			break
		}

		target := b.bestTarget(clusters, u, weights, cs)
		if target < 0 {
			stuck[clusters[u].first()] = true
			continue
		}

		merged := cluster{idx: mergeSorted(clusters[u].idx, clusters[target].idx), merged: true}
		next := make([]cluster, 0, len(clusters)-1)
		for k, cl := range clusters {
			switch k {
			case u:
			case target:
				next = append(next, merged)
			default:
				next = append(next, cl)
			}
		}
		sort.SliceStable(next, func(x, y int) bool { return next[x].first() < next[y].first() })
		clusters = next
	}

	for _, cl := range clusters {
		if len(cl.idx) < b.opts.MinBoundarySize {
			warnings = append(warnings, fmt.Sprintf(
				"boundary [%s] has %d file(s), below the minimum of %d; no boundary can absorb it within the maximum of %d",
				strings.Join(pathsOf(cl, cs), ", "), len(cl.idx), b.opts.MinBoundarySize, b.opts.MaxBoundarySize))
		}
	}
	return clusters, warnings
}

// bestTarget ranks candidate clusters for absorbing clusters[u]: highest
// aggregate weight, then longest shared directory prefix, then smaller
// size, then earlier position.
func (b *Builder) bestTarget(clusters []cluster, u int, weights map[[2]int]float64, cs []changes.GitChange) int {
	best := -1
	var bestWeight float64
	var bestPrefix int
	for k, cl := range clusters {
		if k == u {
			continue
		}
		if len(cl.idx)+len(clusters[u].idx) > b.opts.MaxBoundarySize && !b.opts.Force {
			continue
		}
		w := aggregateWeight(clusters[u], cl, weights)
		p := sharedPrefix(clusters[u], cl, cs)
		better := best < 0 ||
			w > bestWeight+1e-9 ||
			(w > bestWeight-1e-9 && p > bestPrefix) ||
			(w > bestWeight-1e-9 && p == bestPrefix && len(cl.idx) < len(clusters[best].idx))
		if better {
			best, bestWeight, bestPrefix = k, w, p
		}
	}
	return best
}

func aggregateWeight(a, b cluster, weights map[[2]int]float64) float64 {
	total := 0.0
	for _, i := range a.idx {
		for _, j := range b.idx {
			key := [2]int{i, j}
			if j < i {
				key = [2]int{j, i}
			}
			total += weights[key]
		}
	}
	return total
}

// sharedPrefix is the longest shared directory prefix, in path segments,
// between any member of a and any member of b.
func sharedPrefix(a, b cluster, cs []changes.GitChange) int {
	best := 0
	for _, i := range a.idx {
		for _, j := range b.idx {
			if n := commonSegments(changes.Dir(cs[i].Path), changes.Dir(cs[j].Path)); n > best {
				best = n
			}
		}
	}
	return best
}

func commonSegments(x, y string) int {
	if x == "" || y == "" {
		return 0
	}
	xs, ys := strings.Split(x, "/"), strings.Split(y, "/")
	n := 0
	for n < len(xs) && n < len(ys) && xs[n] == ys[n] {
		n++
	}
	return n
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(append(out, a...), b...)
	sort.Ints(out)
	return out
}

func pathsOf(cl cluster, cs []changes.GitChange) []string {
	out := make([]string, len(cl.idx))
	for k, i := range cl.idx {
		out[k] = cs[i].Path
	}
	return out
}

// reasoningFor explains why the members were grouped
func reasoningFor(cl cluster, links map[[2]int]relations.FileRelationship, cs []changes.GitChange) string {
	if len(cl.idx) == 1 {
		return fmt.Sprintf("%s has no strong relationship to other changes", cs[cl.idx[0]].Path)
	}
	var strongest relations.FileRelationship
	count := 0
	for x := 0; x < len(cl.idx); x++ {
		for y := x + 1; y < len(cl.idx); y++ {
			r, ok := links[[2]int{cl.idx[x], cl.idx[y]}]
			if !ok {
				continue
			}
			count++
			if r.Strength > strongest.Strength {
				strongest = r
			}
		}
	}
	var reason string
	if count == 0 {
		reason = fmt.Sprintf("%d files grouped without direct relationships", len(cl.idx))
	} else {
		reason = fmt.Sprintf("%d files linked by %d relationship(s); strongest %s %.2f between %s and %s",
			len(cl.idx), count, strongest.Type, strongest.Strength, strongest.FileA, strongest.FileB)
	}
	if cl.merged {
		reason += "; merged to reach the minimum boundary size"
	}
	return reason
}

// unionFind tracks clusters by root; the root of a set is always its
// smallest index.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (u *unionFind) find(x int) int {
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return
	}
	if ry < rx {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	u.size[rx] += u.size[ry]
}

// clusters groups indices by root, ordered by first member
func (u *unionFind) clusters() []cluster {
	byRoot := make(map[int]int)
	var out []cluster
	for i := range u.parent {
		r := u.find(i)
		k, ok := byRoot[r]
		if !ok {
			k = len(out)
			byRoot[r] = k
			out = append(out, cluster{})
		}
		out[k].idx = append(out[k].idx, i)
	}
	return out
}
