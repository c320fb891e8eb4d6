package dag

import "fmt"

// Graph is a directed graph over keyed node payloads. It is built once per
// request from a stored definition and treated as read-only afterwards, so
// it carries no locking.
type Graph[K comparable, V any] struct {
	nodes    map[K]V
	outEdges map[K]map[K]struct{}
	inEdges  map[K]map[K]struct{}
}

func NewGraph[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{
		nodes:    make(map[K]V),
		outEdges: make(map[K]map[K]struct{}),
		inEdges:  make(map[K]map[K]struct{}),
	}
}

func (g *Graph[K, V]) AddNode(key K, value V) error {
	if _, exists := g.nodes[key]; exists {
		return fmt.Errorf("node %v already present", key)
	}
	g.nodes[key] = value
	return nil
}

func (g *Graph[K, V]) AddEdge(from K, to K) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("edge source %v not present", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("edge target %v not present", to)
	}
	if g.outEdges[from] == nil {
		g.outEdges[from] = make(map[K]struct{})
	}
	g.outEdges[from][to] = struct{}{}
	if g.inEdges[to] == nil {
		g.inEdges[to] = make(map[K]struct{})
	}
	g.inEdges[to][from] = struct{}{}
	return nil
}

func (g *Graph[K, V]) Node(key K) (V, bool) {
	v, ok := g.nodes[key]
	return v, ok
}

func (g *Graph[K, V]) NodeCount() int {
	return len(g.nodes)
}

// BeginNodes returns every node with no incoming edge.
func (g *Graph[K, V]) BeginNodes() []K {
	begins := make([]K, 0)
	for key := range g.nodes {
		if len(g.inEdges[key]) == 0 {
			begins = append(begins, key)
		}
	}
	return begins
}

// SubsequentNodes returns the direct successors of key.
func (g *Graph[K, V]) SubsequentNodes(key K) []K {
	next := make([]K, 0, len(g.outEdges[key]))
	for to := range g.outEdges[key] {
		next = append(next, to)
	}
	return next
}

// PreviousNodes returns the direct predecessors of key.
func (g *Graph[K, V]) PreviousNodes(key K) []K {
	prev := make([]K, 0, len(g.inEdges[key]))
	for from := range g.inEdges[key] {
		prev = append(prev, from)
	}
	return prev
}

const colorWhite = 0
const colorGray = 1
const colorBlack = 2

// HasCycle reports whether any node is reachable from itself. DFS with the
// usual white/gray/black coloring, a gray node seen again means a back edge.
func (g *Graph[K, V]) HasCycle() bool {
	color := make(map[K]int, len(g.nodes))
	var visit func(key K) bool
	visit = func(key K) bool {
		color[key] = colorGray
		for next := range g.outEdges[key] {
			switch color[next] {
			case colorGray:
				return true
			case colorWhite:
				if visit(next) {
					return true
				}
			}
		}
		color[key] = colorBlack
		return false
	}
	for key := range g.nodes {
		if color[key] == colorWhite && visit(key) {
			return true
		}
	}
	return false
}

// TopologicalSort returns every key exactly once with each edge source
// before its target (Kahn). Callers must have rejected cyclic graphs via
// HasCycle already; a cycle here is an error.
func (g *Graph[K, V]) TopologicalSort() ([]K, error) {
	indegree := make(map[K]int, len(g.nodes))
	for key := range g.nodes {
		indegree[key] = len(g.inEdges[key])
	}
	frontier := make([]K, 0)
	for key, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, key)
		}
	}
	order := make([]K, 0, len(g.nodes))
	for len(frontier) > 0 {
		key := frontier[0]
		frontier = frontier[1:]
		order = append(order, key)
		for next := range g.outEdges[key] {
			indegree[next]--
			if indegree[next] == 0 {
				frontier = append(frontier, next)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph has a cycle, %d of %d nodes sorted", len(order), len(g.nodes))
	}
	return order, nil
}
