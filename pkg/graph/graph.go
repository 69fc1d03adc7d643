package graph

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrKindMismatch = errors.New("node kind mismatch")
)

// Graph is the in-memory entity graph. It is safe for concurrent use; node
// values are never mutated in place, updates replace them.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
	order []string
	out   map[string][]Edge
	in    map[string][]Edge
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}
}

// AddNode inserts n or replaces an existing node with the same id and kind.
func (g *Graph) AddNode(n Node) error {
	if n == nil || n.ID() == "" {
		return errors.New("node id is empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.nodes[n.ID()]; ok {
		if prev.Kind() != n.Kind() {
			return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, n.ID(), prev.Kind(), n.Kind())
		}
	} else {
		g.order = append(g.order, n.ID())
	}
	g.nodes[n.ID()] = n
	return nil
}

// AddEdge validates and inserts e. LocatedAt and HasUnit always move together
// so a unit never has more than one location; an existing edge with the same
// endpoints and kind is replaced.
func (g *Graph) AddEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[e.From]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.From)
	}
	to, ok := g.nodes[e.To]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, e.To)
	}
	if err := validateEdge(from, to, e); err != nil {
		return err
	}

	switch e.Kind {
	case LocatedAt:
		g.placeUnit(e.From, e.To)
	case HasUnit:
		g.placeUnit(e.To, e.From)
	default:
		g.putEdge(e)
	}
	return nil
}

func (g *Graph) putEdge(e Edge) {
	g.out[e.From] = replaceEdge(g.out[e.From], e)
	g.in[e.To] = replaceEdge(g.in[e.To], e)
}

func (g *Graph) dropEdge(from, to string, kind EdgeKind) {
	g.out[from] = removeEdge(g.out[from], from, to, kind)
	g.in[to] = removeEdge(g.in[to], from, to, kind)
}

func (g *Graph) placeUnit(unitID, locationID string) {
	if prev, ok := g.unitLocation(unitID); ok {
		g.dropEdge(unitID, prev, LocatedAt)
		g.dropEdge(prev, unitID, HasUnit)
	}
	g.putEdge(Edge{From: unitID, To: locationID, Kind: LocatedAt})
	g.putEdge(Edge{From: locationID, To: unitID, Kind: HasUnit})
}

func replaceEdge(edges []Edge, e Edge) []Edge {
	for i, cur := range edges {
		if cur.From == e.From && cur.To == e.To && cur.Kind == e.Kind {
			edges[i] = e
			return edges
		}
	}
	return append(edges, e)
}

func removeEdge(edges []Edge, from, to string, kind EdgeKind) []Edge {
	out := edges[:0]
	for _, cur := range edges {
		if cur.From == from && cur.To == to && cur.Kind == kind {
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Lookup returns the node with the given id if it is of variant T.
func Lookup[T Node](g *Graph, id string) (T, bool) {
	var zero T
	n, ok := g.Node(id)
	if !ok {
		return zero, false
	}
	t, ok := n.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Nodes returns every node of the given kind in insertion order. An empty
// kind returns all nodes.
func (g *Graph) Nodes(kind Kind) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		if kind == "" || n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// OutEdges returns a copy of id's outgoing edges of the given kind.
func (g *Graph) OutEdges(id string, kind EdgeKind) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.out[id], kind)
}

// InEdges returns a copy of id's incoming edges of the given kind.
func (g *Graph) InEdges(id string, kind EdgeKind) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.in[id], kind)
}

func filterEdges(edges []Edge, kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// UnitLocation returns the location holding unitID.
func (g *Graph) UnitLocation(unitID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.unitLocation(unitID)
}

func (g *Graph) unitLocation(unitID string) (string, bool) {
	for _, e := range g.out[unitID] {
		if e.Kind == LocatedAt {
			return e.To, true
		}
	}
	return "", false
}

// UnitsAt returns the blood units currently held by locationID.
func (g *Graph) UnitsAt(locationID string) []*BloodUnit {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var units []*BloodUnit
	for _, e := range g.out[locationID] {
		if e.Kind != HasUnit {
			continue
		}
		u, ok := g.nodes[e.To].(*BloodUnit)
		if !ok {
			continue
		}
		units = append(units, u)
	}
	return units
}

// MoveUnit relocates a blood unit to another hospital or blood bank.
func (g *Graph) MoveUnit(unitID, locationID string) error {
	return g.AddEdge(Edge{From: unitID, To: locationID, Kind: LocatedAt})
}

// RemoveNode deletes a node together with every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for _, e := range g.out[id] {
		g.in[e.To] = removeEdge(g.in[e.To], e.From, e.To, e.Kind)
	}
	for _, e := range g.in[id] {
		g.out[e.From] = removeEdge(g.out[e.From], e.From, e.To, e.Kind)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	for i, cur := range g.order {
		if cur == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// AgeUnits lowers the remaining shelf life of every blood unit by days.
func (g *Graph) AgeUnits(days int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, n := range g.nodes {
		u, ok := n.(*BloodUnit)
		if !ok {
			continue
		}
		aged := *u
		aged.ExpiryDaysRemaining -= days
		g.nodes[id] = &aged
	}
}

// Stats summarises the graph for metrics and logs.
type Stats struct {
	Nodes map[Kind]int
	Edges map[EdgeKind]int
}

func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{Nodes: map[Kind]int{}, Edges: map[EdgeKind]int{}}
	for _, n := range g.nodes {
		s.Nodes[n.Kind()]++
	}
	for _, edges := range g.out {
		for _, e := range edges {
			s.Edges[e.Kind]++
		}
	}
	return s
}
