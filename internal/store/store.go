// Package store keeps the step graph of a pipeline drawing in memory. On
// top of the graph.Store contract it lets the properties of a step be
// updated once the run has been measured.
package store

import (
	"sync"

	"github.com/dominikbraun/graph"
)

// Store is a graph store whose vertex properties can be updated.
type Store[K comparable, T any] interface {
	graph.Store[K, T]
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
}

type vertex[T any] struct {
	value T
	props graph.VertexProperties
}

type edgeKey[K comparable] struct {
	source K
	target K
}

// MemoryStore is a Store backed by maps. Vertices keep their insertion
// order, which makes listings stable.
type MemoryStore[K comparable, T any] struct {
	mu       sync.RWMutex
	order    []K
	vertices map[K]*vertex[T]
	edges    map[edgeKey[K]]graph.Edge[K]
	// degree counts the edges touching a vertex, in either direction.
	degree map[K]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore[K comparable, T any]() *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		vertices: make(map[K]*vertex[T]),
		edges:    make(map[edgeKey[K]]graph.Edge[K]),
		degree:   make(map[K]int),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.vertices[k] = &vertex[T]{value: t, props: p}
	s.order = append(s.order, k)

	return nil
}

// UpdateVertex applies options to the properties of vertex k.
func (s *MemoryStore[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vertices[k]
	if !ok {
		return graph.ErrVertexNotFound
	}
	for _, opt := range options {
		opt(&v.props)
	}

	return nil
}

// Vertex returns the value and a copy of the properties of vertex k. The
// attributes map is shared with the store.
func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		var zero T
		return zero, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v.value, v.props, nil
}

// RemoveVertex removes vertex k. It fails while an edge still touches k.
func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}
	if s.degree[k] > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.vertices, k)
	delete(s.degree, k)
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]K(nil), s.order...), nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vertices), nil
}

func (s *MemoryStore[K, T]) AddEdge(source, target K, edge graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey[K]{source: source, target: target}
	if _, ok := s.edges[key]; !ok {
		s.degree[source]++
		s.degree[target]++
	}
	s.edges[key] = edge

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(source, target K, edge graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey[K]{source: source, target: target}
	if _, ok := s.edges[key]; !ok {
		return graph.ErrEdgeNotFound
	}
	s.edges[key] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(source, target K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey[K]{source: source, target: target}
	if _, ok := s.edges[key]; ok {
		delete(s.edges, key)
		s.degree[source]--
		s.degree[target]--
	}

	return nil
}

func (s *MemoryStore[K, T]) Edge(source, target K) (graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[edgeKey[K]{source: source, target: target}]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]graph.Edge[K], 0, len(s.edges))
	for _, edge := range s.edges {
		edges = append(edges, edge)
	}

	return edges, nil
}

var _ Store[string, string] = (*MemoryStore[string, string])(nil)
