package ecs

// Index is a typed lookup from pool identity to a live instance.
// Iteration order is not defined; never drive simulation decisions from it.
type Index[T any] struct {
	data map[PoolID]*T
}

func NewIndex[T any]() *Index[T] {
	return &Index[T]{
		data: make(map[PoolID]*T, 256),
	}
}

func (s *Index[T]) Set(id PoolID, c *T) {
	s.data[id] = c
}

func (s *Index[T]) Get(id PoolID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Index[T]) Remove(id PoolID) {
	delete(s.data, id)
}

func (s *Index[T]) Has(id PoolID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Index[T]) Len() int {
	return len(s.data)
}

func (s *Index[T]) Clear() {
	clear(s.data)
}
