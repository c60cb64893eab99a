package dynamo

import "sync"

type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(stateSize int) *StatePool {
	return &StatePool{
		size: stateSize,
		pool: sync.Pool{
			New: func() interface{} {
				s := make(State, stateSize)
				return &s
			},
		},
	}
}

func (p *StatePool) Get() *State {
	return p.pool.Get().(*State)
}

func (p *StatePool) Put(s *State) {
	if s == nil || len(*s) != p.size {
		return
	}
	for i := range *s {
		(*s)[i] = 0
	}
	p.pool.Put(s)
}
