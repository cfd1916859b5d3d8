package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for unknown threads.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversations between turns.
//
// Acquire grants exclusive use of a thread until the returned release func is
// called; at most one turn per thread runs at a time. Get returns a copy, so
// a turn that fails before Save leaves the stored history untouched.
type Store interface {
	Acquire(ctx context.Context, threadID string) (release func(), err error)
	Get(ctx context.Context, threadID string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
}

type threadLock struct {
	ch   chan struct{}
	refs int
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	locks map[string]*threadLock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[string]*Conversation),
		locks: make(map[string]*threadLock),
	}
}

func (s *MemoryStore) Acquire(ctx context.Context, threadID string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &threadLock{ch: make(chan struct{}, 1)}
		s.locks[threadID] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.unref(threadID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.unref(threadID, l)
		})
	}, nil
}

func (s *MemoryStore) unref(threadID string, l *threadLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, threadID)
	}
}

func (s *MemoryStore) Get(ctx context.Context, threadID string) (*Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.ThreadID == "" {
		return errors.New("conversation has no thread id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ThreadID] = c.Clone()
	return nil
}

// Len returns the number of stored threads.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
