package client

import (
	"context"
	"sync"
)

// StoreConfig wires a Store's collaborators.
type StoreConfig struct {
	API     *Client
	Auth    Auth
	Initial Model
	// OnError receives effect failures. The reducer performs no retries; the
	// hosting view decides how to surface the error.
	OnError func(error)
}

// Store holds the shared application model and serializes every reducer
// invocation through a single dispatch loop. Effects run concurrently and
// feed their follow-up messages back into the loop.
type Store struct {
	api     *Client
	auth    Auth
	onError func(error)

	mu          sync.Mutex
	model       Model
	subscribers map[int]func(Model)
	nextSubID   int

	messages  chan Msg
	done      chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}
}

// NewStore constructs a Store and starts its dispatch loop.
func NewStore(cfg StoreConfig) *Store {
	store := &Store{
		api:         cfg.API,
		auth:        cfg.Auth,
		onError:     cfg.OnError,
		model:       cfg.Initial,
		subscribers: make(map[int]func(Model)),
		messages:    make(chan Msg, 16),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	go store.loop()
	return store
}

// Dispatch queues a message for the reducer. Messages dispatched after Close
// are dropped.
func (s *Store) Dispatch(msg Msg) {
	select {
	case s.messages <- msg:
	case <-s.done:
	}
}

// Model returns the current application snapshot.
func (s *Store) Model() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Subscribe registers a callback invoked with each new model. The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func(Model)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close stops the dispatch loop and waits for it to drain.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.loopDone
}

func (s *Store) loop() {
	defer close(s.loopDone)
	for {
		select {
		case msg := <-s.messages:
			s.apply(msg)
		case <-s.done:
			return
		}
	}
}

func (s *Store) apply(msg Msg) {
	s.mu.Lock()
	next, effect := Update(msg, s.model, s.auth, s.api)
	s.model = next
	listeners := make([]func(Model), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}

	if effect == nil {
		return
	}
	go func() {
		followUp, err := effect(context.Background())
		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			return
		}
		s.Dispatch(followUp)
	}()
}
