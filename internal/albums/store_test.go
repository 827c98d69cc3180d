package albums

import (
	"context"
	"sync"
)

// memStore mirrors the Postgres repository's semantics: Save is conditional on
// the version that was read.
type memStore struct {
	mu       sync.Mutex
	albums   map[string]Album
	gets     int
	saves    int
	details  int
	afterGet func(n int)
	saveErr  error
}

func newMemStore(albums ...Album) *memStore {
	s := &memStore{albums: make(map[string]Album)}
	for _, a := range albums {
		if a.Version == 0 {
			a.Version = 1
		}
		s.albums[a.ID] = a.Clone()
	}
	return s
}

func (s *memStore) Get(ctx context.Context, id string) (Album, error) {
	s.mu.Lock()
	s.gets++
	n := s.gets
	a, ok := s.albums[id]
	s.mu.Unlock()
	if !ok {
		return Album{}, ErrNotFound
	}
	if s.afterGet != nil {
		s.afterGet(n)
	}
	return a.Clone(), nil
}

func (s *memStore) Create(ctx context.Context, a Album) (Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Version = 1
	s.albums[a.ID] = a.Clone()
	return a.Clone(), nil
}

func (s *memStore) Save(ctx context.Context, a Album) (Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return Album{}, s.saveErr
	}
	stored, ok := s.albums[a.ID]
	if !ok {
		return Album{}, ErrNotFound
	}
	if stored.Version != a.Version {
		return Album{}, ErrVersionConflict
	}
	a.Version++
	a.RolesBootstrapped = stored.RolesBootstrapped
	a.ACL = stored.ACL.Clone()
	s.albums[a.ID] = a.Clone()
	return a.Clone(), nil
}

func (s *memStore) UpdateDetails(ctx context.Context, id string, d Details) (Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details++
	a, ok := s.albums[id]
	if !ok {
		return Album{}, ErrNotFound
	}
	applyDetails(&a, d)
	a.Version++
	s.albums[id] = a.Clone()
	return a.Clone(), nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.albums[id]; !ok {
		return ErrNotFound
	}
	delete(s.albums, id)
	return nil
}

func (s *memStore) snapshot(id string) Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.albums[id].Clone()
}

// barrier makes the first n Gets wait for each other so every editor reads
// the same baseline before anyone saves.
func barrier(n int) func(int) {
	var wg sync.WaitGroup
	wg.Add(n)
	return func(count int) {
		if count > n {
			return
		}
		wg.Done()
		wg.Wait()
	}
}
