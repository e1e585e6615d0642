package testhelper

import (
	"sync"

	"github.com/aptokit/aptokit/wallet"
)

var _ wallet.Store = (*MemStore)(nil)

// MemStore is an in-memory wallet.Store.
type MemStore struct {
	lk sync.Mutex
	id string
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Get() (string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.id, nil
}

func (s *MemStore) Put(id string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.id = id
	return nil
}

func (s *MemStore) Clear() error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.id = ""
	return nil
}
