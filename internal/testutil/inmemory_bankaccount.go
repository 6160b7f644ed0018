package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	ierr "github.com/recorrente/recorrente/internal/errors"
)

// InMemoryBankAccountStore is an in-memory credential repository for tests
type InMemoryBankAccountStore struct {
	mu    sync.RWMutex
	creds map[string]*bankaccount.Credential
}

func NewInMemoryBankAccountStore() *InMemoryBankAccountStore {
	return &InMemoryBankAccountStore{
		creds: make(map[string]*bankaccount.Credential),
	}
}

// Add seeds a credential into the store
func (s *InMemoryBankAccountStore) Add(cred *bankaccount.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cred
	s.creds[cred.ID] = &copied
}

func (s *InMemoryBankAccountStore) Get(ctx context.Context, id string) (*bankaccount.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[id]
	if !ok {
		return nil, ierr.NewError("bank account not found").
			Mark(ierr.ErrNotFound)
	}
	copied := *cred
	return &copied, nil
}

func (s *InMemoryBankAccountStore) List(ctx context.Context) ([]*bankaccount.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*bankaccount.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		copied := *cred
		creds = append(creds, &copied)
	}
	return creds, nil
}

func (s *InMemoryBankAccountStore) GetDefault(ctx context.Context) (*bankaccount.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cred := range s.creds {
		if cred.IsDefault {
			copied := *cred
			return &copied, nil
		}
	}
	if len(s.creds) == 1 {
		for _, cred := range s.creds {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, ierr.NewError("no default bank account configured").
		Mark(ierr.ErrConfiguration)
}

func (s *InMemoryBankAccountStore) UpdateToken(ctx context.Context, id string, token string, issuedAt time.Time, expiresIn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return ierr.NewError("bank account not found").
			Mark(ierr.ErrNotFound)
	}
	cred.Token = &token
	cred.TokenIssuedAt = &issuedAt
	cred.TokenExpiresIn = &expiresIn
	return nil
}
