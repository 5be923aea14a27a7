package vault

import (
	"context"
	"time"
)

// Service is the façade the transport layers call. It owns the key
// derivation for externally-submitted creation requests and delegates
// storage semantics to the TokenStore.
type Service struct {
	store    *TokenStore
	batch    *BatchProcessor
	policies PolicyConfig
}

func NewService(store *TokenStore, policies PolicyConfig) *Service {
	return &Service{
		store:    store,
		batch:    NewBatchProcessor(store),
		policies: policies,
	}
}

// CreateToken derives the primary key from the four-component tuple
// (identifier, identity, value, field) — the field component is included
// even when empty — and creates idempotently: resubmitting the same tuple
// returns the already-stored record.
func (s *Service) CreateToken(ctx context.Context, tc TokenCreate) (*Token, error) {
	s.policies.Apply(&tc)
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = time.Now().UTC()
	}
	tc.PK = DerivePK(tc.Identifier, tc.Identity, tc.Value, tc.Field)
	return s.store.GetOrCreate(ctx, tc)
}

func (s *Service) GetToken(ctx context.Context, pk string) (*Token, error) {
	return s.store.Get(ctx, pk)
}

func (s *Service) FindToken(ctx context.Context, tf TokenFind) (*Token, error) {
	return s.store.Find(ctx, tf)
}

func (s *Service) ListTokens(ctx context.Context, identifier, identity string) ([]Token, error) {
	return s.store.List(ctx, identifier, identity)
}

func (s *Service) DeleteToken(ctx context.Context, pk string) (string, error) {
	return s.store.Delete(ctx, pk)
}

// DeleteTokens removes every record under the subject, the identity record
// included, and reports how many were deleted.
func (s *Service) DeleteTokens(ctx context.Context, identifier, identity string) (int, error) {
	tokens, err := s.store.List(ctx, identifier, identity)
	if err != nil {
		return 0, err
	}
	for _, token := range tokens {
		if _, err := s.store.Delete(ctx, token.PK); err != nil {
			return 0, err
		}
	}
	return len(tokens), nil
}

func (s *Service) ProcessBatch(ctx context.Context, req RemoteFunctionRequest) (*RemoteFunctionResponse, error) {
	return s.batch.Process(ctx, req)
}
