package vault

import (
	"context"
	"errors"
	"fmt"
)

// TokenStore implements the tokenization semantics on top of a
// DocumentStore. It holds no state of its own; every operation is a fresh
// round trip, so concurrent instances against the same backend behave as
// one.
type TokenStore struct {
	docs DocumentStore
}

func NewTokenStore(docs DocumentStore) *TokenStore {
	return &TokenStore{docs: docs}
}

// Get returns the token for a primary key, or (nil, nil) when absent.
func (s *TokenStore) Get(ctx context.Context, pk string) (*Token, error) {
	record, err := s.docs.Get(ctx, pk)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	token := record.Typed()
	return &token, nil
}

// Create resolves the owning identity (creating it lazily on first use),
// then persists the requested token with a conditional write. A conflict on
// either write means another writer got there first; the record is re-read
// and returned, never treated as an error. If the requested key is the
// identity's own key the identity record itself is returned: the subject
// tokenizing itself.
func (s *TokenStore) Create(ctx context.Context, tc TokenCreate) (*Token, error) {
	identity, err := s.resolveIdentity(ctx, tc)
	if err != nil {
		return nil, err
	}

	if identity.PK == tc.PK {
		token := identity.Typed()
		return &token, nil
	}

	record := &TokenRecord{
		PK:            tc.PK,
		Identifier:    tc.Identifier,
		Identity:      tc.Identity,
		IdentityToken: identity.IdentityToken,
		Value:         tc.Value,
		Token:         Tokenize(tc.Method, tc.Type, tc.Value),
		Type:          tc.Type,
		Field:         tc.Field,
		Method:        tc.Method,
		CreatedAt:     tc.CreatedAt,
	}
	if err := s.docs.CreateIfAbsent(ctx, record); err != nil && !errors.Is(err, ErrConflict) {
		return nil, err
	}

	token, err := s.Get(ctx, tc.PK)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("token %s missing after create", tc.PK)
	}
	return token, nil
}

// resolveIdentity finds the identity record for the subject, creating it
// when this is the first token for the (identifier, identity) pair. The
// identity key duplicates the identity component; that derivation is part of
// the external key contract and must not be normalized.
func (s *TokenStore) resolveIdentity(ctx context.Context, tc TokenCreate) (*TokenRecord, error) {
	identityPK := DerivePK(tc.Identifier, tc.Identity, tc.Identity)
	record, err := s.docs.Get(ctx, identityPK)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	identityToken := Tokenize(MethodRandom, TypeString, tc.Identity)
	record = &TokenRecord{
		PK:            identityPK,
		Identifier:    tc.Identifier,
		Identity:      tc.Identity,
		IdentityToken: identityToken,
		Value:         tc.Identity,
		Token:         identityToken,
		Type:          TypeString,
		Method:        MethodRandom,
		CreatedAt:     tc.CreatedAt,
	}
	if err := s.docs.CreateIfAbsent(ctx, record); err != nil && !errors.Is(err, ErrConflict) {
		return nil, err
	}

	// Re-read regardless of who won the write.
	record, err = s.docs.Get(ctx, identityPK)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("identity %s missing after create", identityPK)
	}
	return record, nil
}

// GetOrCreate is the idempotent creation path: the surrogate is generated at
// most once per primary key and reused on every later call.
func (s *TokenStore) GetOrCreate(ctx context.Context, tc TokenCreate) (*Token, error) {
	token, err := s.Get(ctx, tc.PK)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}
	return s.Create(ctx, tc)
}

// Find matches at most one record by (identifier, identity_token, token,
// field). Zero matches is (nil, nil); more than one is an ErrIntegrity,
// because the write path can never legally produce two records under that
// filter.
func (s *TokenStore) Find(ctx context.Context, tf TokenFind) (*Token, error) {
	records, err := s.docs.Query(ctx, Filter{
		Identifier:    tf.Identifier,
		IdentityToken: strPtr(tf.IdentityToken),
		Token:         strPtr(tf.Token),
		Field:         strPtr(tf.Field),
	})
	if err != nil {
		return nil, err
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("%w: %d records match token %s", ErrIntegrity, len(records), tf.Token)
	}
	if len(records) == 0 {
		return nil, nil
	}
	token := records[0].Typed()
	return &token, nil
}

// List returns every record stored under the subject, the identity record
// included.
func (s *TokenStore) List(ctx context.Context, identifier, identity string) ([]Token, error) {
	records, err := s.docs.Query(ctx, Filter{
		Identifier: identifier,
		Identity:   strPtr(identity),
	})
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, 0, len(records))
	for _, record := range records {
		tokens = append(tokens, record.Typed())
	}
	return tokens, nil
}

// Delete removes a record unconditionally; deleting an absent key is not an
// error here, existence checks belong to the caller.
func (s *TokenStore) Delete(ctx context.Context, pk string) (string, error) {
	if err := s.docs.Delete(ctx, pk); err != nil {
		return "", err
	}
	return pk, nil
}
