package vault

import "context"

// Filter selects records by field equality. Identifier is always set; the
// pointer fields participate only when non-nil, which keeps an explicit
// empty-string match (the default field) distinct from "not filtered".
type Filter struct {
	Identifier    string
	Identity      *string
	IdentityToken *string
	Token         *string
	Field         *string
}

func (f Filter) matches(r *TokenRecord) bool {
	if r.Identifier != f.Identifier {
		return false
	}
	if f.Identity != nil && r.Identity != *f.Identity {
		return false
	}
	if f.IdentityToken != nil && r.IdentityToken != *f.IdentityToken {
		return false
	}
	if f.Token != nil && r.Token != *f.Token {
		return false
	}
	if f.Field != nil && r.Field != *f.Field {
		return false
	}
	return true
}

// DocumentStore is the storage port the vault runs on: any document or
// key-value backend that offers a point read, an atomic conditional create,
// an unconditional delete, and an equality-filtered scan. Get returns
// (nil, nil) for an absent key; CreateIfAbsent returns ErrConflict, and only
// ErrConflict, when the key already exists. The vault never assumes
// cross-document transactions.
type DocumentStore interface {
	Get(ctx context.Context, pk string) (*TokenRecord, error)
	CreateIfAbsent(ctx context.Context, record *TokenRecord) error
	Delete(ctx context.Context, pk string) error
	Query(ctx context.Context, filter Filter) ([]TokenRecord, error)
}

func strPtr(s string) *string {
	return &s
}
