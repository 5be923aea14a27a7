package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix  = "vault:token:"
	subjectIdxPrefix = "vault:idx:subject:"
	itokenIdxPrefix  = "vault:idx:itoken:"
)

// RedisStore keeps each record as a JSON document under its primary key and
// maintains two secondary index sets, one per subject and one per identity
// token, covering the two equality scans the vault issues. SET NX provides
// the atomic conditional create; the index writes that follow it are not
// transactional with the record, which is within the store contract (no
// cross-document atomicity is assumed).
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(pk string) string {
	return recordKeyPrefix + pk
}

func subjectIdxKey(identifier, identity string) string {
	return fmt.Sprintf("%s%s:%s", subjectIdxPrefix, identifier, identity)
}

func itokenIdxKey(identifier, identityToken string) string {
	return fmt.Sprintf("%s%s:%s", itokenIdxPrefix, identifier, identityToken)
}

func (s *RedisStore) Get(ctx context.Context, pk string) (*TokenRecord, error) {
	payload, err := s.client.Get(ctx, recordKey(pk)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record TokenRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("corrupt token record %s: %w", pk, err)
	}
	return &record, nil
}

func (s *RedisStore) CreateIfAbsent(ctx context.Context, record *TokenRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, recordKey(record.PK), payload, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrConflict
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, subjectIdxKey(record.Identifier, record.Identity), record.PK)
	pipe.SAdd(ctx, itokenIdxKey(record.Identifier, record.IdentityToken), record.PK)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, pk string) error {
	record, err := s.Get(ctx, pk)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.SRem(ctx, subjectIdxKey(record.Identifier, record.Identity), pk)
	pipe.SRem(ctx, itokenIdxKey(record.Identifier, record.IdentityToken), pk)
	pipe.Del(ctx, recordKey(pk))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Query(ctx context.Context, filter Filter) ([]TokenRecord, error) {
	pks, err := s.candidatePKs(ctx, filter)
	if err != nil {
		return nil, err
	}

	var records []TokenRecord
	for _, pk := range pks {
		record, err := s.Get(ctx, pk)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// index entry outlived its record; skip
			continue
		}
		if filter.matches(record) {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (s *RedisStore) candidatePKs(ctx context.Context, filter Filter) ([]string, error) {
	if filter.Identity != nil {
		return s.client.SMembers(ctx, subjectIdxKey(filter.Identifier, *filter.Identity)).Result()
	}
	if filter.IdentityToken != nil {
		return s.client.SMembers(ctx, itokenIdxKey(filter.Identifier, *filter.IdentityToken)).Result()
	}

	// No covering index; fall back to a keyspace scan.
	var pks []string
	iter := s.client.Scan(ctx, 0, recordKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		pks = append(pks, iter.Val()[len(recordKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return pks, nil
}
