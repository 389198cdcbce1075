// Package redisdoc stores document collections as Redis hashes, one hash per
// collection with a field per document id.
package redisdoc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"example.com/routines/internal/domain"
)

const mergeAttempts = 5

// NewClient builds a Redis client.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Store provides Redis-backed document collections.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore constructs a Store; every hash key is prefixed with prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Collection implements domain.DocumentStore.
func (s *Store) Collection(name string) domain.Collection {
	return &Collection{client: s.client, key: s.prefix + ":" + name}
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Collection is a single Redis hash.
type Collection struct {
	client *redis.Client
	key    string
}

// Get implements domain.Collection.
func (c *Collection) Get(ctx context.Context, id string) (domain.Document, error) {
	raw, err := c.client.HGet(ctx, c.key, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return decode(raw)
}

// Put implements domain.Collection.
func (c *Collection) Put(ctx context.Context, id string, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.client.HSet(ctx, c.key, id, raw).Err()
}

// Merge implements domain.Collection with an optimistic WATCH on the hash.
func (c *Collection) Merge(ctx context.Context, id string, fields domain.Document) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, c.key, id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrDocumentNotFound
			}
			return err
		}
		doc, err := decode(raw)
		if err != nil {
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.key, id, merged)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < mergeAttempts; i++ {
		err = c.client.Watch(ctx, txf, c.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// Delete implements domain.Collection.
func (c *Collection) Delete(ctx context.Context, id string) error {
	n, err := c.client.HDel(ctx, c.key, id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Scan implements domain.Collection. Redis has no field index, so matching
// happens here after reading the hash.
func (c *Collection) Scan(ctx context.Context, filter *domain.Filter) ([]domain.Record, error) {
	all, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	results := make([]domain.Record, 0, len(all))
	for id, raw := range all {
		doc, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !filter.Matches(doc) {
			continue
		}
		results = append(results, domain.Record{ID: id, Doc: doc})
	}
	return results, nil
}

func decode(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
