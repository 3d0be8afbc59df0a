package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizrank-service/internal/docstore"
)

const mergeRetries = 10

// DocStore keeps each document as a JSON string and tracks collection
// membership in a set:
//
//	SET  doc:{collection}:{id} {json}
//	SADD docs:{collection}     {id}
type DocStore struct {
	client *redis.Client
}

func NewDocStore(client *redis.Client) *DocStore {
	return &DocStore{client: client}
}

func (s *DocStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	raw, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (s *DocStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []docstore.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	docs := make([]docstore.Document, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// member without a document: deleted between SMEMBERS and MGET
			continue
		}
		fields, err := decodeFields([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", collection, ids[i], err)
		}
		doc := docstore.Document{ID: ids[i], Fields: fields}
		if docstore.Matches(doc, q) {
			docs = append(docs, doc)
		}
	}
	docstore.SortBy(docs, q.OrderBy)
	return docs, nil
}

func (s *DocStore) MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error {
	key := s.docKey(collection, id)
	txf := func(tx *redis.Tx) error {
		existing := map[string]any{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if existing, err = decodeFields(raw); err != nil {
				return err
			}
		}

		merged, err := docstore.Merge(existing, fields)
		if err != nil {
			return err
		}
		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.indexKey(collection), id)
			return nil
		})
		return err
	}

	for i := 0; i < mergeRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("merge %s/%s: %w", collection, id, err)
		}
		return nil
	}
	return fmt.Errorf("merge %s/%s: %w", collection, id, redis.TxFailedErr)
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.docKey(collection, id))
	pipe.SRem(ctx, s.indexKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocStore) docKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func (s *DocStore) indexKey(collection string) string {
	return "docs:" + collection
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}
