package data

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/hash"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultEmbeddingModel = "default"

type embeddingRepo struct {
	db    *badger.DB
	model string
	log   *log.Helper
}

// NewEmbeddingRepo stores unit-norm embeddings in badger, namespaced by the
// model name so a model change never serves stale vectors.
func NewEmbeddingRepo(db *badger.DB, c *conf.Clip, logger log.Logger) biz.EmbeddingStore {
	model := defaultEmbeddingModel
	if c != nil && c.Model != "" {
		model = c.Model
	}
	return &embeddingRepo{
		db:    db,
		model: model,
		log:   log.NewHelper(logger),
	}
}

func (r *embeddingRepo) key(h hash.ContentHash) []byte {
	return []byte("emb/" + r.model + "/" + h.Hex())
}

// Get implements biz.EmbeddingStore.
func (r *embeddingRepo) Get(_ context.Context, h hash.ContentHash) ([]float32, error) {
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.key(h))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", biz.ErrCacheStorage, h.Hex(), err)
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", biz.ErrCacheStorage, h.Hex(), err)
	}
	return vec, nil
}

// Put implements biz.EmbeddingStore. Writing the same hash twice stores the
// same value.
func (r *embeddingRepo) Put(_ context.Context, h hash.ContentHash, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", biz.ErrCacheStorage, h.Hex())
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.key(h), encodeVector(vec))
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", biz.ErrCacheStorage, h.Hex(), err)
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
