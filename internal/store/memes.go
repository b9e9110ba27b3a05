package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/memevault/memevault-server/internal/domain"
	apperrors "github.com/memevault/memevault-server/internal/errors"
)

// Key prefixes for meme storage.
const (
	memePrefix           = "meme:"
	memeByFilenamePrefix = "idx:meme:filename:" // filename -> meme ID
)

// CreateMeme stores a new meme and its filename index entry.
func (s *Store) CreateMeme(ctx context.Context, m *domain.Meme) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(memePrefix + m.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		// Check if already exists.
		if _, err := txn.Get(key); err == nil {
			return apperrors.AlreadyExists(fmt.Sprintf("meme %s already exists", m.ID))
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal meme: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		filenameKey := []byte(memeByFilenamePrefix + m.Filename)
		return txn.Set(filenameKey, []byte(m.ID))
	})
}

// GetMeme retrieves a meme by ID.
func (s *Store) GetMeme(ctx context.Context, id string) (*domain.Meme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.Meme
	key := []byte(memePrefix + id)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFoundf("meme %s not found", id)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// GetMemeByFilename retrieves a meme by its library filename.
func (s *Store) GetMemeByFilename(ctx context.Context, filename string) (*domain.Meme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(memeByFilenamePrefix + filename))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFoundf("meme with filename %s not found", filename)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetMeme(ctx, id)
}

// UpdateMeme rewrites a stored meme, keeping the filename index in sync
// when the filename changed.
func (s *Store) UpdateMeme(ctx context.Context, m *domain.Meme) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(memePrefix + m.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFoundf("meme %s not found", m.ID)
		}
		if err != nil {
			return err
		}

		var old domain.Meme
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal meme: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		if old.Filename != m.Filename {
			if err := txn.Delete([]byte(memeByFilenamePrefix + old.Filename)); err != nil {
				return err
			}
		}
		return txn.Set([]byte(memeByFilenamePrefix+m.Filename), []byte(m.ID))
	})
}

// DeleteMeme removes a meme and its index entry.
func (s *Store) DeleteMeme(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(memePrefix + id)

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFoundf("meme %s not found", id)
		}
		if err != nil {
			return err
		}

		var m domain.Meme
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); err != nil {
			return err
		}

		if err := txn.Delete([]byte(memeByFilenamePrefix + m.Filename)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// ListMemes returns memes ordered newest-first. A limit of 0 means no
// limit.
func (s *Store) ListMemes(ctx context.Context, limit, offset int) ([]*domain.Meme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var memes []*domain.Meme
	prefix := []byte(memePrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m domain.Meme
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			memes = append(memes, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(memes, func(i, j int) bool {
		return memes[i].CreatedAt.After(memes[j].CreatedAt)
	})

	if offset >= len(memes) {
		return []*domain.Meme{}, nil
	}
	memes = memes[offset:]
	if limit > 0 && limit < len(memes) {
		memes = memes[:limit]
	}
	return memes, nil
}

// CountMemes returns the number of stored memes.
func (s *Store) CountMemes(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	prefix := []byte(memePrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// HasFilename reports whether a meme with the given filename exists.
func (s *Store) HasFilename(ctx context.Context, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists([]byte(memeByFilenamePrefix + filename))
}
