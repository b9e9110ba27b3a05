// Package service implements the meme catalog pipeline: caption new
// files, rename them after their caption, compute display metadata, and
// keep the store and search index in sync.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/memevault/memevault-server/internal/caption"
	"github.com/memevault/memevault-server/internal/domain"
	apperrors "github.com/memevault/memevault-server/internal/errors"
	"github.com/memevault/memevault-server/internal/id"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/search"
	"github.com/memevault/memevault-server/internal/store"
	"github.com/memevault/memevault-server/internal/util"
)

const (
	// uploadJPEGQuality is the encode quality for normalized uploads.
	uploadJPEGQuality = 80

	// maxCollisionAttempts bounds the _N suffix search for caption-derived
	// filenames.
	maxCollisionAttempts = 1000
)

// MemeService coordinates captioning, renaming, cataloging, and
// indexing of memes.
type MemeService struct {
	logger    *slog.Logger
	store     *store.Store
	index     *search.MemeIndex
	storage   *images.Storage
	captioner caption.Captioner

	// reserved holds caption-derived filenames between the uniqueness
	// check and the catalog write, so two concurrent pipelines cannot
	// claim the same name.
	reserved *SyncMap[string, struct{}]
}

// NewMemeService creates the meme service.
func NewMemeService(logger *slog.Logger, st *store.Store, idx *search.MemeIndex, storage *images.Storage, captioner caption.Captioner) *MemeService {
	return &MemeService{
		logger:    logger,
		store:     st,
		index:     idx,
		storage:   storage,
		captioner: captioner,
		reserved:  NewSyncMap[string, struct{}](),
	}
}

// Process runs the full pipeline for a verified file in the data
// directory: caption, rename to the caption-derived name, compute
// metadata, catalog, and index.
//
// Renaming the file raises a fresh creation event for the new name;
// that second activation finds the filename already cataloged and exits
// early, which is what keeps the pipeline from feeding itself.
func (s *MemeService) Process(ctx context.Context, path string) error {
	filename := filepath.Base(path)

	cataloged, err := s.store.HasFilename(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to check catalog for %s: %w", filename, err)
	}
	if cataloged {
		s.logger.Debug("file already cataloged, skipping", "filename", filename)
		return nil
	}

	info, err := images.Verify(path)
	if err != nil {
		return fmt.Errorf("failed to read image info: %w", err)
	}

	capt, err := s.captioner.Caption(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to caption %s: %w", filename, err)
	}

	base := util.SanitizeFilename(capt)
	if base == "" {
		base = "meme"
	}
	ext := filepath.Ext(filename)

	target, err := s.claimFilename(ctx, base, ext)
	if err != nil {
		return err
	}
	defer s.reserved.Delete(target)

	newPath, err := s.storage.Rename(filename, target)
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", filename, err)
	}

	stat, err := os.Stat(newPath)
	if err != nil {
		return fmt.Errorf("failed to stat renamed file: %w", err)
	}

	hash, err := images.ComputeBlurHash(newPath)
	if err != nil {
		// Placeholder hashes are nice to have, never load-bearing.
		s.logger.Warn("failed to compute blurhash", "filename", target, "error", err)
		hash = ""
	}

	now := time.Now().UTC()
	m := &domain.Meme{
		ID:        id.MustGenerate("meme"),
		Filename:  target,
		Path:      newPath,
		Caption:   capt,
		Format:    info.Format,
		Width:     info.Width,
		Height:    info.Height,
		SizeBytes: stat.Size(),
		BlurHash:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateMeme(ctx, m); err != nil {
		return fmt.Errorf("failed to catalog meme: %w", err)
	}

	if err := s.index.IndexMeme(search.FromMeme(m)); err != nil {
		s.logger.Warn("failed to index meme", "id", m.ID, "error", err)
	}

	s.logger.Info("cataloged meme",
		"id", m.ID,
		"filename", target,
		"caption", capt,
	)
	return nil
}

// claimFilename reserves a unique caption-derived filename, appending a
// _N suffix on collision with cataloged or on-disk names.
func (s *MemeService) claimFilename(ctx context.Context, base, ext string) (string, error) {
	for i := range maxCollisionAttempts {
		candidate := base + ext
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}

		if _, loaded := s.reserved.LoadOrStore(candidate, struct{}{}); loaded {
			continue
		}

		cataloged, err := s.store.HasFilename(ctx, candidate)
		if err != nil {
			s.reserved.Delete(candidate)
			return "", fmt.Errorf("failed to check filename %s: %w", candidate, err)
		}
		if cataloged || s.storage.Exists(candidate) {
			s.reserved.Delete(candidate)
			continue
		}

		return candidate, nil
	}
	return "", apperrors.Conflict(fmt.Sprintf("could not find a free filename for %q", base))
}

// Upload normalizes an uploaded image to JPEG and drops it into the
// data directory under a random name. The directory monitor picks it up
// from there and runs the regular pipeline, so the upload path and the
// copy-a-file-in path behave identically.
func (s *MemeService) Upload(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := images.ConvertToJPEG(r, &buf, uploadJPEGQuality); err != nil {
		return "", apperrors.Validation("uploaded file is not a decodable image").WithCause(err)
	}

	filename := uuid.New().String() + ".jpg"
	if _, err := s.storage.Save(filename, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	s.logger.Info("saved upload", "filename", filename, "size", buf.Len())
	return filename, nil
}

// Search runs a caption search.
func (s *MemeService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return s.index.Search(ctx, params)
}

// Get returns a meme by ID.
func (s *MemeService) Get(ctx context.Context, memeID string) (*domain.Meme, error) {
	return s.store.GetMeme(ctx, memeID)
}

// List returns memes ordered newest-first.
func (s *MemeService) List(ctx context.Context, limit, offset int) ([]*domain.Meme, error) {
	return s.store.ListMemes(ctx, limit, offset)
}

// Count returns the catalog size.
func (s *MemeService) Count(ctx context.Context) (int, error) {
	return s.store.CountMemes(ctx)
}

// Delete removes a meme from the catalog, the search index, and disk.
func (s *MemeService) Delete(ctx context.Context, memeID string) error {
	m, err := s.store.GetMeme(ctx, memeID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMeme(ctx, memeID); err != nil {
		return err
	}

	if err := s.index.DeleteMeme(memeID); err != nil {
		s.logger.Warn("failed to remove meme from index", "id", memeID, "error", err)
	}

	if err := s.storage.Delete(m.Filename); err != nil {
		s.logger.Warn("failed to delete meme file", "filename", m.Filename, "error", err)
	}

	s.logger.Info("deleted meme", "id", memeID, "filename", m.Filename)
	return nil
}

// Reindex rebuilds the search index from the catalog. Used after
// mapping changes or index corruption.
func (s *MemeService) Reindex(ctx context.Context) (int, error) {
	memes, err := s.store.ListMemes(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list memes: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}

	docs := make([]*search.MemeDocument, 0, len(memes))
	for _, m := range memes {
		docs = append(docs, search.FromMeme(m))
	}
	if err := s.index.IndexMemes(docs); err != nil {
		return 0, fmt.Errorf("failed to reindex memes: %w", err)
	}

	s.logger.Info("reindexed catalog", "count", len(docs))
	return len(docs), nil
}

// ImagePath resolves the on-disk path for a cataloged meme.
func (s *MemeService) ImagePath(ctx context.Context, memeID string) (string, error) {
	m, err := s.store.GetMeme(ctx, memeID)
	if err != nil {
		return "", err
	}

	path, err := s.storage.Path(m.Filename)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.NotFoundf("image file for meme %s is missing", memeID)
	}
	return path, nil
}
