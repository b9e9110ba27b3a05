package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/memevault/memevault-server/internal/domain"
	"github.com/memevault/memevault-server/internal/http/response"
)

// maxUploadBytes caps multipart upload memory buffering.
const maxUploadBytes = 32 << 20

func (s *Server) registerMemeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMemes",
		Method:      http.MethodGet,
		Path:        "/api/v1/memes",
		Summary:     "List memes",
		Description: "Returns cataloged memes ordered newest-first",
		Tags:        []string{"Memes"},
	}, s.handleListMemes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMeme",
		Method:      http.MethodGet,
		Path:        "/api/v1/memes/{id}",
		Summary:     "Get meme",
		Description: "Returns a meme by ID",
		Tags:        []string{"Memes"},
	}, s.handleGetMeme)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteMeme",
		Method:      http.MethodDelete,
		Path:        "/api/v1/memes/{id}",
		Summary:     "Delete meme",
		Description: "Removes a meme from the catalog, the index, and disk",
		Tags:        []string{"Memes"},
	}, s.handleDeleteMeme)

	// Image streaming and multipart upload use chi directly, not huma.
	s.router.Get("/api/v1/memes/{id}/image", s.handleServeImage)
	s.router.With(RateLimitMiddleware(s.uploadLimiter, s.logger)).
		Post("/api/v1/memes/upload", s.handleUploadMeme)
}

// === DTOs ===

type MemeResponse struct {
	ID        string    `json:"id" doc:"Meme ID"`
	Filename  string    `json:"filename" doc:"Caption-derived filename"`
	Caption   string    `json:"caption" doc:"Vision-model caption"`
	Format    string    `json:"format" doc:"Image format (jpeg, png, gif, bmp, webp)"`
	Width     int       `json:"width" doc:"Pixel width"`
	Height    int       `json:"height" doc:"Pixel height"`
	SizeBytes int64     `json:"size_bytes" doc:"File size in bytes"`
	BlurHash  string    `json:"blurhash,omitempty" doc:"BlurHash placeholder"`
	CreatedAt time.Time `json:"created_at" doc:"Catalog time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

type ListMemesInput struct {
	Limit  int `query:"limit" doc:"Page size (0 for all)"`
	Offset int `query:"offset" doc:"Items to skip"`
}

type ListMemesResponse struct {
	Memes []MemeResponse `json:"memes" doc:"Cataloged memes"`
	Total int            `json:"total" doc:"Total catalog size"`
}

type ListMemesOutput struct {
	Body ListMemesResponse
}

type GetMemeInput struct {
	ID string `path:"id" doc:"Meme ID"`
}

type MemeOutput struct {
	Body MemeResponse
}

type DeleteMemeInput struct {
	ID string `path:"id" doc:"Meme ID"`
}

// === Handlers ===

func (s *Server) handleListMemes(ctx context.Context, input *ListMemesInput) (*ListMemesOutput, error) {
	memes, err := s.memes.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	total, err := s.memes.Count(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]MemeResponse, len(memes))
	for i, m := range memes {
		resp[i] = mapMemeResponse(m)
	}

	return &ListMemesOutput{Body: ListMemesResponse{Memes: resp, Total: total}}, nil
}

func (s *Server) handleGetMeme(ctx context.Context, input *GetMemeInput) (*MemeOutput, error) {
	m, err := s.memes.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &MemeOutput{Body: mapMemeResponse(m)}, nil
}

func (s *Server) handleDeleteMeme(ctx context.Context, input *DeleteMemeInput) (*MessageOutput, error) {
	if err := s.memes.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Meme deleted"}}, nil
}

// handleServeImage streams the image file for a cataloged meme.
func (s *Server) handleServeImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Meme ID is required", s.logger)
		return
	}

	path, err := s.memes.ImagePath(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// Renames change the URL, so cached bytes never go stale.
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// handleUploadMeme accepts a multipart image upload. The file is
// normalized to JPEG and dropped into the data directory; the monitor
// picks it up and runs the regular caption pipeline.
func (s *Server) handleUploadMeme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file field", s.logger)
		return
	}
	defer file.Close()

	filename, err := s.memes.Upload(r.Context(), file)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, map[string]string{"filename": filename}, s.logger)
}

// === Mappers ===

func mapMemeResponse(m *domain.Meme) MemeResponse {
	return MemeResponse{
		ID:        m.ID,
		Filename:  m.Filename,
		Caption:   m.Caption,
		Format:    m.Format,
		Width:     m.Width,
		Height:    m.Height,
		SizeBytes: m.SizeBytes,
		BlurHash:  m.BlurHash,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
