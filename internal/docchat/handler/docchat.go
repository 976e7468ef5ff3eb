// Package handler provides HTTP handlers for the docchat service.
package handler

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/extract"
	"github.com/kart-io/docchat/internal/docchat/session"
	"github.com/kart-io/docchat/internal/pkg/httputils"
	"github.com/kart-io/docchat/internal/pkg/middleware"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/pool"
	"github.com/kart-io/docchat/pkg/utils/errors"
)

// sessionWriteTimeout bounds background session persistence.
const sessionWriteTimeout = 5 * time.Second

// Config holds handler-level settings.
type Config struct {
	// MaxUploadSize caps the accepted upload body size in bytes.
	MaxUploadSize int64
	// QueryTimeout bounds a single chat request end to end.
	QueryTimeout time.Duration
}

// DocChatHandler handles docchat HTTP requests.
type DocChatHandler struct {
	service  biz.Service
	sessions session.Store
	idgen    id.Generator
	pool     *pool.Pool
	config   *Config
}

// NewDocChatHandler creates a new DocChatHandler. A nil pool makes session
// persistence synchronous, which tests rely on.
func NewDocChatHandler(service biz.Service, sessions session.Store, idgen id.Generator, p *pool.Pool, config *Config) *DocChatHandler {
	return &DocChatHandler{
		service:  service,
		sessions: sessions,
		idgen:    idgen,
		pool:     p,
		config:   config,
	}
}

// submit runs a session bookkeeping task on the background pool,
// degrading to inline execution when no pool is configured or the
// pool rejects the task.
func (h *DocChatHandler) submit(task func()) {
	if h.pool != nil {
		if err := h.pool.Submit(task); err == nil {
			return
		}
	}
	task()
}

// ingestRequest is the JSON body variant of an ingest request.
type ingestRequest struct {
	Content        string `json:"content"`
	CollectionName string `json:"collectionName"`
	URL            string `json:"url"`
}

// Ingest indexes a PDF file, pasted content, or a URL into a collection.
// Multipart requests carry a file; JSON requests carry content or a URL.
func (h *DocChatHandler) Ingest(c *gin.Context) {
	sessionID := h.sessionID(c)

	input, err := h.parseIngestInput(c)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}

	report, err := h.service.Ingest(c.Request.Context(), input)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}

	h.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sessionWriteTimeout)
		defer cancel()
		h.recordUpload(ctx, sessionID, input, report.Collection)
	})
	httputils.WriteData(c, report)
}

// parseIngestInput builds the extraction input from either request shape.
func (h *DocChatHandler) parseIngestInput(c *gin.Context) (*extract.Input, error) {
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, errors.ErrNoFileUploaded
		}
		if h.config.MaxUploadSize > 0 && fileHeader.Size > h.config.MaxUploadSize {
			return nil, errors.ErrRequestTooLarge
		}

		file, err := fileHeader.Open()
		if err != nil {
			return nil, errors.ErrIngestFailed.WithCause(err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.ErrIngestFailed.WithCause(err)
		}

		return &extract.Input{
			FileName: fileHeader.Filename,
			FileData: data,
		}, nil
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.ErrMissingContent.WithCause(err)
	}

	return &extract.Input{
		Content:    req.Content,
		URL:        req.URL,
		Collection: req.CollectionName,
	}, nil
}

// recordUpload keeps the session in step with what was ingested.
// Session bookkeeping failures never fail the upload itself.
func (h *DocChatHandler) recordUpload(ctx context.Context, sessionID string, input *extract.Input, collection string) {
	state, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.Warnw("failed to load session", "session_id", sessionID, "error", err.Error())
		return
	}

	switch {
	case len(input.FileData) > 0:
		state.AddFile(input.FileName, int64(len(input.FileData)), "application/pdf")
	case strings.TrimSpace(input.Content) != "":
		state.AddContent(input.Content)
	case strings.TrimSpace(input.URL) != "":
		state.AddURL(input.URL)
	}
	state.SetCollection(collection)

	if err := h.sessions.Save(ctx, sessionID, state); err != nil {
		logger.Warnw("failed to save session", "session_id", sessionID, "error", err.Error())
	}
}

// chatRequest is a chat request body.
type chatRequest struct {
	Question       string `json:"question"`
	CollectionName string `json:"collectionName"`
}

// Chat answers a question against a collection.
func (h *DocChatHandler) Chat(c *gin.Context) {
	sessionID := h.sessionID(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteError(c, errors.ErrMissingParams.WithCause(err))
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.CollectionName) == "" {
		httputils.WriteError(c, errors.ErrMissingParams)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.QueryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, req.CollectionName, req.Question)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			httputils.WriteError(c, errors.ErrQueryTimeout)
			return
		}
		httputils.WriteError(c, err)
		return
	}

	h.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sessionWriteTimeout)
		defer cancel()
		h.recordActiveCollection(ctx, sessionID, req.CollectionName)
	})
	httputils.WriteData(c, result)
}

// recordActiveCollection remembers the collection last queried by the session.
func (h *DocChatHandler) recordActiveCollection(ctx context.Context, sessionID, collection string) {
	state, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.Warnw("failed to load session", "session_id", sessionID, "error", err.Error())
		return
	}
	if state.CollectionName == collection {
		return
	}
	state.SetCollection(collection)
	if err := h.sessions.Save(ctx, sessionID, state); err != nil {
		logger.Warnw("failed to save session", "session_id", sessionID, "error", err.Error())
	}
}

// GetSession returns the current session state.
func (h *DocChatHandler) GetSession(c *gin.Context) {
	sessionID := h.sessionID(c)

	state, err := h.sessions.Load(c.Request.Context(), sessionID)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteData(c, state)
}

// SaveSession replaces the current session state with the submitted one.
func (h *DocChatHandler) SaveSession(c *gin.Context) {
	sessionID := h.sessionID(c)

	var state session.State
	if err := c.ShouldBindJSON(&state); err != nil {
		httputils.WriteError(c, errors.ErrMissingParam.WithMessage("session state body is required").WithCause(err))
		return
	}

	if err := h.sessions.Save(c.Request.Context(), sessionID, &state); err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteData(c, &state)
}

// ResetSession clears the current session state.
func (h *DocChatHandler) ResetSession(c *gin.Context) {
	sessionID := h.sessionID(c)

	if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteData(c, gin.H{
		"message":   "Session cleared",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns statistics for the collection named in the path.
func (h *DocChatHandler) Stats(c *gin.Context) {
	collection := strings.TrimSpace(c.Param("name"))
	if collection == "" {
		httputils.WriteError(c, errors.ErrMissingParam.WithMessage("collection is required"))
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), collection)
	if err != nil {
		httputils.WriteError(c, errors.ErrStatsUnavailable.WithCause(err))
		return
	}
	httputils.WriteData(c, stats)
}

// DeleteCollection drops the collection named in the path together with
// all of its vectors.
func (h *DocChatHandler) DeleteCollection(c *gin.Context) {
	collection := strings.TrimSpace(c.Param("name"))
	if collection == "" {
		httputils.WriteError(c, errors.ErrMissingParam.WithMessage("collection is required"))
		return
	}

	if err := h.service.DeleteCollection(c.Request.Context(), collection); err != nil {
		httputils.WriteError(c, errors.ErrCollectionDeleteFailed.WithCause(err))
		return
	}
	httputils.WriteData(c, gin.H{
		"message":    "Collection deleted",
		"collection": collection,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// Healthz reports service liveness.
func (h *DocChatHandler) Healthz(c *gin.Context) {
	httputils.WriteData(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// sessionID returns the caller's session ID, minting one when absent.
// The ID is always echoed back so clients can persist it.
func (h *DocChatHandler) sessionID(c *gin.Context) string {
	sessionID := c.GetHeader(middleware.HeaderXSessionID)
	if sessionID == "" {
		sessionID = h.idgen.Generate()
	}
	c.Writer.Header().Set(middleware.HeaderXSessionID, sessionID)
	return sessionID
}
