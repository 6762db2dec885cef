package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ragcore/internal/domain"
	"ragcore/internal/objectstore"
	"ragcore/internal/ragerrors"
)

// --- documents ---

func (s *Server) handleUploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "failed to get uploaded file: "+err.Error())
	}
	src, err := fh.Open()
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "failed to open uploaded file: "+err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "failed to read uploaded file: "+err.Error())
	}

	doc := domain.Document{
		ID:          domain.NewID(),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		ByteSize:    int64(len(data)),
		UploadedAt:  time.Now(),
		Status:      domain.DocumentPending,
	}

	ctx := c.Request().Context()
	if s.objects != nil {
		key := doc.ID + "/" + doc.Filename
		if _, err := s.objects.Put(ctx, key, bytes.NewReader(data), objectstore.PutOptions{ContentType: doc.ContentType}); err != nil {
			return respondWithError(c, http.StatusInternalServerError, err.Error())
		}
		doc.ObjectKey = key
	}
	if err := s.repository.Save(ctx, doc); err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}

	// Ingestion runs in the background; the upload response only reports
	// acceptance, matching the {document_id, filename, status} shape
	// (status here is still "pending" — the pipeline flips it to
	// processing/ready/error as it runs).
	go s.ingestInBackground(doc, data)

	return c.JSON(http.StatusAccepted, map[string]any{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"status":      doc.Status,
	})
}

func (s *Server) ingestInBackground(doc domain.Document, data []byte) {
	ctx := context.Background()
	if err := s.pipeline.Ingest(ctx, doc, data); err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).Msg("document ingestion failed")
	}
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.repository.List(c.Request().Context())
	if err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}
	stats := domain.DocumentStats{Documents: docs, TotalCount: len(docs)}
	for _, d := range docs {
		switch d.Status {
		case domain.DocumentReady:
			stats.ReadyCount++
		case domain.DocumentProcessing, domain.DocumentPending:
			stats.ProcessingCount++
		case domain.DocumentError:
			stats.ErrorCount++
		}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	id := c.Param("id")
	doc, err := s.repository.Get(c.Request().Context(), id)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleReprocessDocument(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	doc, err := s.repository.Get(ctx, id)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	if doc.ObjectKey == "" || s.objects == nil {
		return respondWithError(c, http.StatusBadRequest, "original file is not available for reprocessing")
	}
	rc, _, err := s.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}

	go s.ingestInBackground(doc, data)
	return c.JSON(http.StatusAccepted, map[string]any{"message": "reprocessing started"})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if err := s.pipeline.DeleteDocument(c.Request().Context(), id); err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "document deleted"})
}

// --- qa ---

type askQuestionRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

func (s *Server) handleAskQuestion(c echo.Context) error {
	var req askQuestionRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return respondWithError(c, http.StatusBadRequest, "question is required")
	}
	resp, err := s.qa.AnswerQuestion(c.Request().Context(), req.Question, req.SessionID, req.UserID)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// --- sessions ---

type createSessionRequest struct {
	Title  string `json:"title,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return respondWithError(c, http.StatusBadRequest, err.Error())
		}
	}
	session, err := s.history.CreateSession(c.Request().Context(), req.UserID, req.Title)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleRecentSessions(c echo.Context) error {
	sessions, err := s.history.ListRecentSessions(c.Request().Context(), 20)
	if err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionHistory(c echo.Context) error {
	id := c.Param("id")
	turns, err := s.history.GetSessionHistory(c.Request().Context(), id)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"session_id": id, "history": turns})
}

func (s *Server) handleSessionStatsSummary(c echo.Context) error {
	stats, err := s.history.StatsSummary(c.Request().Context())
	if err != nil {
		return respondWithError(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// --- config ---

func (s *Server) handleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.configs.Current())
}

func (s *Server) handleGetConfigSection(c echo.Context) error {
	section := c.Param("section")
	data, err := s.configs.GetSection(section)
	if err != nil {
		return respondWithError(c, statusForError(err), err.Error())
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) handleUpdateConfigSection(c echo.Context) error {
	section := c.Param("section")
	var partial map[string]any
	if err := c.Bind(&partial); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	cfg, err := s.configs.UpdateSection(section, partial)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "configuration updated",
		"config":  cfg,
	})
}

type validateConfigRequest struct {
	Section string         `json:"section"`
	Config  map[string]any `json:"config"`
}

func (s *Server) handleValidateConfig(c echo.Context) error {
	var req validateConfigRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	result := s.configs.ValidateUpdate(req.Section, req.Config)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleReloadConfig(c echo.Context) error {
	_, err := s.configs.Reload()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "configuration reloaded",
	})
}

// --- models ---

type addModelRequest struct {
	ModelType string         `json:"model_type"`
	Name      string         `json:"name"`
	Provider  string         `json:"provider"`
	ModelName string         `json:"model_name"`
	Config    map[string]any `json:"config,omitempty"`
}

func (s *Server) handleAddModel(c echo.Context) error {
	var req addModelRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	cfg := domain.ModelConfig{
		Name:      req.Name,
		ModelType: domain.ModelType(req.ModelType),
		Provider:  req.Provider,
		ModelName: req.ModelName,
		Config:    req.Config,
		Enabled:   true,
	}
	if err := s.models.AddModel(cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"loaded":  false,
			"message": err.Error(),
		})
	}

	loaded := true
	message := "model registered"
	if _, err := s.models.TestModel(c.Request().Context(), cfg.Name); err != nil {
		loaded = false
		message = err.Error()
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"loaded":  loaded,
		"message": message,
	})
}

type testModelRequest struct {
	ModelType string `json:"model_type"`
	ModelName string `json:"model_name"`
}

func (s *Server) handleTestModel(c echo.Context) error {
	var req testModelRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	start := time.Now()
	result, err := s.models.TestModel(c.Request().Context(), req.ModelName)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return c.JSON(http.StatusOK, map[string]any{
			"success":    false,
			"latency_ms": latency,
			"error":      err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":    result.Status == domain.HealthHealthy,
		"latency_ms": latency,
	})
}

func (s *Server) handleModelConfigs(c echo.Context) error {
	configs := s.models.GetConfigs()
	active := map[string]string{}
	statuses := map[string]domain.Metrics{}
	for _, typ := range []domain.ModelType{domain.ModelTypeEmbedding, domain.ModelTypeReranking, domain.ModelTypeLLM} {
		statuses[string(typ)] = s.models.GetMetrics(typ).Snapshot()
	}
	for typ, name := range s.models.ActiveNames() {
		active[string(typ)] = name
	}
	return c.JSON(http.StatusOK, map[string]any{
		"model_configs":  configs,
		"active_models":  active,
		"model_statuses": statuses,
	})
}

type switchModelRequest struct {
	ModelType string `json:"model_type"`
	ModelName string `json:"model_name"`
}

func (s *Server) handleSwitchModel(c echo.Context) error {
	var req switchModelRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}
	if err := s.models.SwitchActive(c.Request().Context(), req.ModelName); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "active model switched",
	})
}

// --- helpers ---

// respondWithError mirrors the donor's documents.go helper of the same name.
func respondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// statusForError maps a ragerrors.Kind to its HTTP status class.
func statusForError(err error) int {
	switch ragerrors.KindOf(err) {
	case ragerrors.KindValidation, ragerrors.KindConfiguration, ragerrors.KindDocument:
		return http.StatusBadRequest
	case ragerrors.KindNotFound:
		return http.StatusNotFound
	case ragerrors.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
