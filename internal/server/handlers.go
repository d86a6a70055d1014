// ABOUTME: Request handlers for documents, retrieval, chat, agents and threads
// ABOUTME: Handlers validate input, call the core pipeline and render JSON
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/websiTester/ba-agent-sub000/internal/core"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

type retrieveRequest struct {
	Query   string `json:"query"`
	ScopeID string `json:"scopeId"`
	Limit   int    `json:"limit"`
}

type retrieveResponse struct {
	Results []models.RetrievalResult `json:"results"`
	Context string                   `json:"context,omitempty"`
}

type chatResponse struct {
	Response    string `json:"response"`
	ThreadID    string `json:"threadId"`
	ContextUsed int    `json:"contextUsed"`
}

func (s *Server) upload(c echo.Context) error {
	scopeID := c.FormValue("scopeId")
	fh, err := c.FormFile("file")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		return models.ValidationError("file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return models.ValidationError("could not read uploaded file")
	}
	defer f.Close()

	// read one byte past the limit so oversize files fail validation
	data, err := io.ReadAll(io.LimitReader(f, s.deps.MaxUploadBytes+1))
	if err != nil {
		return models.ValidationError("could not read uploaded file")
	}

	res, err := s.deps.Ingestor.Upload(c.Request().Context(), core.UploadRequest{
		ScopeID:     scopeID,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) deleteDocument(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("documentId"))
	if id == "" {
		return models.ValidationError("documentId is required")
	}
	if err := s.deps.Ingestor.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listDocuments(c echo.Context) error {
	scopeID := strings.TrimSpace(c.QueryParam("scopeId"))
	if scopeID == "" {
		return models.ValidationError("scopeId is required")
	}
	docs, err := s.deps.Ingestor.List(c.Request().Context(), scopeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

// retrieve reports degraded retrieval as an empty result set
func (s *Server) retrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return models.ValidationError("invalid JSON body")
	}
	if req.Limit < 0 {
		return models.ValidationError("limit must not be negative")
	}

	results, err := s.deps.Retriever.RetrieveStrict(c.Request().Context(), req.Query, req.ScopeID, req.Limit)
	if err != nil {
		if models.IsKind(err, models.KindValidation) {
			return err
		}
		s.logger.Printf("retrieval degraded for scope %q: %v", req.ScopeID, err)
		results = []models.RetrievalResult{}
	}
	if c.QueryParam("format") == "context" {
		return c.JSON(http.StatusOK, retrieveResponse{Results: results, Context: core.FormatContext(results)})
	}
	return c.JSON(http.StatusOK, retrieveResponse{Results: results})
}

func (s *Server) chat(c echo.Context) error {
	var req core.RouteRequest
	if err := c.Bind(&req); err != nil {
		return models.ValidationError("invalid JSON body")
	}
	resp, err := s.deps.Router.Route(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{
		Response:    resp.Response,
		ThreadID:    resp.ThreadID,
		ContextUsed: resp.ContextUsed,
	})
}

func (s *Server) listAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": s.deps.Registry.Definitions()})
}

func (s *Server) reloadAgent(c echo.Context) error {
	key := c.Param("agentKey")
	if !s.deps.Registry.Known(key) {
		return models.NewError(models.KindNotFound, "unknown agent %q", key)
	}
	evicted := s.deps.Registry.Reload(key)
	return c.JSON(http.StatusOK, map[string]interface{}{"agentKey": key, "evicted": evicted})
}

func (s *Server) getThread(c echo.Context) error {
	key := models.ThreadKey{
		AgentKey:   c.QueryParam("agentKey"),
		ThreadID:   c.Param("threadId"),
		ResourceID: c.QueryParam("resourceId"),
	}
	thread, err := s.deps.Memory.Thread(c.Request().Context(), key)
	if err != nil {
		return err
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return models.ValidationError("limit must be a positive integer")
		}
		if len(thread.Messages) > n {
			thread.Messages = thread.Messages[len(thread.Messages)-n:]
		}
	}
	return c.JSON(http.StatusOK, thread)
}

func bodyLimit(n int64) string {
	return fmt.Sprintf("%dB", n)
}
