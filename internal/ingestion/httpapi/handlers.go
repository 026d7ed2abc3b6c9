// Package httpapi is the minimal HTTP surface for the ingestion pipeline
// (spec §6): start/resume/pause/cancel/status, one route per Service method.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/emergent/internal/ingestion"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/auth"
)

// Handler adapts ingestion.Service to echo, grounded on
// domain/discoveryjobs/handler.go's auth-check-then-delegate shape.
type Handler struct {
	svc *ingestion.Service
}

// NewHandler builds a Handler bound to svc.
func NewHandler(svc *ingestion.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the ingestion routes under g.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/ingestion/:kbId/start", h.Start)
	g.POST("/ingestion/:kbId/resume", h.Resume)
	g.POST("/ingestion/:kbId/pause", h.Pause)
	g.POST("/ingestion/:kbId/cancel", h.Cancel)
	g.GET("/ingestion/:kbId/status", h.Status)
}

// startRequest is the body of POST /ingestion/:kbId/start.
type startRequest struct {
	SourceType   string         `json:"sourceType"`
	SourceConfig map[string]any `json:"sourceConfig"`
	Priority     int            `json:"priority"`
}

// Start handles POST /ingestion/:kbId/start.
func (h *Handler) Start(c echo.Context) error {
	if auth.GetUser(c) == nil {
		return apperror.ErrUnauthorized
	}

	kbID := c.Param("kbId")
	if kbID == "" {
		return apperror.ErrBadRequest.WithMessage("kbId is required")
	}

	var req startRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.SourceType == "" {
		return apperror.ErrBadRequest.WithMessage("sourceType is required")
	}

	job, err := h.svc.Start(c.Request().Context(), kbID, req.SourceType, req.SourceConfig, req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// Resume handles POST /ingestion/:kbId/resume.
func (h *Handler) Resume(c echo.Context) error {
	if auth.GetUser(c) == nil {
		return apperror.ErrUnauthorized
	}
	kbID := c.Param("kbId")
	job, err := h.svc.Resume(c.Request().Context(), kbID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// Pause handles POST /ingestion/:kbId/pause.
func (h *Handler) Pause(c echo.Context) error {
	if auth.GetUser(c) == nil {
		return apperror.ErrUnauthorized
	}
	kbID := c.Param("kbId")
	if err := h.svc.Pause(c.Request().Context(), kbID); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Cancel handles POST /ingestion/:kbId/cancel.
func (h *Handler) Cancel(c echo.Context) error {
	if auth.GetUser(c) == nil {
		return apperror.ErrUnauthorized
	}
	kbID := c.Param("kbId")
	if err := h.svc.Cancel(c.Request().Context(), kbID); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Status handles GET /ingestion/:kbId/status.
func (h *Handler) Status(c echo.Context) error {
	if auth.GetUser(c) == nil {
		return apperror.ErrUnauthorized
	}
	kbID := c.Param("kbId")
	view, err := h.svc.Status(c.Request().Context(), kbID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}
