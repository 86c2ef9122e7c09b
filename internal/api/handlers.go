package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/health"
	"github.com/macadmins/sofa-status/internal/manifest"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChangesResponse summarizes change detection for CI consumers.
type ChangesResponse struct {
	Generated       string          `json:"generated"`
	ChangesDetected []string        `json:"changes_detected"`
	Sources         map[string]bool `json:"sources"`
}

// Handlers serves the read-only status API. It never mutates the document;
// stages write through their own tools.
type Handlers struct {
	store   *manifest.Store
	checker *health.Checker
}

// NewHandlers creates the status API handlers.
func NewHandlers(store *manifest.Store, checker *health.Checker) *Handlers {
	return &Handlers{store: store, checker: checker}
}

// StatusHandler serves the full status document.
func (h *Handlers) StatusHandler(c *fiber.Ctx) error {
	m, err := h.store.Load()
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(m)
}

// StageHandler serves a single stage section.
func (h *Handlers) StageHandler(c *fiber.Ctx) error {
	m, err := h.store.Load()
	if err != nil {
		return h.storeError(c, err)
	}

	var section any
	switch c.Params("stage") {
	case domain.StageGather:
		section = m.Pipeline.Gather
	case domain.StageFetch:
		section = m.Pipeline.Fetch
	case domain.StageBuild:
		section = m.Pipeline.Build
	case domain.StageBulletin:
		section = m.Pipeline.Bulletin
	case domain.StageEnrich:
		section = m.Pipeline.Enrich
	default:
		return c.Status(404).JSON(ErrorResponse{
			Status:  "error",
			Code:    domain.ErrNotFound,
			Message: "Unknown pipeline stage",
		})
	}

	return c.JSON(section)
}

// ChangesHandler serves the change summary CI uses to decide whether to
// commit regenerated data.
func (h *Handlers) ChangesHandler(c *fiber.Ctx) error {
	m, err := h.store.Load()
	if err != nil {
		return h.storeError(c, err)
	}

	sources := make(map[string]bool, len(m.Pipeline.Gather.Sources))
	for key, src := range m.Pipeline.Gather.Sources {
		sources[key] = src.Changed
	}

	generated := ""
	if !m.Generated.IsZero() {
		generated = m.Generated.UTC().Format(time.RFC3339)
	}

	return c.JSON(ChangesResponse{
		Generated:       generated,
		ChangesDetected: m.Pipeline.Gather.ChangesDetected,
		Sources:         sources,
	})
}

// HealthHandler serves the health report.
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	status := h.checker.Check()
	return c.Status(status.HTTPStatus()).JSON(status)
}

// storeError maps store failures onto HTTP responses. A corrupt document is
// surfaced loudly rather than masked by an empty one.
func (h *Handlers) storeError(c *fiber.Ctx, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Status:  "error",
			Code:    appErr.Code,
			Message: appErr.Message,
		})
	}
	return c.Status(500).JSON(ErrorResponse{
		Status:  "error",
		Code:    domain.ErrInternal,
		Message: "Failed to load status document",
	})
}
