package mirror

import (
	"context"
	"errors"
	"strings"
	"time"

	"overlay-sync/core/logger"
	"overlay-sync/feature/mirror/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// waitTimeout bounds a request that asks to wait for its changes to be applied.
const waitTimeout = 30 * time.Second

// Handler handles HTTP requests for the mirror.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the mirror routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/mirror")
	group.Get("/status", h.HandleStatus)
	group.Delete("/items", h.HandleRemoveAll)
	group.Put("/items/*", h.HandlePutItem)
	group.Delete("/items/*", h.HandleRemoveItem)
	group.Post("/replace", h.HandleReplace)
	group.Post("/refresh", h.HandleRefresh)
}

func itemKey(c *fiber.Ctx) (string, bool) {
	key := strings.Trim(c.Params("*"), "/")
	return key, key != ""
}

// accepted answers 202, or 200 once the changes are applied when ?wait=true.
func (h *Handler) accepted(c *fiber.Ctx, body fiber.Map) error {
	if !c.QueryBool("wait") {
		return c.Status(fiber.StatusAccepted).JSON(body)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), waitTimeout)
	defer cancel()
	if err := h.service.WaitIdle(ctx); err != nil {
		logger.WithRayID(h.service.logger, c).Warn("Gave up waiting for mirror", zap.Error(err))
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(body)
}

// HandleStatus reports the mirror state.
// @Summary Mirror Status
// @Description Returns the configured bucket and source together with the reconciliation counters.
// @Tags mirror
// @Produce json
// @Success 200 {object} mirror.Status "Status"
// @Router /mirror/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// HandlePutItem requests an item to be rendered.
// @Summary Put Item
// @Description Requests the object for key to hold the given payload. Applied asynchronously.
// @Tags mirror
// @Accept json
// @Produce json
// @Param key path string true "Item key (e.g. 'banners/home.json')"
// @Param wait query boolean false "Wait until applied"
// @Param item body models.ItemRequest true "Item"
// @Success 202 {object} map[string]string "Accepted"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /mirror/items/{key} [put]
func (h *Handler) HandlePutItem(c *fiber.Ctx) error {
	key, ok := itemKey(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing item key"})
	}
	var req models.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	h.service.Put(key, models.Item{Payload: req.Payload, ContentType: req.ContentType})
	logger.WithRayID(h.service.logger, c).Debug("Put requested", zap.String("key", key))
	return h.accepted(c, fiber.Map{"key": key, "status": "accepted"})
}

// HandleRemoveItem requests an item to be taken down.
// @Summary Remove Item
// @Description Requests the object for key to be deleted. Applied asynchronously.
// @Tags mirror
// @Produce json
// @Param key path string true "Item key"
// @Param wait query boolean false "Wait until applied"
// @Success 202 {object} map[string]string "Accepted"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /mirror/items/{key} [delete]
func (h *Handler) HandleRemoveItem(c *fiber.Ctx) error {
	key, ok := itemKey(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing item key"})
	}
	h.service.Remove(key)
	return h.accepted(c, fiber.Map{"key": key, "status": "accepted"})
}

// HandleRemoveAll requests every item to be taken down.
// @Summary Remove All Items
// @Description Requests every rendered object to be deleted. Applied asynchronously.
// @Tags mirror
// @Produce json
// @Param wait query boolean false "Wait until applied"
// @Success 202 {object} map[string]string "Accepted"
// @Router /mirror/items [delete]
func (h *Handler) HandleRemoveAll(c *fiber.Ctx) error {
	h.service.RemoveAll()
	logger.WithRayID(h.service.logger, c).Info("Remove all requested")
	return h.accepted(c, fiber.Map{"status": "accepted"})
}

// HandleReplace replaces the whole desired collection.
// @Summary Replace Items
// @Description Makes the given items the complete desired collection. Unchanged items are not rewritten.
// @Tags mirror
// @Accept json
// @Produce json
// @Param wait query boolean false "Wait until applied"
// @Param items body models.ReplaceRequest true "Items by key"
// @Success 202 {object} map[string]interface{} "Accepted"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /mirror/replace [post]
func (h *Handler) HandleReplace(c *fiber.Ctx) error {
	var req models.ReplaceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	items := make(map[string]models.Item, len(req.Items))
	for key, item := range req.Items {
		key = strings.Trim(key, "/")
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty item key"})
		}
		items[key] = models.Item{Payload: item.Payload, ContentType: item.ContentType}
	}

	h.service.Replace(items)
	logger.WithRayID(h.service.logger, c).Info("Replace requested", zap.Int("items", len(items)))
	return h.accepted(c, fiber.Map{"status": "accepted", "items": len(items)})
}

// HandleRefresh reloads the configured source.
// @Summary Refresh From Source
// @Description Loads the configured source (database or manifest) and makes it the desired collection.
// @Tags mirror
// @Produce json
// @Param wait query boolean false "Wait until applied"
// @Success 202 {object} models.RefreshReport "Refresh Report"
// @Failure 409 {object} map[string]string "No Source Configured"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /mirror/refresh [post]
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Refresh(c.UserContext())
	if errors.Is(err, ErrNoSource) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Mirror refresh failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return h.accepted(c, fiber.Map{
		"source":   report.Source,
		"items":    report.Items,
		"duration": report.Duration,
	})
}
