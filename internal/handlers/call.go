package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/callpilot/callpilot-backend/internal/orchestrator"
	"github.com/callpilot/callpilot-backend/internal/storage"
)

// CallHandler handles call orchestration requests
type CallHandler struct {
	orchestrator *orchestrator.Orchestrator
	store        storage.Store
}

// NewCallHandler creates a new call handler
func NewCallHandler(orc *orchestrator.Orchestrator, store storage.Store) *CallHandler {
	return &CallHandler{
		orchestrator: orc,
		store:        store,
	}
}

// StartCall initiates an outbound call to a phone number about a product
func (h *CallHandler) StartCall(c *fiber.Ctx) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		ProductID   string `json:"product_id"`
		Notes       string `json:"notes"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var productName, instructions string
	if req.ProductID != "" {
		product, err := h.store.GetProduct(req.ProductID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		productName = product.Name
		instructions = product.Description
	}

	record, err := h.orchestrator.StartCall(c.Context(), req.PhoneNumber, productName, instructions, req.Notes)
	if err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": verr.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start call",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Call initiated",
		"call":    record,
	})
}

// GetStatus pulls a status snapshot for the active call
func (h *CallHandler) GetStatus(c *fiber.Ctx) error {
	snapshot, err := h.orchestrator.GetStatus(c.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoActiveCall) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "No active call to check status",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(snapshot)
}

// EndCall terminates the active call
func (h *CallHandler) EndCall(c *fiber.Ctx) error {
	err := h.orchestrator.EndCall(c.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoActiveCall) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "No active call to end",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Call ended successfully",
	})
}

// GetHistory returns the call history grouped by phone number
func (h *CallHandler) GetHistory(c *fiber.Ctx) error {
	hist := h.orchestrator.History()
	return c.JSON(fiber.Map{
		"history": hist.GroupedByPhone(),
		"count":   hist.Len(),
	})
}

// GetLive returns the live session state for the dashboard header
func (h *CallHandler) GetLive(c *fiber.Ctx) error {
	return c.JSON(h.orchestrator.Live())
}
