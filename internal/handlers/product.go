package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/storage"
)

// ProductHandler handles product CRUD requests
type ProductHandler struct {
	store storage.Store
}

// NewProductHandler creates a new product handler
func NewProductHandler(store storage.Store) *ProductHandler {
	return &ProductHandler{store: store}
}

// CreateProduct handles creating a new product
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		KeyDetails  string `json:"key_details"`
		UserID      string `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}

	product, err := h.store.CreateProduct(&models.Product{
		Name:        req.Name,
		Description: req.Description,
		KeyDetails:  req.KeyDetails,
		UserID:      req.UserID,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create product",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetProducts retrieves all products
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.store.GetAllProducts()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve products",
		})
	}
	return c.JSON(products)
}

// GetProduct retrieves a product by ID
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	product, err := h.store.GetProduct(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(product)
}

// UpdateProduct updates a product's fields
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")

	product, err := h.store.GetProduct(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		KeyDetails  string `json:"key_details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.KeyDetails != "" {
		product.KeyDetails = req.KeyDetails
	}

	if err := h.store.UpdateProduct(product); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update product",
		})
	}

	return c.JSON(product)
}

// DeleteProduct removes a product
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.DeleteProduct(id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}
