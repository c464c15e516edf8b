package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/storage"
)

// CustomerHandler handles customer CRUD requests
type CustomerHandler struct {
	store storage.Store
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(store storage.Store) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// CreateCustomer handles creating a new customer
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Phone  string `json:"phone"`
		UserID string `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and phone are required",
		})
	}

	customer, err := h.store.CreateCustomer(&models.Customer{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		UserID: req.UserID,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create customer",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(customer)
}

// GetCustomers retrieves all customers
func (h *CustomerHandler) GetCustomers(c *fiber.Ctx) error {
	customers, err := h.store.GetAllCustomers()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve customers",
		})
	}
	return c.JSON(customers)
}

// GetCustomer retrieves a customer by ID
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	customer, err := h.store.GetCustomer(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}
	return c.JSON(customer)
}

// UpdateCustomer updates a customer's fields
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	id := c.Params("id")

	customer, err := h.store.GetCustomer(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Email != "" {
		customer.Email = req.Email
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}

	if err := h.store.UpdateCustomer(customer); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update customer",
		})
	}

	return c.JSON(customer)
}

// DeleteCustomer removes a customer
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.DeleteCustomer(id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Customer deleted successfully",
	})
}
