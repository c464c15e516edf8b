package storage

import (
	"github.com/callpilot/callpilot-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for customer/product storage operations
type Store interface {
	// Customer operations
	CreateCustomer(customer *models.Customer) (*models.Customer, error)
	GetCustomer(id string) (*models.Customer, error)
	GetCustomerByPhone(phone string) (*models.Customer, error)
	GetAllCustomers() ([]*models.Customer, error)
	UpdateCustomer(customer *models.Customer) error
	DeleteCustomer(id string) error

	// Product operations
	CreateProduct(product *models.Product) (*models.Product, error)
	GetProduct(id string) (*models.Product, error)
	GetAllProducts() ([]*models.Product, error)
	UpdateProduct(product *models.Product) error
	DeleteProduct(id string) error
}
