package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// MemoryStore holds all data in memory for testing and demo mode
type MemoryStore struct {
	customers map[string]*models.Customer
	products  map[string]*models.Product

	// Mutexes for thread safety
	customerMu sync.RWMutex
	productMu  sync.RWMutex

	// Counters for ID generation
	customerCounter int
	productCounter  int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*models.Customer),
		products:  make(map[string]*models.Product),
	}
}

// NewDemoStore creates a memory store pre-seeded with demo customers and
// products, so the dashboard stays usable without a database.
func NewDemoStore() *MemoryStore {
	m := NewMemoryStore()

	demoProducts := []*models.Product{
		{
			Name:        "Roofing Services",
			Description: "Professional roofing inspection and repair services. We offer free inspections and competitive pricing for all roofing needs.",
			KeyDetails:  "Free inspection, Licensed contractors, 10-year warranty",
			UserID:      "demo-user",
		},
		{
			Name:        "Solar Panel Installation",
			Description: "Complete solar panel installation service with financing options. Reduce your energy bills and increase home value.",
			KeyDetails:  "0% financing available, 25-year warranty, Free consultation",
			UserID:      "demo-user",
		},
		{
			Name:        "Home Security System",
			Description: "Smart home security system with 24/7 monitoring. Protect your family with the latest technology.",
			KeyDetails:  "24/7 monitoring, Mobile app control, Professional installation",
			UserID:      "demo-user",
		},
	}

	demoCustomers := []*models.Customer{
		{Name: "John Smith", Email: "john.smith@email.com", Phone: "+1234567890", UserID: "demo-user"},
		{Name: "Sarah Johnson", Email: "sarah.johnson@email.com", Phone: "+1987654321", UserID: "demo-user"},
		{Name: "Mike Wilson", Email: "mike.wilson@email.com", Phone: "+1555123456", UserID: "demo-user"},
	}

	for _, p := range demoProducts {
		m.CreateProduct(p)
	}
	for _, c := range demoCustomers {
		m.CreateCustomer(c)
	}

	return m
}

// Customer operations

func (m *MemoryStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	m.customerCounter++
	if customer.CustomerID == "" {
		customer.CustomerID = fmt.Sprintf("CUS%05d", m.customerCounter)
	}
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = time.Now()

	m.customers[customer.CustomerID] = customer
	return customer, nil
}

func (m *MemoryStore) GetCustomer(id string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	customer, exists := m.customers[id]
	if !exists {
		return nil, fmt.Errorf("customer not found")
	}
	return customer, nil
}

func (m *MemoryStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	for _, customer := range m.customers {
		if customer.Phone == phone {
			return customer, nil
		}
	}
	return nil, fmt.Errorf("customer not found")
}

func (m *MemoryStore) GetAllCustomers() ([]*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	customers := make([]*models.Customer, 0, len(m.customers))
	for _, customer := range m.customers {
		customers = append(customers, customer)
	}
	return customers, nil
}

func (m *MemoryStore) UpdateCustomer(customer *models.Customer) error {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if _, exists := m.customers[customer.CustomerID]; !exists {
		return fmt.Errorf("customer not found")
	}
	customer.UpdatedAt = time.Now()
	m.customers[customer.CustomerID] = customer
	return nil
}

func (m *MemoryStore) DeleteCustomer(id string) error {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if _, exists := m.customers[id]; !exists {
		return fmt.Errorf("customer not found")
	}
	delete(m.customers, id)
	return nil
}

// Product operations

func (m *MemoryStore) CreateProduct(product *models.Product) (*models.Product, error) {
	m.productMu.Lock()
	defer m.productMu.Unlock()

	m.productCounter++
	if product.ProductID == "" {
		product.ProductID = fmt.Sprintf("PRD%05d", m.productCounter)
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	m.products[product.ProductID] = product
	return product, nil
}

func (m *MemoryStore) GetProduct(id string) (*models.Product, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	product, exists := m.products[id]
	if !exists {
		return nil, fmt.Errorf("product not found")
	}
	return product, nil
}

func (m *MemoryStore) GetAllProducts() ([]*models.Product, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	products := make([]*models.Product, 0, len(m.products))
	for _, product := range m.products {
		products = append(products, product)
	}
	return products, nil
}

func (m *MemoryStore) UpdateProduct(product *models.Product) error {
	m.productMu.Lock()
	defer m.productMu.Unlock()

	if _, exists := m.products[product.ProductID]; !exists {
		return fmt.Errorf("product not found")
	}
	product.UpdatedAt = time.Now()
	m.products[product.ProductID] = product
	return nil
}

func (m *MemoryStore) DeleteProduct(id string) error {
	m.productMu.Lock()
	defer m.productMu.Unlock()

	if _, exists := m.products[id]; !exists {
		return fmt.Errorf("product not found")
	}
	delete(m.products, id)
	return nil
}
