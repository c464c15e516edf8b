package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Customer operations

func (d *DatabaseStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	if err := d.db.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (d *DatabaseStore) GetCustomer(id string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("customer_id = ?", id).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer not found")
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *DatabaseStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("phone = ?", phone).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer not found")
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *DatabaseStore) GetAllCustomers() ([]*models.Customer, error) {
	var customers []*models.Customer
	if err := d.db.Order("created_at desc").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (d *DatabaseStore) UpdateCustomer(customer *models.Customer) error {
	result := d.db.Model(&models.Customer{}).
		Where("customer_id = ?", customer.CustomerID).
		Updates(map[string]interface{}{
			"name":    customer.Name,
			"email":   customer.Email,
			"phone":   customer.Phone,
			"user_id": customer.UserID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer not found")
	}
	return nil
}

func (d *DatabaseStore) DeleteCustomer(id string) error {
	result := d.db.Where("customer_id = ?", id).Delete(&models.Customer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer not found")
	}
	return nil
}

// Product operations

func (d *DatabaseStore) CreateProduct(product *models.Product) (*models.Product, error) {
	if err := d.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (d *DatabaseStore) GetProduct(id string) (*models.Product, error) {
	var product models.Product
	err := d.db.Where("product_id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (d *DatabaseStore) GetAllProducts() ([]*models.Product, error) {
	var products []*models.Product
	if err := d.db.Order("created_at desc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (d *DatabaseStore) UpdateProduct(product *models.Product) error {
	result := d.db.Model(&models.Product{}).
		Where("product_id = ?", product.ProductID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"key_details": product.KeyDetails,
			"user_id":     product.UserID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product not found")
	}
	return nil
}

func (d *DatabaseStore) DeleteProduct(id string) error {
	result := d.db.Where("product_id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product not found")
	}
	return nil
}
