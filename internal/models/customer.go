package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer represents a dashboard contact that can be called
type Customer struct {
	gorm.Model

	CustomerID string `json:"customer_id" gorm:"uniqueIndex"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone" gorm:"index"` // E.164, e.g. "+1234567890"
	UserID     string `json:"user_id"`
}

// BeforeCreate hook to auto-generate CustomerID and normalize the phone number
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.CustomerID == "" {
		c.CustomerID = fmt.Sprintf("CUS%d%03d", time.Now().Unix(), time.Now().Nanosecond()%1000)
	}

	// Strip spaces; keep the leading "+" if the caller supplied one
	c.Phone = strings.ReplaceAll(c.Phone, " ", "")

	return nil
}
