package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Product represents an offering the calling agent pitches on the phone.
// Description doubles as the agent's custom instructions for the call.
type Product struct {
	gorm.Model

	ProductID   string `json:"product_id" gorm:"uniqueIndex"`
	Name        string `json:"name"`
	Description string `json:"description"`
	KeyDetails  string `json:"key_details"`
	UserID      string `json:"user_id"`
}

// BeforeCreate hook to auto-generate ProductID
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ProductID == "" {
		p.ProductID = fmt.Sprintf("PRD%d%03d", time.Now().Unix(), time.Now().Nanosecond()%1000)
	}
	return nil
}
