package models

import (
	"time"
)

// SymbolInfo represents trading symbol metadata. PriceDigits and
// MinPriceIncrement drive axis and level-label formatting.
type SymbolInfo struct {
	ID                int       `json:"id" db:"id"`
	Exchange          string    `json:"exchange" db:"exchange"`
	Symbol            string    `json:"symbol" db:"symbol"`
	FullName          string    `json:"full_name" db:"full_name"`
	InstrumentType    string    `json:"instrument_type" db:"instrument_type"`
	PriceDigits       int       `json:"price_digits" db:"price_digits"`
	MinPriceIncrement float64   `json:"min_price_increment" db:"min_price_increment"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
