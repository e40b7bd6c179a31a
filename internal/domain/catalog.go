package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// MaxAvailableStock is the largest stock level the catalog column can hold.
const MaxAvailableStock = math.MaxInt32

// CatalogItem is the part of a catalog product the order workflow depends on.
type CatalogItem struct {
	ID             uuid.UUID
	Title          string
	Image          string
	UnitPrice      Money
	AvailableStock int
	IsActive       bool
}

func (c CatalogItem) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("id is empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title is empty")
	}
	if c.UnitPrice.Amount.IsNegative() {
		return errors.New("unit price is negative")
	}
	if c.AvailableStock < 0 {
		return errors.New("available stock is negative")
	}
	if c.AvailableStock > MaxAvailableStock {
		return fmt.Errorf("available stock cannot exceed %d", MaxAvailableStock)
	}
	return nil
}
