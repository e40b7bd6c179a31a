package config

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type seedItem struct {
	ID       string `koanf:"id"`
	Title    string `koanf:"title"`
	Image    string `koanf:"image"`
	Price    string `koanf:"price"`
	Currency string `koanf:"currency"`
	Stock    int    `koanf:"stock"`
	Inactive bool   `koanf:"inactive"`
}

// LoadCatalogSeed reads catalog items from a YAML file with a top level "items" list.
// Items without a currency are priced in fallback.
func LoadCatalogSeed(path string, fallback currency.Unit) ([]domain.CatalogItem, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var raw []seedItem
	if err := k.Unmarshal("items", &raw); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	var (
		items []domain.CatalogItem
		errs  []error
	)
	for idx, r := range raw {
		item, err := r.toCatalogItem(fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("items[%d]: %w", idx, err))
			continue
		}
		items = append(items, item)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return items, nil
}

func (r seedItem) toCatalogItem(fallback currency.Unit) (domain.CatalogItem, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("id[%s]: %w", r.ID, err)
	}

	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("price[%s]: %w", r.Price, err)
	}

	unit := fallback
	if r.Currency != "" {
		if unit, err = currency.ParseISO(r.Currency); err != nil {
			return domain.CatalogItem{}, fmt.Errorf("currency[%s]: %w", r.Currency, err)
		}
	}

	item := domain.CatalogItem{
		ID:             id,
		Title:          r.Title,
		Image:          r.Image,
		UnitPrice:      domain.Money{Amount: price, Currency: unit},
		AvailableStock: r.Stock,
		IsActive:       !r.Inactive,
	}
	if err := item.Validate(); err != nil {
		return domain.CatalogItem{}, err
	}

	return item, nil
}
