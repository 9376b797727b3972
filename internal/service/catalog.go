package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shopBackend/internal/apierr"
	"shopBackend/internal/logger"
	"shopBackend/models"
	"shopBackend/repository"
)

// ItemInput is the writable part of an item.
type ItemInput struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apierr.Validation("Item name is required")
	}
	if in.Quantity < 0 {
		return apierr.Validation("Quantity must not be negative")
	}
	if in.Price.IsNegative() {
		return apierr.Validation("Price must not be negative")
	}
	return nil
}

// CatalogService is the CRUD surface over the item catalog.
type CatalogService struct {
	items repository.ItemRepositoryI
	log   *logger.Logger
}

func NewCatalogService(items repository.ItemRepositoryI, log *logger.Logger) *CatalogService {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogService{items: items, log: log.With("service", "CatalogService")}
}

// ItemFilter narrows a catalog listing. The zero value lists every item.
type ItemFilter struct {
	Name        string // substring match on the item name
	InStockOnly bool
	PageSize    int // 0 means no limit
	AfterID     int64
}

// List returns items matching f ordered by id. A page continues after AfterID.
func (s *CatalogService) List(ctx context.Context, f ItemFilter) ([]models.Item, error) {
	if f.PageSize < 0 {
		return nil, apierr.Validation("Invalid page_size: %d", f.PageSize)
	}
	if f.AfterID < 0 {
		return nil, apierr.Validation("Invalid after_id: %d", f.AfterID)
	}
	p := repository.ListItemsParams{InStockOnly: f.InStockOnly, PageSize: min(f.PageSize, maxPageSize), AfterID: f.AfterID}
	if name := strings.TrimSpace(f.Name); name != "" {
		p.NameContains = &name
	}
	items, err := s.items.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Item, error) {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if it == nil {
		return nil, itemNotFound(id)
	}
	return it, nil
}

func (s *CatalogService) Create(ctx context.Context, in ItemInput) (*models.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	it, err := s.items.Create(ctx, &models.Item{Name: strings.TrimSpace(in.Name), Quantity: in.Quantity, Price: in.Price})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.log.Info("item created", "item_id", it.ID, "name", it.Name)
	return it, nil
}

// Update replaces name, quantity and price of an existing item.
func (s *CatalogService) Update(ctx context.Context, id int64, in ItemInput) (*models.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	it := &models.Item{ID: id, Name: strings.TrimSpace(in.Name), Quantity: in.Quantity, Price: in.Price}
	if err := s.items.Update(ctx, it); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, itemNotFound(id)
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return it, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return itemNotFound(id)
		}
		return fmt.Errorf("delete item: %w", err)
	}
	s.log.Info("item deleted", "item_id", id)
	return nil
}

func itemNotFound(id int64) error {
	return apierr.NotFound("Item not found with id %d", id)
}
