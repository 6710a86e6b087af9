package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/es"
	"github.com/kodjomensah/warimarket/internal/events"
	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/transport"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

const productIndex = "products"

type CatalogService struct {
	Repo     *repo.GormRepo
	Producer *events.Producer
	ES       *es.Client
}

// CreateProduct creates the product together with its inventory record so
// the ledger has a row before the first order arrives.
func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.InitialStock < 0 {
		return nil, fmt.Errorf("%w: initial_stock must be >= 0", ErrValidation)
	}

	store, err := s.Repo.GetStore(ctx, req.StoreID)
	if err != nil {
		return nil, wrapNotFound(err, "store")
	}
	if store.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: not a store actor", ErrForbidden)
	}

	product := &models.Product{
		ID:          uuid.New(),
		StoreID:     req.StoreID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		return s.Repo.CreateInventory(tx, &models.InventoryRecord{
			ProductID: product.ID,
			Available: req.InitialStock,
		})
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, product)
	s.publish(ctx, product.ID.String(), map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"store_id":   product.StoreID,
		"name":       product.Name,
	})
	return product, nil
}

// GetInventory reports the live stock counters for one product.
func (s *CatalogService) GetInventory(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	rec, err := s.Repo.GetInventory(ctx, productID)
	if err != nil {
		return nil, wrapNotFound(err, "inventory")
	}
	return rec, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "product")
	}
	return product, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func (s *CatalogService) PatchProduct(ctx context.Context, actor Actor, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	existing, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "product")
	}
	store, err := s.Repo.GetStore(ctx, existing.StoreID)
	if err != nil {
		return nil, wrapNotFound(err, "store")
	}
	if store.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: not a store actor", ErrForbidden)
	}

	product, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		return nil, wrapNotFound(err, "product")
	}

	s.index(ctx, product)
	s.publish(ctx, product.ID.String(), map[string]any{
		"type":       "product_updated",
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

// SearchProducts goes through the index when one is configured, otherwise
// falls back to a database substring match.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	if q == "" {
		return 0, nil, fmt.Errorf("%w: query required", ErrValidation)
	}
	if s.ES != nil {
		return s.ES.SearchProducts(ctx, productIndex, q, offset, limit)
	}
	return s.Repo.MatchProducts(ctx, q, offset, limit)
}

func (s *CatalogService) index(ctx context.Context, product *models.Product) {
	if s.ES == nil {
		return
	}
	if err := s.ES.IndexProduct(ctx, productIndex, product); err != nil {
		logging.FromContext(ctx).Warn("product_index_failed", "product_id", product.ID, "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, key string, event map[string]any) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pctx, events.TopicProductEvents, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicProductEvents, "error", err)
	}
}
