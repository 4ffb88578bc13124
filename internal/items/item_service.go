// Package items implements the listing service: CRUD over secondhand
// item records with sequential ids and optional image attachments.
package items

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/secondchance/backend/internal/metrics"
	"github.com/secondchance/backend/internal/repository"
	"github.com/secondchance/backend/internal/sanitizer"
	"github.com/secondchance/backend/internal/storage"
)

// CreateItemRequest holds the fields accepted when posting a listing.
// Any client-supplied id is ignored; ids are assigned server-side.
type CreateItemRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Condition   string `json:"condition" validate:"required"`
	AgeDays     int    `json:"age_days" validate:"gte=0"`
	Description string `json:"description"`
}

// UpdateItemRequest holds the mutable fields of a listing. The update
// is a full replace of these four fields.
type UpdateItemRequest struct {
	Category    string `json:"category" validate:"required"`
	Condition   string `json:"condition" validate:"required"`
	AgeDays     int    `json:"age_days" validate:"gte=0"`
	Description string `json:"description"`
}

// Upload carries an optional file attached to a listing submission
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ItemService handles listing business logic
type ItemService struct {
	repo      repository.ItemRepository
	store     storage.Store
	sanitizer *sanitizer.TextSanitizer
	logger    *slog.Logger
}

// NewItemService creates a new ItemService instance
func NewItemService(repo repository.ItemRepository, store storage.Store, logger *slog.Logger) *ItemService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemService{
		repo:      repo,
		store:     store,
		sanitizer: sanitizer.New(),
		logger:    logger,
	}
}

// List returns every listing
func (s *ItemService) List(ctx context.Context) ([]repository.Item, error) {
	return s.repo.List(ctx)
}

// GetByID returns a single listing
func (s *ItemService) GetByID(ctx context.Context, id string) (*repository.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// Create persists a new listing with a server-assigned sequential id,
// stamps date_added with the current epoch seconds, and saves the
// optional attached file keyed by its original filename.
func (s *ItemService) Create(ctx context.Context, req CreateItemRequest, upload *Upload) (*repository.Item, error) {
	s.sanitizer.CleanAll(&req.Name, &req.Category, &req.Condition, &req.Description)

	item := &repository.Item{
		Name:        req.Name,
		Category:    req.Category,
		Condition:   req.Condition,
		AgeDays:     req.AgeDays,
		AgeYears:    ageYears(req.AgeDays),
		Description: req.Description,
		DateAdded:   time.Now().Unix(),
	}

	if upload != nil {
		reference, err := s.store.Save(ctx, upload.Filename, upload.ContentType, upload.Body)
		if err != nil {
			return nil, err
		}
		item.Image = reference
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	metrics.ItemsCreatedTotal.Inc()
	s.logger.Info("item created", "item_id", item.ID, "category", item.Category)
	return item, nil
}

// Update replaces the mutable fields of a listing and recomputes
// age_years from age_days
func (s *ItemService) Update(ctx context.Context, id string, req UpdateItemRequest) error {
	s.sanitizer.CleanAll(&req.Category, &req.Condition, &req.Description)

	item := &repository.Item{
		ID:          id,
		Category:    req.Category,
		Condition:   req.Condition,
		AgeDays:     req.AgeDays,
		AgeYears:    ageYears(req.AgeDays),
		Description: req.Description,
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}

	s.logger.Info("item updated", "item_id", id)
	return nil
}

// Delete removes a listing
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", "item_id", id)
	return nil
}

// ageYears derives years from days, rounded to one decimal place.
// 400 days comes out as 1.1.
func ageYears(ageDays int) float64 {
	return math.Round(float64(ageDays)/365*10) / 10
}
