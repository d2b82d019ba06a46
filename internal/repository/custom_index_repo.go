package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"gorm.io/gorm"
)

// ErrSlugTaken is returned when a custom index slug collides with an
// existing one.
var ErrSlugTaken = errors.New("index slug already in use")

// ErrIndexNotFound is returned when a custom index lookup misses.
var ErrIndexNotFound = errors.New("custom index not found")

// CustomIndexRepository handles custom index definition operations.
type CustomIndexRepository struct {
	db *gorm.DB
}

// NewCustomIndexRepository creates a new CustomIndexRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CustomIndexRepository: repository instance bound to db.
func NewCustomIndexRepository(db *gorm.DB) *CustomIndexRepository {
	return &CustomIndexRepository{db: db}
}

// Create inserts a new custom index definition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - index: index definition to persist.
// Returns:
//   - error: ErrSlugTaken if the slug exists, non-nil on other failures.
func (r *CustomIndexRepository) Create(ctx context.Context, index *domain.CustomIndex) error {
	taken, err := r.slugExists(ctx, index.Slug, "")
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrSlugTaken, index.Slug)
	}
	return r.db.WithContext(ctx).Create(index).Error
}

// Update updates an existing custom index definition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - index: index definition with updated fields.
// Returns:
//   - error: ErrSlugTaken if the new slug collides, non-nil on other failures.
func (r *CustomIndexRepository) Update(ctx context.Context, index *domain.CustomIndex) error {
	taken, err := r.slugExists(ctx, index.Slug, index.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrSlugTaken, index.Slug)
	}
	return r.db.WithContext(ctx).Save(index).Error
}

// GetByID retrieves a custom index by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: index ID.
// Returns:
//   - *domain.CustomIndex: index definition if found.
//   - error: ErrIndexNotFound if missing, non-nil on other failures.
func (r *CustomIndexRepository) GetByID(ctx context.Context, id string) (*domain.CustomIndex, error) {
	var index domain.CustomIndex
	if err := r.db.WithContext(ctx).First(&index, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, id)
		}
		return nil, err
	}
	return &index, nil
}

// GetBySlug retrieves a custom index by its slug.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - slug: normalized index slug.
// Returns:
//   - *domain.CustomIndex: index definition if found.
//   - error: ErrIndexNotFound if missing, non-nil on other failures.
func (r *CustomIndexRepository) GetBySlug(ctx context.Context, slug string) (*domain.CustomIndex, error) {
	var index domain.CustomIndex
	if err := r.db.WithContext(ctx).First(&index, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, slug)
		}
		return nil, err
	}
	return &index, nil
}

// List returns all custom index definitions ordered by creation time.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.CustomIndex: all stored definitions.
//   - error: non-nil if the query fails.
func (r *CustomIndexRepository) List(ctx context.Context) ([]domain.CustomIndex, error) {
	var indexes []domain.CustomIndex
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&indexes).Error; err != nil {
		return nil, err
	}
	return indexes, nil
}

// Delete removes a custom index definition by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: index ID.
// Returns:
//   - error: ErrIndexNotFound if no row was deleted, non-nil on other failures.
func (r *CustomIndexRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.CustomIndex{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, id)
	}
	return nil
}

func (r *CustomIndexRepository) slugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.CustomIndex{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
