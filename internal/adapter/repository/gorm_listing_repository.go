package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
)

type gormListingRepository struct {
	db *gorm.DB
}

func NewGormListingRepository(db *gorm.DB) repository.ListingRepository {
	return &gormListingRepository{db: db}
}

func (r *gormListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := gormConn(ctx, r.db).Create(listing).Error; err != nil {
		return gormError("Listing", "create", err)
	}
	return nil
}

func (r *gormListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var listing entity.Listing
	if err := gormForUpdate(ctx, r.db).First(&listing, "id = ?", id).Error; err != nil {
		return nil, gormError("Listing", "get", err)
	}
	return &listing, nil
}

func (r *gormListingRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Listing, error) {
	result := make(map[string]*entity.Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var listings []*entity.Listing
	if err := gormConn(ctx, r.db).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, gormError("Listing", "list", err)
	}
	for _, l := range listings {
		result[l.ID] = l
	}
	return result, nil
}

func (r *gormListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	if err := gormConn(ctx, r.db).Save(listing).Error; err != nil {
		return gormError("Listing", "update", err)
	}
	return nil
}

func (r *gormListingRepository) Delete(ctx context.Context, id string) error {
	res := gormConn(ctx, r.db).Delete(&entity.Listing{}, "id = ?", id)
	if res.Error != nil {
		return gormError("Listing", "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return gormError("Listing", "delete", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *gormListingRepository) Search(ctx context.Context, filter entity.ListingFilter) ([]*entity.Listing, int64, error) {
	q := gormConn(ctx, r.db).Model(&entity.Listing{})

	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(filter.Category)+"%")
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, gormError("Listing", "count", err)
	}

	page := q.Order("created_at DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}

	var listings []*entity.Listing
	if err := page.Find(&listings).Error; err != nil {
		return nil, 0, gormError("Listing", "search", err)
	}
	return listings, total, nil
}
