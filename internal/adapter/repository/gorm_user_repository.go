package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
)

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := gormConn(ctx, r.db).Create(user).Error; err != nil {
		return gormError("User", "create", err)
	}
	return nil
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := gormConn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, gormError("User", "get", err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := gormConn(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, gormError("User", "get", err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	result := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []*entity.User
	if err := gormConn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, gormError("User", "list", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *gormUserRepository) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now().UTC()
	if err := gormConn(ctx, r.db).Save(user).Error; err != nil {
		return gormError("User", "update", err)
	}
	return nil
}

func (r *gormUserRepository) Delete(ctx context.Context, id string) error {
	res := gormConn(ctx, r.db).Delete(&entity.User{}, "id = ?", id)
	if res.Error != nil {
		return gormError("User", "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return gormError("User", "delete", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *gormUserRepository) List(ctx context.Context, limit, offset int) ([]*entity.User, int64, error) {
	q := gormConn(ctx, r.db).Model(&entity.User{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, gormError("User", "count", err)
	}

	var users []*entity.User
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, gormError("User", "list", err)
	}
	return users, total, nil
}
