package implementation

import (
	"context"
	"errors"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/mapper"
	"sheetpulse/internal/model"
	"sheetpulse/internal/repository/contract"
	"sheetpulse/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConnectionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConnectionMapper
}

func NewConnectionRepository(db *gorm.DB) contract.ConnectionRepository {
	return &ConnectionRepositoryImpl{
		db:     db,
		mapper: mapper.NewConnectionMapper(),
	}
}

func (r *ConnectionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConnectionRepositoryImpl) Create(ctx context.Context, conn *entity.Connection) error {
	m := r.mapper.ToModel(conn)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conn = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConnectionRepositoryImpl) Update(ctx context.Context, conn *entity.Connection) error {
	m := r.mapper.ToModel(conn)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*conn = *r.mapper.ToEntity(m)
	return nil
}

// Delete hard-deletes the connection row. It does not cascade to sync_states
// or sheet_rows — callers that need the full cascade go through the unit of
// work so the three deletes share a transaction (see ConnectionHandler.Delete).
func (r *ConnectionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Connection{}, id).Error
}

func (r *ConnectionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Connection, error) {
	var m model.Connection
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ConnectionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Connection, error) {
	var models []*model.Connection
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ConnectionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Connection{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
