package implementation

import (
	"context"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/mapper"
	"sheetpulse/internal/model"
	"sheetpulse/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SheetRowRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SheetRowMapper
}

func NewSheetRowRepository(db *gorm.DB) contract.SheetRowRepository {
	return &SheetRowRepositoryImpl{
		db:     db,
		mapper: mapper.NewSheetRowMapper(),
	}
}

// UpsertBatch upserts by (connection_id, row_number), guaranteeing exactly one
// sheet row per row number per connection regardless of how many times it syncs.
func (r *SheetRowRepositoryImpl) UpsertBatch(ctx context.Context, rows []*entity.SheetRow) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]*model.SheetRow, len(rows))
	for i, row := range rows {
		models[i] = r.mapper.ToModel(row)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}, {Name: "row_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "raw_row", "synced_at", "updated_at"}),
	}).CreateInBatches(models, 200).Error
}

func (r *SheetRowRepositoryImpl) FindByConnection(ctx context.Context, connectionId uuid.UUID, limit, offset int) ([]*entity.SheetRow, error) {
	var models []*model.SheetRow
	query := r.db.WithContext(ctx).Where("connection_id = ?", connectionId).Order("row_number ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

// FindDocuments batch-fetches every document for the given connections in one
// round trip rather than lazily yielding row by row, per the design note on
// avoiding lazy per-row fetches at the pipeline-execution boundary.
func (r *SheetRowRepositoryImpl) FindDocuments(ctx context.Context, connectionIds []uuid.UUID) ([]map[string]interface{}, error) {
	var models []*model.SheetRow
	if err := r.db.WithContext(ctx).Where("connection_id IN ?", connectionIds).Order("row_number ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(models))
	entities := r.mapper.ToEntities(models)
	for _, e := range entities {
		doc := make(map[string]interface{}, len(e.Document)+2)
		for k, v := range e.Document {
			doc[k] = v
		}
		doc["connection_id"] = e.ConnectionId.String()
		doc["row_number"] = e.RowNumber
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteByConnectionId hard-deletes every row synced for the connection, part
// of the cascade a connection delete performs before removing the connection row itself.
func (r *SheetRowRepositoryImpl) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("connection_id = ?", connectionId).Delete(&model.SheetRow{}).Error
}
