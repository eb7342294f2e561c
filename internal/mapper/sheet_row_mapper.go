package mapper

import (
	"encoding/json"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/model"

	"gorm.io/datatypes"
)

type SheetRowMapper struct{}

func NewSheetRowMapper() *SheetRowMapper {
	return &SheetRowMapper{}
}

func (m *SheetRowMapper) ToEntity(r *model.SheetRow) *entity.SheetRow {
	if r == nil {
		return nil
	}
	var doc map[string]interface{}
	_ = json.Unmarshal(r.Document, &doc)
	var raw []string
	_ = json.Unmarshal(r.RawRow, &raw)

	return &entity.SheetRow{
		Id:           r.Id,
		ConnectionId: r.ConnectionId,
		RowNumber:    r.RowNumber,
		Document:     doc,
		RawRow:       raw,
		SyncedAt:     r.SyncedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (m *SheetRowMapper) ToModel(r *entity.SheetRow) *model.SheetRow {
	if r == nil {
		return nil
	}
	docJSON, _ := json.Marshal(r.Document)
	rawJSON, _ := json.Marshal(r.RawRow)

	return &model.SheetRow{
		Id:           r.Id,
		ConnectionId: r.ConnectionId,
		RowNumber:    r.RowNumber,
		Document:     datatypes.JSON(docJSON),
		RawRow:       datatypes.JSON(rawJSON),
		SyncedAt:     r.SyncedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (m *SheetRowMapper) ToEntities(rows []*model.SheetRow) []*entity.SheetRow {
	out := make([]*entity.SheetRow, len(rows))
	for i, r := range rows {
		out[i] = m.ToEntity(r)
	}
	return out
}
