package mapper

import (
	"encoding/json"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/model"

	"gorm.io/datatypes"
)

type ConnectionMapper struct{}

func NewConnectionMapper() *ConnectionMapper {
	return &ConnectionMapper{}
}

func (m *ConnectionMapper) ToEntity(c *model.Connection) *entity.Connection {
	if c == nil {
		return nil
	}

	var mappings []entity.ColumnMapping
	_ = json.Unmarshal(c.ColumnMappings, &mappings)

	return &entity.Connection{
		Id:             c.Id,
		UserId:         c.UserId,
		SheetId:        c.SheetId,
		SheetTabName:   c.SheetTabName,
		SheetType:      entity.SheetType(c.SheetType),
		ColumnMappings: mappings,
		HeaderRow:      c.HeaderRow,
		DataStartRow:   c.DataStartRow,
		SyncEnabled:    c.SyncEnabled,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (m *ConnectionMapper) ToModel(c *entity.Connection) *model.Connection {
	if c == nil {
		return nil
	}

	mappingsJSON, _ := json.Marshal(c.ColumnMappings)

	return &model.Connection{
		Id:             c.Id,
		UserId:         c.UserId,
		SheetId:        c.SheetId,
		SheetTabName:   c.SheetTabName,
		SheetType:      string(c.SheetType),
		ColumnMappings: datatypes.JSON(mappingsJSON),
		HeaderRow:      c.HeaderRow,
		DataStartRow:   c.DataStartRow,
		SyncEnabled:    c.SyncEnabled,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (m *ConnectionMapper) ToEntities(cs []*model.Connection) []*entity.Connection {
	out := make([]*entity.Connection, len(cs))
	for i, c := range cs {
		out[i] = m.ToEntity(c)
	}
	return out
}
