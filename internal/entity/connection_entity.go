package entity

import (
	"time"

	"github.com/google/uuid"
)

// ColumnMapping binds one system field to a sheet column, by letter or header name.
type ColumnMapping struct {
	SystemField string `json:"system_field" validate:"required"`
	SheetColumn string `json:"sheet_column" validate:"required"`
	DataType    string `json:"data_type" validate:"omitempty,oneof=string number integer date"` // string | number | integer | date
	Required    bool   `json:"required"`
}

type SheetType string

const (
	SheetTypeOrders     SheetType = "orders"
	SheetTypeOrderItems SheetType = "order_items"
	SheetTypeCustomers  SheetType = "customers"
	SheetTypeProducts   SheetType = "products"
)

type Connection struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	SheetId        string
	SheetTabName   string
	SheetType      SheetType
	ColumnMappings []ColumnMapping
	HeaderRow      int
	DataStartRow   int
	SyncEnabled    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
