// Package tools implements the data-query tools the ReAct agent calls:
// schema discovery, simple aggregation, top-N, period comparison, and
// validated custom pipelines. Every tool is bound to one user's connections
// at construction time, so a tool can never read another user's sheets no
// matter what the model asks for.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
	"sheetpulse/pkg/pipeline"

	"github.com/google/uuid"
)

const sampleDocsPerConnection = 20

// Toolset is constructed fresh per chat request with exactly the caller's
// own connections, mirroring create_data_agent's per-request tool binding.
type Toolset struct {
	connections []*entity.Connection
	store       *docstore.Store
	validator   *pipeline.Validator
}

func NewToolset(connections []*entity.Connection, store *docstore.Store, validator *pipeline.Validator) *Toolset {
	return &Toolset{connections: connections, store: store, validator: validator}
}

// errorResult serializes the uniform {"error": ...} shape every tool falls
// back to instead of returning a Go error, so the agent loop always has a
// tool-role message to feed back to the model.
func errorResult(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

func successResult(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return string(b)
}

// resolveConnection finds a caller's own connection by its sheet tab name,
// the human-readable name the agent's schema context exposes.
func (t *Toolset) resolveConnection(connectionName string) (*entity.Connection, error) {
	for _, c := range t.connections {
		if c.SheetTabName == connectionName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no connection named %q among your data sources", connectionName)
}

func (t *Toolset) userConnectionIDStrings() []string {
	ids := make([]string, len(t.connections))
	for i, c := range t.connections {
		ids[i] = c.Id.String()
	}
	return ids
}

// SchemaField describes one system field of a connection, as exposed to the
// model for tool argument construction.
type SchemaField struct {
	Name         string   `json:"name"`
	DataType     string   `json:"data_type"`
	SampleValues []string `json:"sample_values,omitempty"`
}

type ConnectionSchema struct {
	ConnectionName string        `json:"connection_name"`
	SheetType      string        `json:"sheet_type"`
	Fields         []SchemaField `json:"fields"`
}

// GetDataSchema returns every caller connection's schema, or a single
// connection's schema when connectionName is non-empty.
func (t *Toolset) GetDataSchema(ctx context.Context, connectionName string) string {
	var targets []*entity.Connection
	if connectionName == "" {
		targets = t.connections
	} else {
		conn, err := t.resolveConnection(connectionName)
		if err != nil {
			return errorResult(err)
		}
		targets = []*entity.Connection{conn}
	}

	schemas := make([]ConnectionSchema, 0, len(targets))
	for _, conn := range targets {
		schemas = append(schemas, t.buildSchema(ctx, conn))
	}
	return successResult(map[string]interface{}{"connections": schemas})
}

func (t *Toolset) buildSchema(ctx context.Context, conn *entity.Connection) ConnectionSchema {
	samples := t.sampleValues(ctx, conn)

	fields := make([]SchemaField, 0, len(conn.ColumnMappings))
	for _, mapping := range conn.ColumnMappings {
		fields = append(fields, SchemaField{
			Name:         mapping.SystemField,
			DataType:     mapping.DataType,
			SampleValues: samples[mapping.SystemField],
		})
	}

	return ConnectionSchema{
		ConnectionName: conn.SheetTabName,
		SheetType:      string(conn.SheetType),
		Fields:         fields,
	}
}

// sampleValues pulls a small page of documents to show the model a handful
// of real values per field, up to 3 distinct non-empty values each.
func (t *Toolset) sampleValues(ctx context.Context, conn *entity.Connection) map[string][]string {
	docs, err := t.store.Aggregate(ctx, []uuid.UUID{conn.Id}, []docstore.Stage{
		{"$limit": sampleDocsPerConnection},
	}, nil)
	if err != nil {
		return nil
	}

	seen := make(map[string]map[string]bool)
	result := make(map[string][]string)
	for _, doc := range docs {
		for field, val := range doc {
			if field == "connection_id" || field == "row_number" {
				continue
			}
			s := fmt.Sprintf("%v", val)
			if s == "" {
				continue
			}
			if seen[field] == nil {
				seen[field] = make(map[string]bool)
			}
			if seen[field][s] || len(result[field]) >= 3 {
				continue
			}
			seen[field][s] = true
			result[field] = append(result[field], s)
		}
	}
	return result
}
