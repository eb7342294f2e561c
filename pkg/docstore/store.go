package docstore

import (
	"context"
	"fmt"

	"sheetpulse/internal/repository/contract"

	"github.com/google/uuid"
)

// Store is the aggregation-pipeline entry point used by the analytics engine
// and the agent's data-query tools. It owns the single batch fetch per
// Aggregate call and hands the resulting documents to an Executor, wiring a
// LookupSource back to itself so $lookup stages can pull sibling sheet
// types for the same connection's owner; each distinct $lookup target costs
// one further storage read, cached for the rest of the call.
type Store struct {
	sheetRows contract.SheetRowRepository
}

func NewStore(sheetRows contract.SheetRowRepository) *Store {
	return &Store{sheetRows: sheetRows}
}

// Aggregate loads every document for the given connections in one batch and
// runs the pipeline over them. lookupConnections maps a $lookup "from" name
// (itself a connection id string) to the extra connection ids to resolve
// when that stage is encountered, so cross-sheet joins only pay for the
// sheets a pipeline actually references.
func (s *Store) Aggregate(ctx context.Context, connectionIds []uuid.UUID, pipeline []Stage, lookupConnections map[string][]uuid.UUID) ([]Document, error) {
	rawDocs, err := s.sheetRows.FindDocuments(ctx, connectionIds)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	docs := toDocuments(rawDocs)

	lookupCache := make(map[string][]Document)
	lookup := func(from string) []Document {
		if cached, ok := lookupCache[from]; ok {
			return cached
		}
		ids, ok := lookupConnections[from]
		if !ok {
			return nil
		}
		raw, err := s.sheetRows.FindDocuments(ctx, ids)
		if err != nil {
			return nil
		}
		resolved := toDocuments(raw)
		lookupCache[from] = resolved
		return resolved
	}

	exec := NewExecutor(lookup)
	return exec.Run(docs, pipeline)
}

func toDocuments(raw []map[string]interface{}) []Document {
	docs := make([]Document, len(raw))
	for i, r := range raw {
		docs[i] = Document(r)
	}
	return docs
}
