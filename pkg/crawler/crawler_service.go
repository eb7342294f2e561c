package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/pkg/logger"
	"sheetpulse/internal/repository/contract"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/pkg/cache"
	"sheetpulse/pkg/notifier"
	"sheetpulse/pkg/sheets"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// previewCacheTTL bounds how long a preview response is reused across
// repeated calls while a user is iterating on the mapping screen, so
// flipping through header-row/data-start-row choices doesn't round-trip the
// Sheets API on every keystroke.
const previewCacheTTL = 30 * time.Second

const previewMaxRows = 50

// Event names are the bit-exact contract the websocket/worker surface exposes.
const (
	EventSyncStarted   = "sheet:sync:started"
	EventSyncCompleted = "sheet:sync:completed"
	EventSyncFailed    = "sheet:sync:failed"
)

// sheetsClient is the narrow surface the service needs from *sheets.Client,
// declared on the consumer side so tests can swap in a fake without talking
// to the real Sheets API.
type sheetsClient interface {
	GetHeaders(ctx context.Context, sheetID, tabName string, headerRow int) ([]string, error)
	GetValues(ctx context.Context, sheetID, tabName string, startRow int) ([][]string, error)
	GetPreview(ctx context.Context, sheetID, tabName string, headerRow, dataStartRow, numRows int) ([]string, [][]string, error)
}

// SyncResult reports the outcome of one sync_sheet invocation.
type SyncResult struct {
	Success      bool
	RowsSynced   int
	TotalRows    int
	ErrorMessage string
}

// PreviewResult is the header/sample-row response for the UI's mapping screen.
type PreviewResult struct {
	Headers   []string
	Rows      [][]string
	TotalRows int
}

// Service crawls Google Sheets connections, applies column mappings, and
// persists the normalized rows. A successful sync invalidates the
// connection's analytics cache so stale aggregates are never served.
type Service struct {
	sheetClient    sheetsClient
	connections    contract.ConnectionRepository
	syncStates     contract.SyncStateRepository
	sheetRows      contract.SheetRowRepository
	columnMapper   *sheets.ColumnMapper
	notifier       notifier.Notifier
	analyticsCache *cache.AnalyticsCache
	previewCache   *gocache.Cache
	logger         logger.ILogger
}

func NewService(
	sheetClient *sheets.Client,
	connections contract.ConnectionRepository,
	syncStates contract.SyncStateRepository,
	sheetRows contract.SheetRowRepository,
	notif notifier.Notifier,
	analyticsCache *cache.AnalyticsCache,
	log logger.ILogger,
) *Service {
	return &Service{
		sheetClient:    sheetClient,
		connections:    connections,
		syncStates:     syncStates,
		sheetRows:      sheetRows,
		columnMapper:   sheets.NewColumnMapper(),
		notifier:       notif,
		analyticsCache: analyticsCache,
		previewCache:   gocache.New(previewCacheTTL, 2*previewCacheTTL),
		logger:         log,
	}
}

func (s *Service) findConnection(ctx context.Context, connectionID uuid.UUID) (*entity.Connection, error) {
	return s.connections.FindOne(ctx, specification.ByID{ID: connectionID})
}

// IsSyncable reports whether a connection exists and has syncing enabled —
// the same check SyncSheet makes before doing any work, exposed so the
// worker can skip rate-limiting and the crawl entirely for a task that is
// known ahead of time to be a no-op.
func (s *Service) IsSyncable(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	conn, err := s.findConnection(ctx, connectionID)
	if err != nil {
		return false, fmt.Errorf("loading connection: %w", err)
	}
	return conn != nil && conn.SyncEnabled, nil
}

// SyncSheet performs an incremental sync, picking up from last_synced_row+1.
// A connection that is missing (including deleted) or disabled is a silent no-op
// per the worker's REDESIGN decision: it is not an error, just nothing to do.
func (s *Service) SyncSheet(ctx context.Context, connectionID, userID uuid.UUID) (*SyncResult, error) {
	conn, err := s.findConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("loading connection: %w", err)
	}
	if conn == nil || !conn.SyncEnabled {
		return &SyncResult{Success: true, RowsSynced: 0}, nil
	}

	effectiveUserID := userID
	if effectiveUserID == uuid.Nil {
		effectiveUserID = conn.UserId
	}

	state, err := s.syncStates.FindByConnectionId(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("loading sync state: %w", err)
	}
	lastSyncedRow := 0
	totalRowsSynced := 0
	if state != nil {
		lastSyncedRow = state.LastSyncedRow
		totalRowsSynced = state.TotalRowsSynced
	}

	s.notifier.EmitToUser(effectiveUserID, EventSyncStarted, map[string]interface{}{"connection_id": connectionID})

	s.saveState(ctx, connectionID, lastSyncedRow, entity.SyncStatusSyncing, totalRowsSynced, "")

	startRow := conn.DataStartRow
	if lastSyncedRow > 0 {
		startRow = lastSyncedRow + 1
	}

	headers, err := s.sheetClient.GetHeaders(ctx, conn.SheetId, conn.SheetTabName, conn.HeaderRow)
	if err != nil {
		return s.fail(ctx, effectiveUserID, connectionID, lastSyncedRow, totalRowsSynced, err.Error())
	}
	if err := s.columnMapper.ValidateRequiredColumns(headers, conn.ColumnMappings); err != nil {
		return s.fail(ctx, effectiveUserID, connectionID, lastSyncedRow, totalRowsSynced, err.Error())
	}

	rows, err := s.sheetClient.GetValues(ctx, conn.SheetId, conn.SheetTabName, startRow)
	if err != nil {
		return s.fail(ctx, effectiveUserID, connectionID, lastSyncedRow, totalRowsSynced, err.Error())
	}

	var toUpsert []*entity.SheetRow
	rowsSynced := 0
	currentRowNumber := startRow
	now := time.Now()

	for _, row := range rows {
		if !hasContent(row) {
			currentRowNumber++
			continue
		}

		mapped, err := s.columnMapper.MapRow(row, headers, conn.ColumnMappings)
		if err != nil {
			return s.fail(ctx, effectiveUserID, connectionID, lastSyncedRow, totalRowsSynced, err.Error())
		}
		rawData := s.columnMapper.GetRawData(row, headers)
		rawRow := make([]string, 0, len(rawData))
		for _, h := range headers {
			rawRow = append(rawRow, rawData[h])
		}

		toUpsert = append(toUpsert, &entity.SheetRow{
			Id:           uuid.New(),
			ConnectionId: connectionID,
			RowNumber:    currentRowNumber,
			Document:     mapped,
			RawRow:       rawRow,
			SyncedAt:     now,
		})

		rowsSynced++
		currentRowNumber++
	}

	if len(toUpsert) > 0 {
		if err := s.sheetRows.UpsertBatch(ctx, toUpsert); err != nil {
			return s.fail(ctx, effectiveUserID, connectionID, lastSyncedRow, totalRowsSynced, err.Error())
		}
	}

	newLastSyncedRow := lastSyncedRow
	if rowsSynced > 0 {
		newLastSyncedRow = currentRowNumber - 1
	}
	newTotalRows := totalRowsSynced + rowsSynced

	s.saveState(ctx, connectionID, newLastSyncedRow, entity.SyncStatusSuccess, newTotalRows, "")

	if s.analyticsCache != nil {
		s.analyticsCache.InvalidateConnection(ctx, connectionID.String())
	}

	s.notifier.EmitToUser(effectiveUserID, EventSyncCompleted, map[string]interface{}{
		"connection_id": connectionID,
		"rows_synced":   rowsSynced,
		"total_rows":    newTotalRows,
	})

	s.logger.Info("crawler", "sync completed", map[string]interface{}{
		"connection_id": connectionID, "rows_synced": rowsSynced, "total_rows": newTotalRows,
	})

	return &SyncResult{Success: true, RowsSynced: rowsSynced, TotalRows: newTotalRows}, nil
}

func (s *Service) fail(ctx context.Context, userID, connectionID uuid.UUID, lastSyncedRow, totalRowsSynced int, errMsg string) (*SyncResult, error) {
	s.saveState(ctx, connectionID, lastSyncedRow, entity.SyncStatusFailed, totalRowsSynced, errMsg)
	s.notifier.EmitToUser(userID, EventSyncFailed, map[string]interface{}{
		"connection_id": connectionID,
		"error":         errMsg,
	})
	s.logger.Warn("crawler", "sync failed", map[string]interface{}{"connection_id": connectionID, "error": errMsg})
	return &SyncResult{Success: false, TotalRows: totalRowsSynced, ErrorMessage: errMsg}, nil
}

func (s *Service) saveState(ctx context.Context, connectionID uuid.UUID, lastSyncedRow int, status entity.SyncStatus, totalRowsSynced int, errMsg string) {
	now := time.Now()
	state := &entity.SyncState{
		ConnectionId:    connectionID,
		LastSyncedRow:   lastSyncedRow,
		LastSyncTime:    &now,
		Status:          status,
		LastErrorText:   errMsg,
		TotalRowsSynced: totalRowsSynced,
	}
	if err := s.syncStates.Upsert(ctx, state); err != nil {
		s.logger.Warn("crawler", "failed to persist sync state", map[string]interface{}{"error": err.Error(), "connection_id": connectionID})
	}
}

// PreviewSheet fetches headers plus up to 50 sample rows, for the connection
// setup/mapping UI. It never touches sync state.
func (s *Service) PreviewSheet(ctx context.Context, connectionID uuid.UUID, numRows int) (*PreviewResult, error) {
	conn, err := s.findConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("loading connection: %w", err)
	}
	if conn == nil {
		return nil, fmt.Errorf("connection not found")
	}
	if numRows > previewMaxRows || numRows <= 0 {
		numRows = previewMaxRows
	}

	cacheKey := fmt.Sprintf("%s:%d:%d:%d", connectionID, conn.HeaderRow, conn.DataStartRow, numRows)
	if cached, ok := s.previewCache.Get(cacheKey); ok {
		return cached.(*PreviewResult), nil
	}

	headers, rows, err := s.sheetClient.GetPreview(ctx, conn.SheetId, conn.SheetTabName, conn.HeaderRow, conn.DataStartRow, numRows)
	if err != nil {
		return nil, err
	}
	result := &PreviewResult{Headers: headers, Rows: rows, TotalRows: len(rows)}
	s.previewCache.SetDefault(cacheKey, result)
	return result, nil
}

func (s *Service) GetSyncState(ctx context.Context, connectionID uuid.UUID) (*entity.SyncState, error) {
	return s.syncStates.FindByConnectionId(ctx, connectionID)
}

func hasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}
