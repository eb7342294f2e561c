package crawler

import (
	"context"
	"errors"
	"testing"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/pkg/logger"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/pkg/sheets"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheetsClient struct {
	headers     []string
	valuesByRow map[int][][]string
	previewRows [][]string
	err         error
}

func (f *fakeSheetsClient) GetHeaders(ctx context.Context, sheetID, tabName string, headerRow int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.headers, nil
}

func (f *fakeSheetsClient) GetValues(ctx context.Context, sheetID, tabName string, startRow int) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.valuesByRow[startRow], nil
}

func (f *fakeSheetsClient) GetPreview(ctx context.Context, sheetID, tabName string, headerRow, dataStartRow, numRows int) ([]string, [][]string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.headers, f.previewRows, nil
}

type fakeConnections struct {
	byID map[uuid.UUID]*entity.Connection
}

func (f *fakeConnections) Create(ctx context.Context, conn *entity.Connection) error { return nil }
func (f *fakeConnections) Update(ctx context.Context, conn *entity.Connection) error { return nil }
func (f *fakeConnections) Delete(ctx context.Context, id uuid.UUID) error            { return nil }
func (f *fakeConnections) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.byID)), nil
}
func (f *fakeConnections) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Connection, error) {
	return nil, nil
}
func (f *fakeConnections) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Connection, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.byID[byID.ID], nil
		}
	}
	return nil, nil
}

type fakeSyncStates struct {
	byConnection map[uuid.UUID]*entity.SyncState
}

func (f *fakeSyncStates) FindByConnectionId(ctx context.Context, connectionId uuid.UUID) (*entity.SyncState, error) {
	return f.byConnection[connectionId], nil
}

func (f *fakeSyncStates) Upsert(ctx context.Context, state *entity.SyncState) error {
	if f.byConnection == nil {
		f.byConnection = make(map[uuid.UUID]*entity.SyncState)
	}
	f.byConnection[state.ConnectionId] = state
	return nil
}

func (f *fakeSyncStates) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	delete(f.byConnection, connectionId)
	return nil
}

type fakeSheetRows struct {
	upserted []*entity.SheetRow
	err      error
}

func (f *fakeSheetRows) UpsertBatch(ctx context.Context, rows []*entity.SheetRow) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, rows...)
	return nil
}
func (f *fakeSheetRows) FindByConnection(ctx context.Context, connectionId uuid.UUID, limit, offset int) ([]*entity.SheetRow, error) {
	return nil, nil
}
func (f *fakeSheetRows) FindDocuments(ctx context.Context, connectionIds []uuid.UUID) ([]map[string]interface{}, error) {
	return nil, nil
}
func (f *fakeSheetRows) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	return nil
}

type recordedEvent struct {
	userID uuid.UUID
	event  string
	data   map[string]interface{}
}

type fakeNotifier struct {
	events []recordedEvent
}

func (f *fakeNotifier) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	m, _ := data.(map[string]interface{})
	f.events = append(f.events, recordedEvent{userID: userID, event: event, data: m})
}
func (f *fakeNotifier) EmitToRoom(room string, event string, data interface{}) {}
func (f *fakeNotifier) Broadcast(event string, data interface{})               {}

func (f *fakeNotifier) eventNames() []string {
	names := make([]string, len(f.events))
	for i, e := range f.events {
		names[i] = e.event
	}
	return names
}

func testConnection(id uuid.UUID) *entity.Connection {
	return &entity.Connection{
		Id:           id,
		SheetId:      "sheet-1",
		SheetTabName: "Sheet1",
		SyncEnabled:  true,
		HeaderRow:    1,
		DataStartRow: 2,
		ColumnMappings: []entity.ColumnMapping{
			{SystemField: "order_id", SheetColumn: "A", DataType: "string", Required: true},
			{SystemField: "total_amount", SheetColumn: "B", DataType: "number"},
		},
	}
}

func newService(t *testing.T, client *fakeSheetsClient, conns *fakeConnections, states *fakeSyncStates, rows *fakeSheetRows, notif *fakeNotifier) *Service {
	t.Helper()
	log := logger.NewIsolatedLogger(t.TempDir() + "/test.log")
	return &Service{
		sheetClient:  client,
		connections:  conns,
		syncStates:   states,
		sheetRows:    rows,
		columnMapper: sheets.NewColumnMapper(),
		notifier:     notif,
		previewCache: gocache.New(previewCacheTTL, 2*previewCacheTTL),
		logger:       log,
	}
}

func TestSyncSheet_MissingConnectionIsSilentNoOp(t *testing.T) {
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{}}
	states := &fakeSyncStates{}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	svc := newService(t, &fakeSheetsClient{}, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.RowsSynced)
	assert.Empty(t, notif.events)
}

func TestSyncSheet_DisabledConnectionIsSilentNoOp(t *testing.T) {
	connID := uuid.New()
	conn := testConnection(connID)
	conn.SyncEnabled = false
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	states := &fakeSyncStates{}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	svc := newService(t, &fakeSheetsClient{}, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), connID, uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, notif.events)
}

func TestIsSyncable(t *testing.T) {
	enabledID := uuid.New()
	disabledID := uuid.New()
	enabled := testConnection(enabledID)
	disabled := testConnection(disabledID)
	disabled.SyncEnabled = false
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{enabledID: enabled, disabledID: disabled}}
	svc := newService(t, &fakeSheetsClient{}, conns, &fakeSyncStates{}, &fakeSheetRows{}, &fakeNotifier{})

	ok, err := svc.IsSyncable(context.Background(), enabledID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsSyncable(context.Background(), disabledID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsSyncable(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncSheet_IncrementalFromLastSyncedRow(t *testing.T) {
	connID := uuid.New()
	userID := uuid.New()
	conn := testConnection(connID)
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	states := &fakeSyncStates{byConnection: map[uuid.UUID]*entity.SyncState{
		connID: {ConnectionId: connID, LastSyncedRow: 5, TotalRowsSynced: 4},
	}}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	client := &fakeSheetsClient{
		headers: []string{"order_id", "amount"},
		valuesByRow: map[int][][]string{
			6: {{"ORD-1", "10"}, {"ORD-2", "20"}},
		},
	}
	svc := newService(t, client, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), connID, userID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RowsSynced)
	assert.Equal(t, 6, result.TotalRows)
	require.Len(t, rows.upserted, 2)
	assert.Equal(t, 6, rows.upserted[0].RowNumber)
	assert.Equal(t, 7, rows.upserted[1].RowNumber)

	state := states.byConnection[connID]
	assert.Equal(t, 7, state.LastSyncedRow)
	assert.Equal(t, entity.SyncStatusSuccess, state.Status)

	assert.Equal(t, []string{EventSyncStarted, EventSyncCompleted}, notif.eventNames())
	for _, e := range notif.events {
		assert.Equal(t, userID, e.userID)
	}
}

func TestSyncSheet_SkipsBlankRows(t *testing.T) {
	connID := uuid.New()
	conn := testConnection(connID)
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	states := &fakeSyncStates{}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	client := &fakeSheetsClient{
		headers: []string{"order_id", "amount"},
		valuesByRow: map[int][][]string{
			2: {{"ORD-1", "10"}, {"", ""}, {"ORD-2", "20"}},
		},
	}
	svc := newService(t, client, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), connID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsSynced)
	require.Len(t, rows.upserted, 2)
	assert.Equal(t, 2, rows.upserted[0].RowNumber)
	assert.Equal(t, 4, rows.upserted[1].RowNumber)
}

func TestSyncSheet_MissingRequiredColumnFailsAndNotifies(t *testing.T) {
	connID := uuid.New()
	userID := uuid.New()
	conn := testConnection(connID)
	conn.ColumnMappings = []entity.ColumnMapping{
		{SystemField: "order_id", SheetColumn: "order_id", DataType: "string", Required: true},
	}
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	states := &fakeSyncStates{}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	client := &fakeSheetsClient{
		headers: []string{"not_order_id", "amount"},
	}
	svc := newService(t, client, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), connID, userID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Equal(t, []string{EventSyncStarted, EventSyncFailed}, notif.eventNames())

	state := states.byConnection[connID]
	assert.Equal(t, entity.SyncStatusFailed, state.Status)
}

func TestSyncSheet_SheetsAPIErrorFails(t *testing.T) {
	connID := uuid.New()
	conn := testConnection(connID)
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	states := &fakeSyncStates{}
	rows := &fakeSheetRows{}
	notif := &fakeNotifier{}
	client := &fakeSheetsClient{err: errors.New("boom")}
	svc := newService(t, client, conns, states, rows, notif)

	result, err := svc.SyncSheet(context.Background(), connID, uuid.New())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "boom")
}

func TestPreviewSheet_ClampsRowCount(t *testing.T) {
	connID := uuid.New()
	conn := testConnection(connID)
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{connID: conn}}
	client := &fakeSheetsClient{
		headers:     []string{"order_id", "amount"},
		previewRows: [][]string{{"ORD-1", "10"}},
	}
	svc := newService(t, client, conns, &fakeSyncStates{}, &fakeSheetRows{}, &fakeNotifier{})

	preview, err := svc.PreviewSheet(context.Background(), connID, 999)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "amount"}, preview.Headers)
	assert.Equal(t, 1, preview.TotalRows)
}

func TestPreviewSheet_UnknownConnectionErrors(t *testing.T) {
	conns := &fakeConnections{byID: map[uuid.UUID]*entity.Connection{}}
	svc := newService(t, &fakeSheetsClient{}, conns, &fakeSyncStates{}, &fakeSheetRows{}, &fakeNotifier{})

	_, err := svc.PreviewSheet(context.Background(), uuid.New(), 10)
	require.Error(t, err)
}

func TestGetSyncState_DelegatesToRepository(t *testing.T) {
	connID := uuid.New()
	states := &fakeSyncStates{byConnection: map[uuid.UUID]*entity.SyncState{
		connID: {ConnectionId: connID, LastSyncedRow: 3},
	}}
	svc := newService(t, &fakeSheetsClient{}, &fakeConnections{}, states, &fakeSheetRows{}, &fakeNotifier{})

	state, err := svc.GetSyncState(context.Background(), connID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 3, state.LastSyncedRow)
}
