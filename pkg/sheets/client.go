package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ClientError distinguishes access/not-found conditions from generic API
// failures so the crawler can classify them without string matching.
type ClientError struct {
	Kind    string // "not_accessible" | "not_found" | "api_error"
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error { return e.Err }

func notAccessible(msg string, err error) *ClientError {
	return &ClientError{Kind: "not_accessible", Message: msg, Err: err}
}

func notFound(msg string, err error) *ClientError {
	return &ClientError{Kind: "not_found", Message: msg, Err: err}
}

func apiError(msg string, err error) *ClientError {
	return &ClientError{Kind: "api_error", Message: msg, Err: err}
}

// Client wraps the Sheets API v4 service with the narrow surface the crawler
// needs: metadata, header row, and bulk value fetches.
type Client struct {
	svc *sheets.Service
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// CheckAccess reports whether the service account can read the spreadsheet.
func (c *Client) CheckAccess(ctx context.Context, sheetID string) (bool, error) {
	_, err := c.svc.Spreadsheets.Get(sheetID).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if isGoogleAPIStatus(err, 403) || isGoogleAPIStatus(err, 404) {
		return false, nil
	}
	return false, apiError("checking access", err)
}

type Metadata struct {
	Title string
	Tabs  []string
}

func (c *Client) GetMetadata(ctx context.Context, sheetID string) (*Metadata, error) {
	ss, err := c.svc.Spreadsheets.Get(sheetID).Context(ctx).Do()
	if err != nil {
		if isGoogleAPIStatus(err, 403) {
			return nil, notAccessible("cannot access spreadsheet", err)
		}
		if isGoogleAPIStatus(err, 404) {
			return nil, notFound(fmt.Sprintf("spreadsheet not found: %s", sheetID), err)
		}
		return nil, apiError("getting metadata", err)
	}

	tabs := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		tabs = append(tabs, s.Properties.Title)
	}
	return &Metadata{Title: ss.Properties.Title, Tabs: tabs}, nil
}

// GetHeaders fetches only the header row, not the whole sheet.
func (c *Client) GetHeaders(ctx context.Context, sheetID, tabName string, headerRow int) ([]string, error) {
	rangeStr := fmt.Sprintf("%s!%d:%d", tabName, headerRow, headerRow)
	resp, err := c.svc.Spreadsheets.Values.Get(sheetID, rangeStr).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err, tabName, sheetID)
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}
	return toStringRow(resp.Values[0]), nil
}

// GetValues fetches rows from startRow (1-indexed, inclusive) to the end of
// data, in a single round trip.
func (c *Client) GetValues(ctx context.Context, sheetID, tabName string, startRow int) ([][]string, error) {
	rangeStr := fmt.Sprintf("%s!%d:%d", tabName, startRow, 10_000_000)
	resp, err := c.svc.Spreadsheets.Values.Get(sheetID, rangeStr).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err, tabName, sheetID)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, toStringRow(row))
	}
	return rows, nil
}

// GetPreview fetches the header row plus up to numRows data rows, capped at 50.
func (c *Client) GetPreview(ctx context.Context, sheetID, tabName string, headerRow, dataStartRow, numRows int) ([]string, [][]string, error) {
	if numRows > 50 {
		numRows = 50
	}
	headers, err := c.GetHeaders(ctx, sheetID, tabName, headerRow)
	if err != nil {
		return nil, nil, err
	}
	endRow := dataStartRow + numRows - 1
	rangeStr := fmt.Sprintf("%s!%d:%d", tabName, dataStartRow, endRow)
	resp, err := c.svc.Spreadsheets.Values.Get(sheetID, rangeStr).Context(ctx).Do()
	if err != nil {
		return headers, nil, c.classify(err, tabName, sheetID)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, toStringRow(row))
	}
	return headers, rows, nil
}

func (c *Client) classify(err error, tabName, sheetID string) error {
	if isGoogleAPIStatus(err, 403) {
		return notAccessible("cannot access spreadsheet", err)
	}
	if isGoogleAPIStatus(err, 404) {
		return notFound(fmt.Sprintf("tab %q not found in spreadsheet %s", tabName, sheetID), err)
	}
	return apiError("fetching values", err)
}

func toStringRow(row []interface{}) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = fmt.Sprintf("%v", cell)
	}
	return out
}
