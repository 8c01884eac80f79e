package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"keshi/internal/civiltime"
	"keshi/internal/core"
	"keshi/internal/mirror"
)

// Mirror row layout: A date, B course name, C grade, D hours, E notes,
// F record id. Column F is how RemoveRecord finds the row again.
const idColumn = "F"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID int64
	gotID   bool
}

var (
	_ mirror.RecordAppender = (*Client)(nil)
	_ mirror.RecordRemover  = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from the environment.
// Required: GOOGLE_SPREADSHEET_ID and service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "LessonRecords").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "LessonRecords"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendRecord writes the record as the next row of the mirror sheet and
// returns its A1 reference.
func (c *Client) AppendRecord(ctx context.Context, rec core.LessonRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, idColumn)
	vr := &gsheet.ValueRange{Values: [][]any{{
		civiltime.FormatDate(rec.Date),
		rec.CourseName,
		rec.Grade,
		rec.Hours,
		rec.Notes,
		rec.ID,
	}}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return fmt.Sprintf("%s!A:%s", c.sheetName, idColumn), nil
}

// RemoveRecord finds the row carrying the record id and deletes it. A record
// that never reached the mirror is a no-op.
func (c *Client) RemoveRecord(ctx context.Context, recordID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowIdx, err := c.findRowByID(ctx, recordID)
	if err != nil {
		return err
	}
	if rowIdx < 0 {
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIdx),
					EndIndex:   int64(rowIdx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from sheet %s: %w", rowIdx+1, c.sheetName, err)
	}
	return nil
}

// findRowByID scans the id column and returns the zero-based row index of
// the first match, or -1.
func (c *Client) findRowByID(ctx context.Context, recordID string) (int, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, idColumn, idColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return -1, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == recordID {
			return i, nil
		}
	}
	return -1, nil
}

// resolveSheetID maps the configured sheet title to its numeric id, cached
// after the first lookup.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gotID {
		return c.sheetID, nil
	}

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			c.sheetID = sh.Properties.SheetId
			c.gotID = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
