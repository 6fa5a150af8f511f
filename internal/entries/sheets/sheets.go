// Package sheets stores entries in a Google Sheets worksheet. The first row
// names the columns with the entry JSON keys; every following row is one
// entry.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"oosc/internal/core"
	"oosc/internal/entries"
)

var _ entries.Store = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	newID         func() string
}

// New creates a Sheets client authenticated with service account
// credentials. CredentialsJSON wins over CredentialsFile; when neither is
// set GOOGLE_APPLICATION_CREDENTIALS is tried.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := readCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Entries"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheet:         sheet,
		newID:         func() string { return uuid.NewString() },
	}
}

func readCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ListEntries(ctx context.Context) ([]*core.Entry, error) {
	t, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	return t.entries(), nil
}

func (c *Client) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	t, err := c.read(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	i := t.find(id)
	if i < 0 {
		return core.Entry{}, entries.ErrNotFound
	}
	e, _ := t.entry(i)
	return *e, nil
}

// CreateEntry appends a row with a fresh id. An empty worksheet gets the
// header row first.
func (c *Client) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	t, err := c.read(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	if len(t.header) == 0 {
		hdr := make([]any, len(defaultColumns))
		for i, col := range defaultColumns {
			hdr[i] = col
		}
		if err := c.writeRow(ctx, 1, hdr); err != nil {
			return core.Entry{}, fmt.Errorf("write header: %w", err)
		}
		t = newTable([][]any{hdr})
	}

	e.ID = c.newID()
	rng := c.rangeRef("A1")
	vr := &gsheet.ValueRange{Values: [][]any{t.row(e)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Entry{}, fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	slog.InfoContext(ctx, "Entry appended to sheet", "sheet", c.sheet, "entry_id", e.ID)
	return e, nil
}

func (c *Client) UpdateEntry(ctx context.Context, id string, e core.Entry) (core.Entry, error) {
	t, err := c.read(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	i := t.find(id)
	if i < 0 {
		return core.Entry{}, entries.ErrNotFound
	}
	e.ID = id
	if err := c.writeRow(ctx, i+1, t.row(e)); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// DeleteEntry clears the entry's row. Cleared rows are skipped on read.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	t, err := c.read(ctx)
	if err != nil {
		return err
	}
	i := t.find(id)
	if i < 0 {
		return entries.ErrNotFound
	}
	rng := c.rangeRef(fmt.Sprintf("%d:%d", i+1, i+1))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context) (*table, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return newTable(resp.Values), nil
}

// writeRow overwrites the row with the 1-based number n.
func (c *Client) writeRow(ctx context.Context, n int, row []any) error {
	rng := c.rangeRef(fmt.Sprintf("A%d", n))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) rangeRef(cells string) string {
	return quoteSheet(c.sheet) + "!" + cells
}

// quoteSheet wraps sheet names that need quoting in A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!-") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
