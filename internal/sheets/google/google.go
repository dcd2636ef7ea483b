package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"paycalc/internal/log"
	"paycalc/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ sheets.SheetWriter = (*Client)(nil)

// New creates a Sheets client from service account credentials, given
// either inline (credentialsJSON) or as a file path.
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, credentialsFile string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsFile = strings.TrimSpace(credentialsFile)
	switch {
	case len(credentialsJSON) > 0:
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	return NewWithOptions(ctx, spreadsheetID, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClient()),
	)
}

// NewWithOptions builds a client from raw API options.
func NewWithOptions(ctx context.Context, spreadsheetID string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        log.OrDiscard(logger).WithComponent(log.ComponentSheets),
	}, nil
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}
}

// ReplaceSheet creates the tab when missing, clears it and writes rows from A1.
func (c *Client) ReplaceSheet(ctx context.Context, sheet string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	quoted := quoteSheet(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: normalizeRows(rows)}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write %s: %w", sheet, err)
	}
	c.logger.DebugContext(ctx, "Sheet written",
		"sheet", sheet,
		"updated_range", resp.UpdatedRange,
		"updated_cells", resp.UpdatedCells)
	return resp.UpdatedRange, nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	c.logger.InfoContext(ctx, "Sheet created", "sheet", sheet)
	return nil
}

// quoteSheet wraps a sheet title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// normalizeRows turns empty spacer rows into a single empty cell; the API
// drops zero-length rows, which would shift everything below them up.
func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) == 0 {
			out[i] = []any{""}
			continue
		}
		out[i] = r
	}
	return out
}
