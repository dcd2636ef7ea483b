package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const spreadsheetID = "sheet-1"

type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	added   []string
	cleared []string
	written map[string][][]any
	input   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := "/v4/spreadsheets/" + spreadsheetID
	valuesPrefix := base + "/values/"
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == base:
		ss := gsheet.Spreadsheet{}
		for _, title := range f.titles {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)

	case r.Method == http.MethodPost && path == base+":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Requests) != 1 || req.Requests[0].AddSheet == nil {
			http.Error(w, `{"error":{"code":400,"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		title := req.Requests[0].AddSheet.Properties.Title
		f.added = append(f.added, title)
		f.titles = append(f.titles, title)
		_ = json.NewEncoder(w).Encode(gsheet.BatchUpdateSpreadsheetResponse{SpreadsheetId: spreadsheetID})

	case r.Method == http.MethodPost && strings.HasPrefix(path, valuesPrefix) && strings.HasSuffix(path, ":clear"):
		rng := strings.TrimSuffix(strings.TrimPrefix(path, valuesPrefix), ":clear")
		f.cleared = append(f.cleared, rng)
		_ = json.NewEncoder(w).Encode(gsheet.ClearValuesResponse{ClearedRange: rng})

	case r.Method == http.MethodPut && strings.HasPrefix(path, valuesPrefix):
		rng := strings.TrimPrefix(path, valuesPrefix)
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, `{"error":{"code":400,"message":"bad body"}}`, http.StatusBadRequest)
			return
		}
		f.written[rng] = vr.Values
		f.input = append(f.input, r.URL.Query().Get("valueInputOption"))
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: rng, UpdatedRows: int64(len(vr.Values))})

	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, titles ...string) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{titles: titles, written: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), spreadsheetID, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c, fake
}

func TestClient_ReplaceSheet_CreatesTabOnce(t *testing.T) {
	c, fake := newFakeClient(t, "Summary")
	ctx := context.Background()
	rows := [][]any{{"Pay period", "Jan 15 - Jan 28, 2024"}, {}, {"Rent", "-50.00"}}

	ref, err := c.ReplaceSheet(ctx, "Pay Period 2024-01-15", rows)
	if err != nil {
		t.Fatalf("ReplaceSheet: %v", err)
	}
	if ref != "'Pay Period 2024-01-15'!A1" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.ReplaceSheet(ctx, "Pay Period 2024-01-15", rows); err != nil {
		t.Fatalf("second ReplaceSheet: %v", err)
	}

	if len(fake.added) != 1 || fake.added[0] != "Pay Period 2024-01-15" {
		t.Errorf("added = %v, want the tab created exactly once", fake.added)
	}
	if len(fake.cleared) != 2 || fake.cleared[0] != "'Pay Period 2024-01-15'" {
		t.Errorf("cleared = %v", fake.cleared)
	}
	for _, opt := range fake.input {
		if opt != "USER_ENTERED" {
			t.Errorf("valueInputOption = %q", opt)
		}
	}

	got := fake.written["'Pay Period 2024-01-15'!A1"]
	if len(got) != 3 || len(got[1]) != 1 || got[1][0] != "" {
		t.Errorf("spacer row should be kept as one empty cell, got %v", got)
	}
}

func TestClient_ReplaceSheet_ExistingTab(t *testing.T) {
	c, fake := newFakeClient(t, "Pay Period 2024-01-15")
	if _, err := c.ReplaceSheet(context.Background(), "Pay Period 2024-01-15", [][]any{{"x"}}); err != nil {
		t.Fatal(err)
	}
	if len(fake.added) != 0 {
		t.Errorf("no tab should be added, got %v", fake.added)
	}
}

func TestClient_ReplaceSheet_APIError(t *testing.T) {
	c, _ := newFakeClient(t)
	c.spreadsheetID = "unknown"
	_, err := c.ReplaceSheet(context.Background(), "Tab", nil)
	if err == nil || !strings.Contains(err.Error(), "read spreadsheet") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, " ", []byte("{}"), "", nil); err == nil || err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(ctx, "id", nil, "", nil); err == nil || err.Error() != "missing service account credentials" {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(ctx, "id", nil, "/does/not/exist.json", nil); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Pay Period 2024-01-15": "'Pay Period 2024-01-15'",
		"Bob's":                 "'Bob''s'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.ReplaceSheet(context.Background(), "Tab", nil); err == nil {
		t.Fatal("expected error for uninitialized service")
	}
}
