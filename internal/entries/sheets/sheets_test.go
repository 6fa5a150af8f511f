package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"oosc/internal/core"
	"oosc/internal/entries"
)

// fakeSheet serves the values endpoints of one worksheet.
type fakeSheet struct {
	mu     sync.Mutex
	values [][]any
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		resp := map[string]any{"range": rng, "majorDimension": "ROWS"}
		if len(f.values) > 0 {
			resp["values"] = f.values
		}
		_ = json.NewEncoder(w).Encode(resp)
	case strings.HasSuffix(rng, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.values = append(f.values, vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(rng, ":clear"):
		n := rowNumber(strings.TrimSuffix(rng, ":clear"))
		if n >= 1 && n <= len(f.values) {
			f.values[n-1] = []any{}
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil || len(vr.Values) != 1 {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		n := rowNumber(rng)
		for len(f.values) < n {
			f.values = append(f.values, []any{})
		}
		old, row := f.values[n-1], vr.Values[0]
		merged := make([]any, max(len(old), len(row)))
		copy(merged, old)
		for j, v := range row {
			// null cells leave the stored value alone
			if v != nil {
				merged[j] = v
			}
		}
		f.values[n-1] = merged
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheet) row(n int) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 1 || n > len(f.values) {
		return nil
	}
	return f.values[n-1]
}

// rowNumber reads the first row of an A1 range such as "Entries!A3" or
// "Entries!3:3".
func rowNumber(rng string) int {
	if _, cells, ok := strings.Cut(rng, "!"); ok {
		rng = cells
	}
	rng, _, _ = strings.Cut(rng, ":")
	n, _ := strconv.Atoi(strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func newFakeClient(t *testing.T, values [][]any) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{values: values}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new sheets service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Entries"), fake
}

func TestCreateEntryOnEmptySheet(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t, nil)
	c.newID = func() string { return "id-1" }

	created, err := c.CreateEntry(ctx, core.Entry{
		District: "Mardan", TotalChildren: 100, OutOfSchoolChildren: 20,
		GirlsPercentage: 60, ProgramType: "Voucher", Date: "2024-03-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "id-1" {
		t.Fatalf("created id = %q", created.ID)
	}

	hdr := fake.row(1)
	if len(hdr) != len(defaultColumns) || hdr[0] != "id" {
		t.Fatalf("header row = %v", hdr)
	}
	if row := fake.row(2); len(row) != len(defaultColumns) {
		t.Fatalf("appended row has %d cells, want %d: %v", len(row), len(defaultColumns), row)
	}

	got, err := c.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []*core.Entry{{
		ID: "id-1", District: "Mardan", TotalChildren: 100, OutOfSchoolChildren: 20,
		GirlsPercentage: 60, ProgramType: "Voucher", Date: "2024-03-01",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateEntryRewritesRow(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t, sheetValues())

	updated, err := c.UpdateEntry(ctx, "a1", core.Entry{District: "Mardan", TotalChildren: 120, ProgramType: "Voucher", Date: "2024-03-01"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "a1" {
		t.Fatalf("updated id = %q", updated.ID)
	}

	got, err := c.GetEntry(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalChildren != 120 || got.OutOfSchoolChildren != 0 {
		t.Fatalf("row not rewritten: %+v", got)
	}
	if notes := fake.row(2)[5]; notes != "checked" {
		t.Fatalf("foreign column overwritten: %v", notes)
	}

	if _, err := c.UpdateEntry(ctx, "missing", core.Entry{}); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestDeleteEntryClearsRow(t *testing.T) {
	ctx := context.Background()
	c, _ := newFakeClient(t, sheetValues())

	if err := c.DeleteEntry(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := c.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]string, len(list))
	for i, e := range list {
		ids[i] = e.ID
	}
	if diff := cmp.Diff([]string{"row-4", "a3"}, ids); diff != "" {
		t.Fatalf("ids after delete (-want +got):\n%s", diff)
	}

	if _, err := c.GetEntry(ctx, "a1"); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if err := c.DeleteEntry(ctx, "a1"); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
