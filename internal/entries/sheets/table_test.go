package sheets

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"oosc/internal/core"
)

func sheetValues() [][]any {
	return [][]any{
		{"ID", "District", "TotalChildren", "OutOfSchoolChildren", "GirlsPercentage", "Notes", "ProgramType", "Date"},
		{"a1", "Mardan", 100.0, 20.0, 60.0, "checked", "Voucher", "2024-03-01"},
		{"", "", "", "", "", ""},
		{"", "Swabi", "200", "50", "40", "", "Merged Schools", "2024-04-15"},
		{"a3", "Nowshera", "n/a"},
	}
}

func TestTableEntries(t *testing.T) {
	got := newTable(sheetValues()).entries()
	want := []*core.Entry{
		{ID: "a1", District: "Mardan", TotalChildren: 100, OutOfSchoolChildren: 20, GirlsPercentage: 60, ProgramType: "Voucher", Date: "2024-03-01"},
		{ID: "row-4", District: "Swabi", TotalChildren: 200, OutOfSchoolChildren: 50, GirlsPercentage: 40, ProgramType: "Merged Schools", Date: "2024-04-15"},
		{ID: "a3", District: "Nowshera"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestTableFind(t *testing.T) {
	tbl := newTable(sheetValues())
	tests := []struct {
		id   string
		want int
	}{
		{"a1", 1},
		{"row-4", 3},
		{"a3", 4},
		{"row-3", -1},
		{"missing", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := tbl.find(tt.id); got != tt.want {
			t.Errorf("find(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestTableRowKeepsForeignColumns(t *testing.T) {
	tbl := newTable(sheetValues())
	row := tbl.row(core.Entry{ID: "a1", District: "Mardan", TotalChildren: 120, ProgramType: "Voucher", Date: "2024-03-01"})
	want := []any{"a1", "Mardan", 120.0, 0.0, 0.0, nil, "Voucher", "2024-03-01"}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptySheet(t *testing.T) {
	tbl := newTable(nil)
	if got := tbl.entries(); len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
	if tbl.find("x") != -1 {
		t.Fatalf("expected no match in empty sheet")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Entries":        "Entries",
		"OOSC Entries":   "'OOSC Entries'",
		"Kid's Entries":  "'Kid''s Entries'",
		"2024-Districts": "'2024-Districts'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Config{}); err == nil || !strings.Contains(err.Error(), "spreadsheet") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "abc"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestUninitializedService(t *testing.T) {
	c := NewWithService(nil, "abc", "")
	if c.sheet != "Entries" {
		t.Fatalf("default sheet name = %q", c.sheet)
	}
	if _, err := c.ListEntries(context.Background()); err == nil {
		t.Fatalf("expected error without service")
	}
}
