package sheets

import (
	"encoding/json"
	"fmt"
	"strings"

	"oosc/internal/core"
)

// defaultColumns is the header written to an empty worksheet.
var defaultColumns = append([]string{"id"}, core.InputFields...)

// canonical maps lower-cased header names to entry JSON keys.
var canonical = func() map[string]string {
	m := map[string]string{"_id": "id"}
	for _, k := range defaultColumns {
		m[strings.ToLower(k)] = k
	}
	return m
}()

// table is one read of the worksheet. values[0] is the header row.
type table struct {
	header []string
	keys   []string // entry key per column, "" for foreign columns
	values [][]any
}

func newTable(values [][]any) *table {
	t := &table{values: values}
	if len(values) == 0 {
		return t
	}
	t.header = cellStrings(values[0])
	t.keys = make([]string, len(t.header))
	for i, h := range t.header {
		t.keys[i] = canonical[strings.ToLower(h)]
	}
	return t
}

// entries decodes every non-blank data row.
func (t *table) entries() []*core.Entry {
	out := make([]*core.Entry, 0, len(t.values))
	for i := 1; i < len(t.values); i++ {
		if e, ok := t.entry(i); ok {
			out = append(out, e)
		}
	}
	return out
}

// entry decodes values[i] through the lenient JSON decoding of core.Entry.
// Rows without an id cell get a positional id.
func (t *table) entry(i int) (*core.Entry, bool) {
	row := t.values[i]
	obj := make(map[string]any, len(row))
	for j, cell := range row {
		if j >= len(t.keys) || t.keys[j] == "" || isBlank(cell) {
			continue
		}
		obj[t.keys[j]] = cell
	}
	if len(obj) == 0 {
		return nil, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	var e core.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.ID == "" {
		e.ID = rowID(i)
	}
	return &e, true
}

// find returns the index in values of the row holding id, or -1.
func (t *table) find(id string) int {
	col := -1
	for j, k := range t.keys {
		if k == "id" {
			col = j
			break
		}
	}
	for i := 1; i < len(t.values); i++ {
		row := t.values[i]
		var cell string
		if col >= 0 && col < len(row) {
			cell = strings.TrimSpace(fmt.Sprint(row[col]))
		}
		if cell == id && id != "" {
			return i
		}
		if cell == "" && id == rowID(i) {
			if _, ok := t.entry(i); ok {
				return i
			}
		}
	}
	return -1
}

// row lays e out in header order. Foreign columns are nil so the Sheets API
// leaves those cells untouched.
func (t *table) row(e core.Entry) []any {
	vals := map[string]any{
		"id":                   e.ID,
		"district":             e.District.String(),
		"totalChildren":        e.TotalChildren.Float(),
		"outOfSchoolChildren":  e.OutOfSchoolChildren.Float(),
		"girlsPercentage":      e.GirlsPercentage.Float(),
		"boysPercentage":       e.BoysPercentage.Float(),
		"povertyPercentage":    e.PovertyPercentage.Float(),
		"disabilityPercentage": e.DisabilityPercentage.Float(),
		"otherPercentage":      e.OtherPercentage.Float(),
		"programType":          e.ProgramType.String(),
		"date":                 e.Date.String(),
	}
	out := make([]any, len(t.keys))
	for j, k := range t.keys {
		if k == "" {
			continue
		}
		out[j] = vals[k]
	}
	return out
}

func rowID(i int) string { return fmt.Sprintf("row-%d", i+1) }

func isBlank(cell any) bool {
	if cell == nil {
		return true
	}
	s, ok := cell.(string)
	return ok && strings.TrimSpace(s) == ""
}

func cellStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
