package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFilterBlankQueryKeepsNonNil(t *testing.T) {
	in := sampleEntries()
	in = []*Entry{nil, in[0], nil, in[1]}
	for _, q := range []string{"", "   ", "\t\n"} {
		got := Filter(in, q)
		if diff := cmp.Diff([]string{"1", "2"}, ids(got)); diff != "" {
			t.Fatalf("query %q (-want +got):\n%s", q, diff)
		}
	}
}

func TestFilterMatchesAnyField(t *testing.T) {
	in := sampleEntries()
	cases := []struct {
		query string
		want  []string
	}{
		{"mar", []string{"1"}},
		{"MARDAN", []string{"1"}},
		{"merged", []string{"2"}},
		{"2024-0", []string{"1", "2"}},
		{"04-15", []string{"2"}},
		{"peshawar", []string{}},
		{" mardan", []string{}}, // query is not trimmed
	}
	for _, tc := range cases {
		got := Filter(in, tc.query)
		if diff := cmp.Diff(tc.want, ids(got)); diff != "" {
			t.Fatalf("query %q (-want +got):\n%s", tc.query, diff)
		}
	}
}

func TestFilterCaseInsensitiveAndIdempotent(t *testing.T) {
	in := sampleEntries()
	upper := Filter(in, "MARDAN")
	lower := Filter(in, "mardan")
	if diff := cmp.Diff(ids(upper), ids(lower)); diff != "" {
		t.Fatalf("case sensitivity (-upper +lower):\n%s", diff)
	}
	for _, q := range []string{"", "s", "voucher", "zzz"} {
		once := Filter(in, q)
		twice := Filter(once, q)
		if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
			t.Fatalf("not idempotent for %q:\n%s", q, diff)
		}
	}
}

func TestFilterAbsentFieldsDoNotMatch(t *testing.T) {
	in := []*Entry{{ID: "a"}, {ID: "b", Date: "2023"}}
	got := Filter(in, "2023")
	if diff := cmp.Diff([]string{"b"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := []*Entry{nil, sampleEntries()[0]}
	before := append([]*Entry(nil), in...)
	_ = Filter(in, "swabi")
	_ = Filter(in, "")
	if diff := cmp.Diff(before, in); diff != "" {
		t.Fatalf("input mutated:\n%s", diff)
	}
}
