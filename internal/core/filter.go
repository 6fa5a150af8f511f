package core

import "strings"

// Filter returns the entries whose district, program type or date contains
// query, ignoring case. A blank query keeps every entry. Nil entries are
// always dropped and the input slice is never modified.
func Filter(entries []*Entry, query string) []*Entry {
	out := make([]*Entry, 0, len(entries))
	if strings.TrimSpace(query) == "" {
		for _, e := range entries {
			if e != nil {
				out = append(out, e)
			}
		}
		return out
	}

	q := strings.ToLower(query)
	for _, e := range entries {
		if e != nil && e.Matches(q) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether any searchable field contains the already
// lower-cased query.
func (e *Entry) Matches(lowerQuery string) bool {
	for _, field := range []Text{e.District, e.ProgramType, e.Date} {
		if field.IsEmpty() {
			continue
		}
		if strings.Contains(strings.ToLower(string(field)), lowerQuery) {
			return true
		}
	}
	return false
}
