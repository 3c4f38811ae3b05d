package directory

import "context"

// Static is a fixed in-memory directory, used in tests and local development
// when no admin API endpoint is configured.
type Static struct {
	entries map[string]Entry
}

func NewStatic(entries []Entry) *Static {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Ref] = e
	}
	return &Static{entries: m}
}

func (s *Static) Resolve(_ context.Context, ref string) (Entry, error) {
	e, ok := s.entries[ref]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}
