package client

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// mockBackend answers one resource's operations from the client's mock
// set instead of the network. List filtering is plain equality on
// stringified values; dunder lookups and sort keys are not interpreted
// and match everything.
type mockBackend struct {
	set      *drest.MockSet
	resource string
}

// List filters and paginates the registered records, synthesizing the
// pagination counters a real server would send.
func (m *mockBackend) List(params *drest.QueryParams) *drest.ListResult {
	records := m.set.Records(m.resource)

	page := 1
	perPage := 0

	if params != nil {
		records = filterMockRecords(records, params)

		if params.Page > 0 {
			page = params.Page
		}

		perPage = params.PerPage
	}

	return paginateMockRecords(records, page, perPage)
}

// Get returns the record whose id stringifies to id. Fixtures that
// carry their key only in the _meta block match too.
func (m *mockBackend) Get(id string) (drest.Fields, error) {
	fields, ok := m.set.FindByID(m.resource, id)
	if ok {
		return fields, nil
	}

	for _, record := range m.set.Records(m.resource) {
		if metaID(record) == id {
			return record, nil
		}
	}

	return nil, fmt.Errorf("no mock record with id %q: %w", id, drest.ErrDoesNotExist)
}

// metaID reads the primary key out of a record's _meta block.
func metaID(record drest.Fields) string {
	meta, ok := record[drest.MetaFieldKey].(map[string]any)
	if !ok {
		return ""
	}

	return drest.Stringify(meta[drest.IDField])
}

// Create stores a new record, assigning a generated id when the caller
// supplied none, and returns the stored copy.
func (m *mockBackend) Create(fields drest.Fields) drest.Fields {
	stored := fields.Copy()

	if drest.Stringify(stored[drest.IDField]) == "" {
		stored[drest.IDField] = uuid.NewString()
	}

	m.set.Add(m.resource, stored)

	return stored.Copy()
}

// Update replaces the record with the given id.
func (m *mockBackend) Update(id string, fields drest.Fields) (drest.Fields, error) {
	stored := fields.Copy()

	if drest.Stringify(stored[drest.IDField]) == "" {
		stored[drest.IDField] = id
	}

	if !m.set.ReplaceByID(m.resource, id, stored) {
		return nil, fmt.Errorf("no mock record with id %q: %w", id, drest.ErrDoesNotExist)
	}

	return stored.Copy(), nil
}

// Delete removes the record with the given id.
func (m *mockBackend) Delete(id string) error {
	if !m.set.DeleteByID(m.resource, id) {
		return fmt.Errorf("no mock record with id %q: %w", id, drest.ErrDoesNotExist)
	}

	return nil
}

// filterMockRecords applies the query's plain equality filters and
// exclusions. Terms whose field carries a dunder lookup are skipped.
func filterMockRecords(records []drest.Fields, params *drest.QueryParams) []drest.Fields {
	out := make([]drest.Fields, 0, len(records))

	for _, record := range records {
		if matchesMockTerms(record, params.Filters, true) && matchesMockTerms(record, params.Excludes, false) {
			out = append(out, record)
		}
	}

	return out
}

// matchesMockTerms reports whether a record satisfies every term:
// equality for filters (want=true), inequality for exclusions.
func matchesMockTerms(record drest.Fields, terms []drest.FilterTerm, want bool) bool {
	for _, term := range terms {
		if strings.Contains(term.Field, "__") {
			continue
		}

		equal := drest.Stringify(record[term.Field]) == drest.Stringify(term.Value)
		if equal != want {
			return false
		}
	}

	return true
}

// paginateMockRecords slices one page out of the filtered records. A
// non-positive perPage delivers everything on page one.
func paginateMockRecords(records []drest.Fields, page, perPage int) *drest.ListResult {
	total := len(records)

	meta := &drest.Meta{
		Page:         page,
		PerPage:      perPage,
		TotalResults: total,
	}

	if perPage <= 0 {
		if total > 0 {
			meta.TotalPages = 1
		}

		if page > 1 {
			records = nil
		}

		return &drest.ListResult{Records: records, Meta: meta}
	}

	meta.TotalPages = (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start >= total {
		return &drest.ListResult{Records: nil, Meta: meta}
	}

	end := start + perPage
	if end > total {
		end = total
	}

	if page < meta.TotalPages {
		next := page + 1
		meta.NextPage = &next
	}

	return &drest.ListResult{Records: records[start:end], Meta: meta}
}
