package drest_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dynamic-rest/drest-go/pkg/drest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockResource implements ResourceAPI over canned pages and items,
// recording how terminal methods drive it.
type MockResource struct {
	ResourceName string
	Pages        map[int]*drest.ListResult
	Items        map[string]drest.Fields
	NextID       string
	Err          error

	GetCalls    int
	ListCalls   int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
	LastParams  *drest.QueryParams
}

func (m *MockResource) Name() string { return m.ResourceName }

func (m *MockResource) Get(_ context.Context, id string, params *drest.QueryParams) (*drest.Record, error) {
	m.GetCalls++
	m.LastParams = params.Clone()

	if m.Err != nil {
		return nil, m.Err
	}

	fields, ok := m.Items[id]
	if !ok {
		return nil, drest.ErrDoesNotExist
	}

	return drest.NewRecord(m, fields), nil
}

func (m *MockResource) List(_ context.Context, params *drest.QueryParams) (*drest.ListResult, error) {
	m.ListCalls++
	m.LastParams = params.Clone()

	if m.Err != nil {
		return nil, m.Err
	}

	page := 1
	if params != nil && params.Page > 0 {
		page = params.Page
	}

	result, ok := m.Pages[page]
	if !ok {
		return &drest.ListResult{}, nil
	}

	return result, nil
}

func (m *MockResource) Create(_ context.Context, fields drest.Fields) (*drest.Record, error) {
	m.CreateCalls++

	if m.Err != nil {
		return nil, m.Err
	}

	stored := fields.Copy()
	if drest.Stringify(stored[drest.IDField]) == "" {
		stored[drest.IDField] = m.NextID
	}

	if m.Items == nil {
		m.Items = map[string]drest.Fields{}
	}

	m.Items[drest.Stringify(stored[drest.IDField])] = stored.Copy()

	return drest.NewRecord(m, stored), nil
}

func (m *MockResource) Update(_ context.Context, id string, fields drest.Fields) (*drest.Record, error) {
	m.UpdateCalls++

	if m.Err != nil {
		return nil, m.Err
	}

	if _, ok := m.Items[id]; !ok {
		return nil, drest.ErrDoesNotExist
	}

	stored := fields.Copy()
	stored[drest.IDField] = id
	m.Items[id] = stored.Copy()

	return drest.NewRecord(m, stored), nil
}

func (m *MockResource) Delete(_ context.Context, id string) error {
	m.DeleteCalls++

	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.Items[id]; !ok {
		return drest.ErrDoesNotExist
	}

	delete(m.Items, id)

	return nil
}

func (m *MockResource) NewRecord(fields drest.Fields) *drest.Record {
	return drest.NewRecord(m, fields)
}

func (m *MockResource) All() *drest.Query { return drest.NewQuery(m) }

func (m *MockResource) Filter(field string, value any) *drest.Query {
	return m.All().Filter(field, value)
}

func (m *MockResource) Exclude(field string, value any) *drest.Query {
	return m.All().Exclude(field, value)
}

func (m *MockResource) Sort(keys ...string) *drest.Query { return m.All().Sort(keys...) }

func (m *MockResource) Including(paths ...string) *drest.Query { return m.All().Including(paths...) }

func (m *MockResource) Excluding(paths ...string) *drest.Query { return m.All().Excluding(paths...) }

func (m *MockResource) Extra(key string, values ...string) *drest.Query {
	return m.All().Extra(key, values...)
}

func (m *MockResource) First(ctx context.Context) (*drest.Record, error) {
	return m.All().First(ctx)
}

func (m *MockResource) MapBy(ctx context.Context, keyField string) (map[string]*drest.Record, error) {
	return m.All().MapBy(ctx, keyField)
}

//nolint:funlen // Test functions can be longer for detailed testing
func TestQueryParams_ToValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   *drest.QueryParams
		expected url.Values
	}{
		{
			name:     "empty params",
			params:   drest.NewQueryParams(),
			expected: url.Values{},
		},
		{
			name: "with pagination",
			params: &drest.QueryParams{
				Page:    2,
				PerPage: 50,
			},
			expected: url.Values{
				"page":     []string{"2"},
				"per_page": []string{"50"},
			},
		},
		{
			name: "with sort keys joined",
			params: &drest.QueryParams{
				Sort: []string{"name", "-created_at"},
			},
			expected: url.Values{
				"sort": []string{"name,-created_at"},
			},
		},
		{
			name: "with filters",
			params: &drest.QueryParams{
				Filters: []drest.FilterTerm{
					{Field: "name__icontains", Value: "ann"},
					{Field: "age__gt", Value: 30},
				},
			},
			expected: url.Values{
				"name__icontains": []string{"ann"},
				"age__gt":         []string{"30"},
			},
		},
		{
			name: "with list-valued filter",
			params: &drest.QueryParams{
				Filters: []drest.FilterTerm{
					{Field: "id__in", Value: []int{1, 2, 3}},
					{Field: "role__in", Value: []any{"admin", "staff"}},
				},
			},
			expected: url.Values{
				"id__in":   []string{"1", "2", "3"},
				"role__in": []string{"admin", "staff"},
			},
		},
		{
			name: "with excludes",
			params: &drest.QueryParams{
				Excludes: []drest.FilterTerm{
					{Field: "status", Value: "archived"},
					{Field: "age__lt", Value: 18},
				},
			},
			expected: url.Values{
				"exclude[status]":  []string{"archived"},
				"exclude[age__lt]": []string{"18"},
			},
		},
		{
			name: "with field selection",
			params: &drest.QueryParams{
				Include:       []string{"location.*", "groups"},
				ExcludeFields: []string{"permissions"},
			},
			expected: url.Values{
				"include[]": []string{"location.*", "groups"},
				"exclude[]": []string{"permissions"},
			},
		},
		{
			name: "extra overrides built params",
			params: &drest.QueryParams{
				PerPage: 10,
				Extra:   url.Values{"per_page": []string{"100"}},
			},
			expected: url.Values{
				"per_page": []string{"100"},
			},
		},
		{
			name: "with all options",
			params: &drest.QueryParams{
				Page:          3,
				PerPage:       25,
				Sort:          []string{"-created_at", "name"},
				Filters:       []drest.FilterTerm{{Field: "status", Value: "active"}},
				Excludes:      []drest.FilterTerm{{Field: "role", Value: "bot"}},
				Include:       []string{"location.*"},
				ExcludeFields: []string{"permissions"},
				Extra:         url.Values{"format": []string{"json"}},
			},
			expected: url.Values{
				"page":          []string{"3"},
				"per_page":      []string{"25"},
				"sort":          []string{"-created_at,name"},
				"status":        []string{"active"},
				"exclude[role]": []string{"bot"},
				"include[]":     []string{"location.*"},
				"exclude[]":     []string{"permissions"},
				"format":        []string{"json"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := tt.params.ToValues()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestQueryParams_Builders(t *testing.T) {
	t.Parallel()
	t.Run("chaining methods", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithPage(3).
			WithPerPage(25).
			WithSort("-age").
			WithFilter("name__istartswith", "a").
			WithExclude("disabled", true).
			WithIncluding("location.*").
			WithExcluding("permissions").
			WithExtra("format", "json")

		values := params.ToValues()

		assert.Equal(t, "3", values.Get("page"))
		assert.Equal(t, "25", values.Get("per_page"))
		assert.Equal(t, "-age", values.Get("sort"))
		assert.Equal(t, "a", values.Get("name__istartswith"))
		assert.Equal(t, "true", values.Get("exclude[disabled]"))
		assert.Equal(t, "location.*", values.Get("include[]"))
		assert.Equal(t, "permissions", values.Get("exclude[]"))
		assert.Equal(t, "json", values.Get("format"))
	})

	t.Run("WithSort appends", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithSort("name").
			WithSort("-age", "id")

		assert.Equal(t, []string{"name", "-age", "id"}, params.Sort)
	})

	t.Run("WithFilter appends repeatable terms", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithFilter("name", "ann").
			WithFilter("name", "bob")

		assert.Len(t, params.Filters, 2)
		assert.Equal(t, []string{"ann", "bob"}, params.ToValues()["name"])
	})

	t.Run("WithIncluding drops duplicates", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithIncluding("location", "groups").
			WithIncluding("groups", "events.*")

		assert.Equal(t, []string{"location", "groups", "events.*"}, params.Include)
	})

	t.Run("WithExcluding drops duplicates", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithExcluding("permissions").
			WithExcluding("permissions", "audit_log")

		assert.Equal(t, []string{"permissions", "audit_log"}, params.ExcludeFields)
	})

	t.Run("WithExtra replaces", func(t *testing.T) {
		t.Parallel()

		params := drest.NewQueryParams().
			WithExtra("format", "json").
			WithExtra("format", "yaml")

		assert.Equal(t, []string{"yaml"}, params.Extra["format"])
	})
}

func TestQueryParams_Clone(t *testing.T) {
	t.Parallel()
	t.Run("copies share no backing state", func(t *testing.T) {
		t.Parallel()

		original := drest.NewQueryParams().
			WithSort("name").
			WithFilter("status", "active").
			WithExtra("format", "json")

		clone := original.Clone()
		clone.WithSort("-age").
			WithFilter("role", "admin").
			WithExtra("format", "yaml")

		assert.Equal(t, []string{"name"}, original.Sort)
		assert.Len(t, original.Filters, 1)
		assert.Equal(t, []string{"json"}, original.Extra["format"])

		assert.Equal(t, []string{"name", "-age"}, clone.Sort)
		assert.Len(t, clone.Filters, 2)
		assert.Equal(t, []string{"yaml"}, clone.Extra["format"])
	})

	t.Run("nil clones to empty params", func(t *testing.T) {
		t.Parallel()

		var params *drest.QueryParams

		clone := params.Clone()
		require.NotNil(t, clone)
		assert.Equal(t, url.Values{}, clone.ToValues())
	})
}

func TestNewQueryParams(t *testing.T) {
	t.Parallel()

	params := drest.NewQueryParams()

	assert.NotNil(t, params)
	assert.NotNil(t, params.Extra)
	assert.Equal(t, 0, params.Page)
	assert.Equal(t, 0, params.PerPage)
	assert.Nil(t, params.Sort)
	assert.Nil(t, params.Filters)
	assert.Nil(t, params.Excludes)
	assert.Nil(t, params.Include)
	assert.Nil(t, params.ExcludeFields)
}

func TestQuery_Chaining(t *testing.T) {
	t.Parallel()
	t.Run("chains fork instead of sharing state", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{ResourceName: "users"}
		base := api.All()

		byName := base.Filter("name", "ann")
		byAge := base.Filter("age__gt", 30).Exclude("disabled", true)

		assert.Empty(t, base.Params().Filters)
		assert.Equal(t, url.Values{"name": []string{"ann"}}, byName.Params().ToValues())
		assert.Equal(t, url.Values{
			"age__gt":           []string{"30"},
			"exclude[disabled]": []string{"true"},
		}, byAge.Params().ToValues())
	})

	t.Run("chaining order does not change the wire form", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{ResourceName: "users"}

		first := api.Filter("status", "active").Sort("-age").Including("location.*")
		second := api.Including("location.*").Sort("-age").Filter("status", "active")

		assert.Equal(t, first.Params().ToValues(), second.Params().ToValues())
	})

	t.Run("no request leaves before a terminal", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{ResourceName: "users"}

		query := api.Filter("name__icontains", "a").
			Exclude("disabled", true).
			Sort("-created_at").
			Including("groups").
			Excluding("permissions").
			Extra("format", "json").
			Page(2).
			PerPage(10)

		assert.Equal(t, 0, api.ListCalls)
		assert.Equal(t, 0, api.GetCalls)

		_, err := query.AllRecords(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, api.ListCalls)
	})
}

//nolint:funlen // Test functions can be longer for detailed testing
func TestQuery_Terminals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("GetByID carries accumulated params", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Items: map[string]drest.Fields{
				"7": {"id": "7", "name": "ann"},
			},
		}

		record, err := api.Including("location.*").GetByID(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "7", record.ID())
		assert.Equal(t, 1, api.GetCalls)
		assert.Equal(t, []string{"location.*"}, api.LastParams.Include)
	})

	t.Run("AllRecords walks pages in server order", func(t *testing.T) {
		t.Parallel()

		nextPage := 2
		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {
					Records: []drest.Fields{{"id": 1}, {"id": 2}},
					Meta:    &drest.Meta{Page: 1, TotalPages: 2, TotalResults: 3, NextPage: &nextPage},
				},
				2: {
					Records: []drest.Fields{{"id": 3}},
					Meta:    &drest.Meta{Page: 2, TotalPages: 2, TotalResults: 3},
				},
			},
		}

		records, err := api.All().AllRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "1", records[0].ID())
		assert.Equal(t, "2", records[1].ID())
		assert.Equal(t, "3", records[2].ID())
		assert.Equal(t, 2, api.ListCalls)
	})

	t.Run("First requests a single-record page", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {Records: []drest.Fields{{"id": 1, "name": "ann"}}},
			},
		}

		record, err := api.Sort("name").First(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", record.ID())
		assert.Equal(t, 1, api.LastParams.Page)
		assert.Equal(t, 1, api.LastParams.PerPage)
	})

	t.Run("First of an empty result is ErrDoesNotExist", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{ResourceName: "users"}

		_, err := api.Filter("name", "nobody").First(ctx)
		require.ErrorIs(t, err, drest.ErrDoesNotExist)
		assert.ErrorContains(t, err, "first of users")
	})

	t.Run("First surfaces list failures", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		api := &MockResource{ResourceName: "users", Err: boom}

		_, err := api.All().First(ctx)
		require.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "first of users")
	})

	t.Run("MapBy keys records by field", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {Records: []drest.Fields{
					{"id": 1, "name": "ann"},
					{"id": 2, "name": "bob"},
				}},
			},
		}

		byID, err := api.All().MapBy(ctx, "")
		require.NoError(t, err)
		require.Len(t, byID, 2)
		assert.Equal(t, "ann", byID["1"].GetString("name"))

		byName, err := api.All().MapBy(ctx, "name")
		require.NoError(t, err)
		require.Len(t, byName, 2)
		assert.Equal(t, "2", byName["bob"].ID())
	})

	t.Run("MapBy keeps the last record on duplicate keys", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {Records: []drest.Fields{
					{"id": 1, "role": "admin"},
					{"id": 2, "role": "admin"},
				}},
			},
		}

		byRole, err := api.All().MapBy(ctx, "role")
		require.NoError(t, err)
		require.Len(t, byRole, 1)
		assert.Equal(t, "2", byRole["admin"].ID())
	})

	t.Run("Count prefers the server total", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {
					Records: []drest.Fields{{"id": 1}},
					Meta:    &drest.Meta{Page: 1, PerPage: 1, TotalPages: 42, TotalResults: 42},
				},
			},
		}

		count, err := api.Filter("status", "active").Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, count)
		assert.Equal(t, 1, api.ListCalls)
		assert.Equal(t, 1, api.LastParams.PerPage)
	})

	t.Run("Count falls back to the fetched length", func(t *testing.T) {
		t.Parallel()

		api := &MockResource{
			ResourceName: "users",
			Pages: map[int]*drest.ListResult{
				1: {Records: []drest.Fields{{"id": 1}, {"id": 2}}},
			},
		}

		count, err := api.All().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}
