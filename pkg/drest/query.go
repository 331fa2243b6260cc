package drest

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dynamic-rest/drest-go/internal/constants"
)

// FilterTerm is one filter or exclusion condition. Field may carry a
// dunder lookup suffix ("name__icontains"); it is passed to the server
// verbatim, no lookup validation happens client-side.
type FilterTerm struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

// QueryParams accumulates the wire parameters of a collection request.
// Filters and Excludes keep their insertion order.
type QueryParams struct {
	Page          int          `json:"page,omitempty"           yaml:"page,omitempty"`
	PerPage       int          `json:"per_page,omitempty"       yaml:"per_page,omitempty"`
	Sort          []string     `json:"sort,omitempty"           yaml:"sort,omitempty"`
	Filters       []FilterTerm `json:"filters,omitempty"        yaml:"filters,omitempty"`
	Excludes      []FilterTerm `json:"excludes,omitempty"       yaml:"excludes,omitempty"`
	Include       []string     `json:"include,omitempty"        yaml:"include,omitempty"`
	ExcludeFields []string     `json:"exclude_fields,omitempty" yaml:"exclude_fields,omitempty"`
	Extra         url.Values   `json:"extra,omitempty"          yaml:"extra,omitempty"`
}

// NewQueryParams creates empty query parameters ready for chaining.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Extra: url.Values{},
	}
}

// Clone returns a deep copy; the copy shares no slice or map backing
// with the original.
func (q *QueryParams) Clone() *QueryParams {
	if q == nil {
		return NewQueryParams()
	}

	out := &QueryParams{
		Page:          q.Page,
		PerPage:       q.PerPage,
		Sort:          slices.Clone(q.Sort),
		Filters:       slices.Clone(q.Filters),
		Excludes:      slices.Clone(q.Excludes),
		Include:       slices.Clone(q.Include),
		ExcludeFields: slices.Clone(q.ExcludeFields),
		Extra:         url.Values{},
	}

	for key, values := range q.Extra {
		out.Extra[key] = slices.Clone(values)
	}

	return out
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *QueryParams) WithPerPage(perPage int) *QueryParams {
	q.PerPage = perPage

	return q
}

// WithSort appends sort keys; a "-" prefix sorts descending.
func (q *QueryParams) WithSort(keys ...string) *QueryParams {
	q.Sort = append(q.Sort, keys...)

	return q
}

// WithFilter appends a filter condition.
func (q *QueryParams) WithFilter(field string, value any) *QueryParams {
	q.Filters = append(q.Filters, FilterTerm{Field: field, Value: value})

	return q
}

// WithExclude appends an exclusion condition.
func (q *QueryParams) WithExclude(field string, value any) *QueryParams {
	q.Excludes = append(q.Excludes, FilterTerm{Field: field, Value: value})

	return q
}

// WithIncluding appends sideload paths, dropping duplicates.
func (q *QueryParams) WithIncluding(paths ...string) *QueryParams {
	for _, path := range paths {
		if !slices.Contains(q.Include, path) {
			q.Include = append(q.Include, path)
		}
	}

	return q
}

// WithExcluding appends field exclusion paths, dropping duplicates.
func (q *QueryParams) WithExcluding(paths ...string) *QueryParams {
	for _, path := range paths {
		if !slices.Contains(q.ExcludeFields, path) {
			q.ExcludeFields = append(q.ExcludeFields, path)
		}
	}

	return q
}

// WithExtra sets a free-form parameter. Extra parameters are merged last
// and override builder-produced keys on collision.
func (q *QueryParams) WithExtra(key string, values ...string) *QueryParams {
	if q.Extra == nil {
		q.Extra = url.Values{}
	}

	q.Extra[key] = slices.Clone(values)

	return q
}

// ToValues converts the parameters to their wire form.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}

	if len(q.Sort) > 0 {
		values.Set("sort", strings.Join(q.Sort, ","))
	}

	for _, term := range q.Filters {
		for _, value := range termValues(term.Value) {
			values.Add(term.Field, value)
		}
	}

	for _, term := range q.Excludes {
		key := fmt.Sprintf("exclude[%s]", term.Field)
		for _, value := range termValues(term.Value) {
			values.Add(key, value)
		}
	}

	for _, path := range q.Include {
		values.Add("include[]", path)
	}

	for _, path := range q.ExcludeFields {
		values.Add("exclude[]", path)
	}

	for key, extra := range q.Extra {
		values.Del(key)

		for _, value := range extra {
			values.Add(key, value)
		}
	}

	return values
}

// termValues renders a filter value as its wire strings. Slice values
// emit one string per element for repeated parameters.
func termValues(value any) []string {
	switch v := value.(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, Stringify(item))
		}

		return out
	case []int:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, strconv.Itoa(item))
		}

		return out
	default:
		return []string{Stringify(value)}
	}
}

// Query binds accumulated parameters to a resource handle. Chaining
// methods return a new Query sharing no state with the receiver, and
// perform no I/O; only terminal methods talk to the server.
type Query struct {
	api    ResourceAPI
	params *QueryParams
}

// NewQuery creates an empty query over the given resource.
func NewQuery(api ResourceAPI) *Query {
	return &Query{
		api:    api,
		params: NewQueryParams(),
	}
}

// fork copies the query so the returned chain owns its parameters.
func (q *Query) fork() *Query {
	return &Query{
		api:    q.api,
		params: q.params.Clone(),
	}
}

// Params returns a copy of the accumulated parameters.
func (q *Query) Params() *QueryParams {
	return q.params.Clone()
}

// Filter adds a filter condition ("name", "name__icontains", ...).
func (q *Query) Filter(field string, value any) *Query {
	next := q.fork()
	next.params.WithFilter(field, value)

	return next
}

// Exclude adds an exclusion condition, the negation of Filter.
func (q *Query) Exclude(field string, value any) *Query {
	next := q.fork()
	next.params.WithExclude(field, value)

	return next
}

// Sort adds sort keys; a "-" prefix sorts descending.
func (q *Query) Sort(keys ...string) *Query {
	next := q.fork()
	next.params.WithSort(keys...)

	return next
}

// Including requests sideloaded relations ("events.*", "location").
// Repeat additions of the same path are dropped.
func (q *Query) Including(paths ...string) *Query {
	next := q.fork()
	next.params.WithIncluding(paths...)

	return next
}

// Excluding drops fields from the response. Repeat additions of the
// same path are dropped.
func (q *Query) Excluding(paths ...string) *Query {
	next := q.fork()
	next.params.WithExcluding(paths...)

	return next
}

// Extra sets a free-form query parameter, overriding builder-produced
// keys on collision.
func (q *Query) Extra(key string, values ...string) *Query {
	next := q.fork()
	next.params.WithExtra(key, values...)

	return next
}

// Page pins the page cursor.
func (q *Query) Page(page int) *Query {
	next := q.fork()
	next.params.WithPage(page)

	return next
}

// PerPage pins the page size.
func (q *Query) PerPage(perPage int) *Query {
	next := q.fork()
	next.params.WithPerPage(perPage)

	return next
}

// GetByID fetches a single record by primary key, carrying the
// accumulated include/exclude parameters.
func (q *Query) GetByID(ctx context.Context, id string) (*Record, error) {
	return q.api.Get(ctx, id, q.params.Clone())
}

// AllRecords walks every page and returns the concatenated records in
// server order.
func (q *Query) AllRecords(ctx context.Context) ([]*Record, error) {
	fields, err := FetchAllRecords(ctx, q.api, q.params.Clone(), nil)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(fields))
	for _, f := range fields {
		records = append(records, q.api.NewRecord(f))
	}

	return records, nil
}

// First returns the first matching record, requesting a single-record
// page. An empty result is ErrDoesNotExist.
func (q *Query) First(ctx context.Context) (*Record, error) {
	params := q.params.Clone()
	params.PerPage = constants.SinglePerPage

	if params.Page == 0 {
		params.Page = 1
	}

	result, err := q.api.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("first of %s: %w", q.api.Name(), err)
	}

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("first of %s: %w", q.api.Name(), ErrDoesNotExist)
	}

	return q.api.NewRecord(result.Records[0]), nil
}

// MapBy fetches all records and keys them by the stringified value of
// keyField ("id" when empty). Duplicate keys keep the last record seen.
func (q *Query) MapBy(ctx context.Context, keyField string) (map[string]*Record, error) {
	if keyField == "" {
		keyField = IDField
	}

	records, err := q.AllRecords(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Record, len(records))
	for _, record := range records {
		out[Stringify(record.Get(keyField))] = record
	}

	return out, nil
}

// Count returns the server-reported total for the query, fetching a
// single-record page for its meta block. Responses without counters
// fall back to the fetched record count.
func (q *Query) Count(ctx context.Context) (int, error) {
	params := q.params.Clone()
	params.PerPage = constants.SinglePerPage

	if params.Page == 0 {
		params.Page = 1
	}

	result, err := q.api.List(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", q.api.Name(), err)
	}

	if result.Meta != nil {
		return result.Meta.TotalResults, nil
	}

	return len(result.Records), nil
}
