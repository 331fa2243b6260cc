package drest

import (
	"fmt"
	"strconv"
)

// Fields holds one record's attributes as decoded JSON. Values keep the
// types produced by encoding/json (string, float64, bool, nil,
// map[string]any, []any); hydrated relations appear as *Record values.
type Fields map[string]any

// Copy returns a shallow copy of the field map.
func (f Fields) Copy() Fields {
	if f == nil {
		return Fields{}
	}

	out := make(Fields, len(f))
	for key, value := range f {
		out[key] = value
	}

	return out
}

// Meta carries the pagination counters of a list envelope.
type Meta struct {
	Page         int  `json:"page,omitempty"          yaml:"page,omitempty"`
	PerPage      int  `json:"per_page,omitempty"      yaml:"per_page,omitempty"`
	TotalPages   int  `json:"total_pages,omitempty"   yaml:"total_pages,omitempty"`
	TotalResults int  `json:"total_results,omitempty" yaml:"total_results,omitempty"`
	NextPage     *int `json:"next_page,omitempty"     yaml:"next_page,omitempty"`
}

// HasNextAfter reports whether the server advertises a page after page.
// A nil Meta means the response carried no counters and terminates the walk.
func (m *Meta) HasNextAfter(page int) bool {
	if m == nil {
		return false
	}

	if m.NextPage != nil {
		return *m.NextPage > page
	}

	return m.TotalPages > 0 && page < m.TotalPages
}

// ListResult is one decoded page of a collection endpoint.
type ListResult struct {
	Records []Fields `json:"records" yaml:"records"`
	Meta    *Meta    `json:"meta"    yaml:"meta"`
}

// MetaKey is the envelope key reserved for pagination counters; it is
// never unpacked as record data.
const MetaKey = "meta"

// MetaFieldKey is the per-record key DREST servers use for type and id
// markers on embedded relations.
const MetaFieldKey = "_meta"

// IDField is the canonical primary key field of a record.
const IDField = "id"

// Stringify renders a primary key or filter value the way it appears on
// the wire. JSON numbers lose their trailing ".0"; everything else goes
// through fmt.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
