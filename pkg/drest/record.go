package drest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Record is one resource instance: a field map bound to the resource
// handle that produced it. Absent fields read as nil, never an error.
// A Record is not safe for concurrent mutation.
type Record struct {
	api    ResourceAPI
	fields Fields
}

// NewRecord binds a field map to a resource handle. A map without an id
// is an unsaved record; Save will create it.
func NewRecord(api ResourceAPI, fields Fields) *Record {
	return &Record{
		api:    api,
		fields: fields.Copy(),
	}
}

// Resource returns the handle this record belongs to.
func (r *Record) Resource() ResourceAPI {
	return r.api
}

// ID returns the stringified primary key, or "" for unsaved records.
func (r *Record) ID() string {
	value, ok := r.fields[IDField]
	if !ok || value == nil {
		return ""
	}

	return Stringify(value)
}

// Get returns a field value, nil when absent.
func (r *Record) Get(name string) any {
	return r.fields[name]
}

// Lookup returns a field value and whether it is present.
func (r *Record) Lookup(name string) (any, bool) {
	value, ok := r.fields[name]

	return value, ok
}

// GetString returns the stringified field value, "" when absent or nil.
func (r *Record) GetString(name string) string {
	value, ok := r.fields[name]
	if !ok || value == nil {
		return ""
	}

	return Stringify(value)
}

// GetRecord returns a hydrated relation, nil when the field is absent
// or not a record.
func (r *Record) GetRecord(name string) *Record {
	related, _ := r.fields[name].(*Record)

	return related
}

// Has reports whether the field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]

	return ok
}

// Set stores a field value.
func (r *Record) Set(name string, value any) {
	if r.fields == nil {
		r.fields = Fields{}
	}

	r.fields[name] = value
}

// Fields returns a copy of the field map.
func (r *Record) Fields() Fields {
	return r.fields.Copy()
}

// Extract evaluates a JSONPath expression ("$.address.city",
// "$.groups[0].name") over the field map, seeing through hydrated
// relations.
func (r *Record) Extract(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("extracting: %w", ErrInvalidFieldPath)
	}

	raw, err := json.Marshal(r.fields)
	if err != nil {
		return nil, fmt.Errorf("marshaling record fields: %w", err)
	}

	var doc any

	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("decoding record fields: %w", err)
	}

	value, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("extracting %q: %w: %w", path, ErrInvalidFieldPath, err)
	}

	return value, nil
}

// Save persists the record: records without an id are created, records
// with an id are written back whole. On success the record's fields are
// replaced with the server's response.
func (r *Record) Save(ctx context.Context) error {
	var (
		saved *Record
		err   error
	)

	if id := r.ID(); id == "" {
		saved, err = r.api.Create(ctx, r.wireFields())
	} else {
		saved, err = r.api.Update(ctx, id, r.wireFields())
	}

	if err != nil {
		return err
	}

	r.fields = saved.fields

	return nil
}

// Reload refetches the record by id and replaces its fields.
func (r *Record) Reload(ctx context.Context) error {
	id := r.ID()
	if id == "" {
		return fmt.Errorf("reloading %s record: %w", r.api.Name(), ErrDoesNotExist)
	}

	fresh, err := r.api.Get(ctx, id, nil)
	if err != nil {
		return err
	}

	r.fields = fresh.fields

	return nil
}

// Delete removes the record on the server and clears the local id; the
// remaining fields can be saved again as a new record.
func (r *Record) Delete(ctx context.Context) error {
	id := r.ID()
	if id == "" {
		return fmt.Errorf("deleting %s record: %w", r.api.Name(), ErrDoesNotExist)
	}

	err := r.api.Delete(ctx, id)
	if err != nil {
		return err
	}

	delete(r.fields, IDField)

	return nil
}

// MarshalJSON emits the field map; hydrated relations emit their own
// field maps recursively.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// wireFields renders the field map for transmission. Hydrated relations
// collapse to their primary keys, matching what the server expects on
// writes. Underscore-prefixed bookkeeping fields ("_meta") stay local.
func (r *Record) wireFields() Fields {
	out := make(Fields, len(r.fields))

	for key, value := range r.fields {
		if strings.HasPrefix(key, "_") {
			continue
		}

		out[key] = wireValue(value)
	}

	return out
}

func wireValue(value any) any {
	switch v := value.(type) {
	case *Record:
		id, ok := v.Lookup(IDField)
		if !ok {
			return nil
		}

		return id
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, wireValue(item))
		}

		return out
	default:
		return value
	}
}
