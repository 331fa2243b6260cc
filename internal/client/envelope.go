package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// DREST servers envelope response payloads under the resource name,
// next to an optional "meta" block carrying pagination counters:
//
//	{"users": [...], "meta": {"page": 1, ...}}
//	{"user": {...}}
//
// The helpers below unwrap both shapes. Bare arrays and bare objects
// (unenveloped servers) are accepted as-is.

// unpackList decodes a collection response body into records and
// pagination counters.
func unpackList(body []byte, resource string) ([]drest.Fields, *drest.Meta, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		var records []drest.Fields
		if arrErr := json.Unmarshal(body, &records); arrErr != nil {
			return nil, nil, fmt.Errorf("decoding %s response: %w", resource, err)
		}

		return records, nil, nil
	}

	meta := takeMeta(envelope)

	payload, ok := pickPayload(envelope, resource)
	if !ok {
		return []drest.Fields{}, meta, nil
	}

	var records []drest.Fields
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, nil, fmt.Errorf("decoding %s records: %w", resource, err)
	}

	return records, meta, nil
}

// unpackSingle decodes a single-record response body. Objects carrying
// an id or _meta key at the top level are taken to be the record itself
// rather than an envelope around one.
func unpackSingle(body []byte, resource string) (drest.Fields, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", resource, err)
	}

	_, hasID := envelope[drest.IDField]
	_, hasMeta := envelope[drest.MetaFieldKey]

	if hasID || hasMeta {
		var fields drest.Fields
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", resource, err)
		}

		return fields, nil
	}

	takeMeta(envelope)

	payload, ok := pickPayload(envelope, resource)
	if !ok {
		return drest.Fields{}, nil
	}

	var fields drest.Fields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", resource, err)
	}

	return fields, nil
}

// takeMeta extracts and removes the pagination block from an envelope.
// A missing or malformed block yields nil, which ends pagination.
func takeMeta(envelope map[string]json.RawMessage) *drest.Meta {
	raw, ok := envelope[drest.MetaKey]
	if !ok {
		return nil
	}

	delete(envelope, drest.MetaKey)

	meta := &drest.Meta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil
	}

	return meta
}

// pickPayload selects the envelope key carrying the payload: the key
// matching the resource name case-insensitively, else the
// lexicographically first remaining key. Singular envelope keys
// ("user" for resource "users") land on the latter rule.
func pickPayload(envelope map[string]json.RawMessage, resource string) (json.RawMessage, bool) {
	for key, value := range envelope {
		if strings.EqualFold(key, resource) {
			return value, true
		}
	}

	if len(envelope) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(envelope))
	for key := range envelope {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return envelope[keys[0]], true
}

// hydrateRecord prepares one decoded record for use: the primary key
// advertised in its _meta block wins over a bare id field, and nested
// relation objects hydrate into bound Records.
func (r *resourceClient) hydrateRecord(fields drest.Fields) drest.Fields {
	if meta, ok := fields[drest.MetaFieldKey].(map[string]any); ok {
		if id, hasID := meta[drest.IDField]; hasID {
			fields[drest.IDField] = id
		}
	}

	for key, value := range fields {
		if key == drest.MetaFieldKey {
			continue
		}

		fields[key] = r.hydrateValue(value)
	}

	return fields
}

// hydrateValue recursively binds sideloaded relations inside a decoded
// value. Objects carrying a _meta block with a type and id become
// Records of the named resource.
func (r *resourceClient) hydrateValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return r.hydrateObject(typed)
	case []any:
		for i, item := range typed {
			typed[i] = r.hydrateValue(item)
		}

		return typed
	default:
		return value
	}
}

func (r *resourceClient) hydrateObject(obj map[string]any) any {
	meta, ok := obj[drest.MetaFieldKey].(map[string]any)
	if !ok {
		return obj
	}

	name, _ := meta["type"].(string)
	id, hasID := meta[drest.IDField]

	if name == "" || !hasID {
		return obj
	}

	target := r
	if !strings.EqualFold(name, r.name) {
		target = r.client.handle(name)
	}

	obj[drest.IDField] = id

	for key, value := range obj {
		if key == drest.MetaFieldKey {
			continue
		}

		obj[key] = target.hydrateValue(value)
	}

	return target.NewRecord(drest.Fields(obj))
}
