package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// resourceClient implements drest.ResourceAPI for one named resource.
// Instances come out of the client registry and are shared between
// callers; all mutable state lives on the owning client.
type resourceClient struct {
	name   string
	client *Client
}

// Name implements drest.ResourceAPI.
func (r *resourceClient) Name() string {
	return r.name
}

// collectionPath returns the resource's collection endpoint. DREST
// paths always carry a trailing slash.
func (r *resourceClient) collectionPath() string {
	return "/" + r.name + "/"
}

func (r *resourceClient) itemPath(id string) string {
	return "/" + r.name + "/" + url.PathEscape(id) + "/"
}

// mocked returns the mock backend when the resource is registered in
// the client's mock set.
func (r *resourceClient) mocked() *mockBackend {
	if !r.client.mocks.Has(r.name) {
		return nil
	}

	return &mockBackend{set: r.client.mocks, resource: r.name}
}

// Get implements drest.ResourceAPI.
func (r *resourceClient) Get(ctx context.Context, id string, params *drest.QueryParams) (*drest.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("getting %s record: %w", r.name, drest.ErrMissingID)
	}

	if mock := r.mocked(); mock != nil {
		fields, err := mock.Get(id)
		if err != nil {
			return nil, fmt.Errorf("getting %s record %s: %w", r.name, id, err)
		}

		return r.NewRecord(r.hydrateRecord(fields)), nil
	}

	resp, err := r.client.httpClient.Get(ctx, r.itemPath(id), queryValues(params))
	if err != nil {
		return nil, fmt.Errorf("getting %s record %s: %w", r.name, id, err)
	}

	fields, err := unpackSingle(resp.Body, r.name)
	if err != nil {
		return nil, fmt.Errorf("getting %s record %s: %w", r.name, id, err)
	}

	return r.NewRecord(r.hydrateRecord(fields)), nil
}

// List implements drest.ResourceAPI.
func (r *resourceClient) List(ctx context.Context, params *drest.QueryParams) (*drest.ListResult, error) {
	if mock := r.mocked(); mock != nil {
		result := mock.List(params)
		for i, fields := range result.Records {
			result.Records[i] = r.hydrateRecord(fields)
		}

		return result, nil
	}

	resp, err := r.client.httpClient.Get(ctx, r.collectionPath(), queryValues(params))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.name, err)
	}

	records, meta, err := unpackList(resp.Body, r.name)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.name, err)
	}

	for i, fields := range records {
		records[i] = r.hydrateRecord(fields)
	}

	return &drest.ListResult{Records: records, Meta: meta}, nil
}

// Create implements drest.ResourceAPI.
func (r *resourceClient) Create(ctx context.Context, fields drest.Fields) (*drest.Record, error) {
	if mock := r.mocked(); mock != nil {
		return r.NewRecord(r.hydrateRecord(mock.Create(fields))), nil
	}

	resp, err := r.client.httpClient.Post(ctx, r.collectionPath(), fields)
	if err != nil {
		return nil, fmt.Errorf("creating %s record: %w", r.name, err)
	}

	stored, err := unpackSingle(resp.Body, r.name)
	if err != nil {
		return nil, fmt.Errorf("creating %s record: %w", r.name, err)
	}

	return r.NewRecord(r.hydrateRecord(stored)), nil
}

// Update implements drest.ResourceAPI.
func (r *resourceClient) Update(ctx context.Context, id string, fields drest.Fields) (*drest.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("updating %s record: %w", r.name, drest.ErrMissingID)
	}

	if mock := r.mocked(); mock != nil {
		stored, err := mock.Update(id, fields)
		if err != nil {
			return nil, fmt.Errorf("updating %s record %s: %w", r.name, id, err)
		}

		return r.NewRecord(r.hydrateRecord(stored)), nil
	}

	resp, err := r.client.httpClient.Put(ctx, r.itemPath(id), fields)
	if err != nil {
		return nil, fmt.Errorf("updating %s record %s: %w", r.name, id, err)
	}

	stored, err := unpackSingle(resp.Body, r.name)
	if err != nil {
		return nil, fmt.Errorf("updating %s record %s: %w", r.name, id, err)
	}

	return r.NewRecord(r.hydrateRecord(stored)), nil
}

// Delete implements drest.ResourceAPI.
func (r *resourceClient) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("deleting %s record: %w", r.name, drest.ErrMissingID)
	}

	if mock := r.mocked(); mock != nil {
		if err := mock.Delete(id); err != nil {
			return fmt.Errorf("deleting %s record %s: %w", r.name, id, err)
		}

		return nil
	}

	if _, err := r.client.httpClient.Delete(ctx, r.itemPath(id)); err != nil {
		return fmt.Errorf("deleting %s record %s: %w", r.name, id, err)
	}

	return nil
}

// NewRecord implements drest.ResourceAPI.
func (r *resourceClient) NewRecord(fields drest.Fields) *drest.Record {
	return drest.NewRecord(r, fields)
}

// All implements drest.ResourceAPI.
func (r *resourceClient) All() *drest.Query {
	return drest.NewQuery(r)
}

// Filter implements drest.ResourceAPI.
func (r *resourceClient) Filter(field string, value any) *drest.Query {
	return r.All().Filter(field, value)
}

// Exclude implements drest.ResourceAPI.
func (r *resourceClient) Exclude(field string, value any) *drest.Query {
	return r.All().Exclude(field, value)
}

// Sort implements drest.ResourceAPI.
func (r *resourceClient) Sort(keys ...string) *drest.Query {
	return r.All().Sort(keys...)
}

// Including implements drest.ResourceAPI.
func (r *resourceClient) Including(paths ...string) *drest.Query {
	return r.All().Including(paths...)
}

// Excluding implements drest.ResourceAPI.
func (r *resourceClient) Excluding(paths ...string) *drest.Query {
	return r.All().Excluding(paths...)
}

// Extra implements drest.ResourceAPI.
func (r *resourceClient) Extra(key string, values ...string) *drest.Query {
	return r.All().Extra(key, values...)
}

// First implements drest.ResourceAPI.
func (r *resourceClient) First(ctx context.Context) (*drest.Record, error) {
	return r.All().First(ctx)
}

// MapBy implements drest.ResourceAPI.
func (r *resourceClient) MapBy(ctx context.Context, keyField string) (map[string]*drest.Record, error) {
	return r.All().MapBy(ctx, keyField)
}

func queryValues(params *drest.QueryParams) url.Values {
	if params == nil {
		return nil
	}

	return params.ToValues()
}
