package drest

import (
	"context"
	"fmt"

	"github.com/dynamic-rest/drest-go/internal/constants"
)

// ListClient fetches one page of a collection. ResourceAPI satisfies it.
type ListClient interface {
	List(ctx context.Context, params *QueryParams) (*ListResult, error)
}

// PaginationOptions controls automatic page walking.
type PaginationOptions struct {
	// PageSize overrides per_page for every request when positive.
	PageSize int

	// MaxPages bounds the walk; a server still advertising more pages
	// at the bound is a protocol error.
	MaxPages int
}

// DefaultPaginationOptions returns the default pagination behavior.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		MaxPages: constants.DefaultMaxPages,
	}
}

// PageIterator walks a collection page by page.
type PageIterator struct {
	ctx     context.Context
	client  ListClient
	params  *QueryParams
	page    int
	fetched int
	hasNext bool
}

// NewPageIterator creates an iterator starting at the params' page
// (first page when unset).
func NewPageIterator(ctx context.Context, client ListClient, params *QueryParams) *PageIterator {
	params = params.Clone()
	if params.Page == 0 {
		params.Page = 1
	}

	return &PageIterator{
		ctx:     ctx,
		client:  client,
		params:  params,
		page:    params.Page,
		hasNext: true,
	}
}

// HasNext reports whether another page is available. It is true before
// the first fetch.
func (it *PageIterator) HasNext() bool {
	return it.hasNext
}

// PagesFetched returns how many pages have been fetched so far.
func (it *PageIterator) PagesFetched() int {
	return it.fetched
}

// Next fetches the next page of records.
func (it *PageIterator) Next() ([]Fields, error) {
	if !it.hasNext {
		return nil, ErrNoMoreItems
	}

	it.params.Page = it.page

	result, err := it.client.List(it.ctx, it.params)
	if err != nil {
		it.hasNext = false

		return nil, fmt.Errorf("fetching page %d: %w", it.page, err)
	}

	it.fetched++

	// An empty page terminates regardless of what meta advertises.
	if len(result.Records) == 0 || !result.Meta.HasNextAfter(it.page) {
		it.hasNext = false

		return result.Records, nil
	}

	if result.Meta.NextPage != nil {
		it.page = *result.Meta.NextPage
	} else {
		it.page++
	}

	return result.Records, nil
}

// All fetches every remaining page and concatenates the records in
// server order.
func (it *PageIterator) All() ([]Fields, error) {
	var all []Fields

	for it.hasNext {
		records, err := it.Next()
		if err != nil {
			return nil, err
		}

		all = append(all, records...)
	}

	return all, nil
}

// ForEach calls fn for every remaining record, stopping on the first
// error.
func (it *PageIterator) ForEach(fn func(Fields) error) error {
	for it.hasNext {
		records, err := it.Next()
		if err != nil {
			return err
		}

		for _, record := range records {
			err = fn(record)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// FetchAllRecords walks every page of the collection and returns the
// concatenated records. A server still advertising further pages once
// MaxPages have been fetched fails with ErrProtocol.
func FetchAllRecords(ctx context.Context, client ListClient, params *QueryParams, opts *PaginationOptions) ([]Fields, error) {
	if opts == nil {
		opts = DefaultPaginationOptions()
	}

	params = params.Clone()
	if opts.PageSize > 0 {
		params.PerPage = opts.PageSize
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = constants.DefaultMaxPages
	}

	iterator := NewPageIterator(ctx, client, params)

	var all []Fields

	for iterator.HasNext() {
		if iterator.PagesFetched() >= maxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages without terminating: %w", maxPages, ErrProtocol)
		}

		records, err := iterator.Next()
		if err != nil {
			return nil, err
		}

		all = append(all, records...)
	}

	return all, nil
}

// PageResult is one page delivered by StreamRecords.
type PageResult struct {
	Records []Fields
	Err     error
}

// StreamRecords walks the collection in a goroutine and delivers pages
// over a channel. The channel closes after the last page or the first
// error; an error, including the MaxPages protocol violation, arrives
// as the final PageResult.
func StreamRecords(ctx context.Context, client ListClient, params *QueryParams, opts *PaginationOptions) <-chan PageResult {
	results := make(chan PageResult, constants.SmallBufferSize)

	go func() {
		defer close(results)

		if opts == nil {
			opts = DefaultPaginationOptions()
		}

		params := params.Clone()
		if opts.PageSize > 0 {
			params.PerPage = opts.PageSize
		}

		maxPages := opts.MaxPages
		if maxPages <= 0 {
			maxPages = constants.DefaultMaxPages
		}

		iterator := NewPageIterator(ctx, client, params)

		for iterator.HasNext() {
			if iterator.PagesFetched() >= maxPages {
				emit(ctx, results, PageResult{Err: fmt.Errorf("pagination exceeded %d pages without terminating: %w", maxPages, ErrProtocol)})

				return
			}

			records, err := iterator.Next()
			if err != nil {
				emit(ctx, results, PageResult{Err: err})

				return
			}

			if !emit(ctx, results, PageResult{Records: records}) {
				return
			}
		}
	}()

	return results
}

func emit(ctx context.Context, results chan<- PageResult, result PageResult) bool {
	select {
	case results <- result:
		return true
	case <-ctx.Done():
		return false
	}
}
