package api

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"
)

// PageIterator walks a paginated collection one page at a time. It is either
// active at a cursor or exhausted; the cursor only moves forward, following
// the _meta.next link of each page. An iterator cannot be restarted.
type PageIterator struct {
	client    *Client
	args      RequestArguments
	body      any
	query     url.Values
	cursor    Endpoint
	exhausted bool
	pulled    int
}

// Pages returns an iterator over the collection at path.
func (c *Client) Pages(path string, opts RequestOptions) (*PageIterator, error) {
	endpoint, err := ParseEndpoint(path)
	if err != nil {
		return nil, err
	}

	args, err := c.Arguments(opts)
	if err != nil {
		return nil, err
	}

	return c.NewPageIterator(endpoint, args, opts.Body, opts.Query)
}

// ResourcePages returns an iterator over the collection addressed by l.
func (c *Client) ResourcePages(l ResourceLocator, opts RequestOptions) (*PageIterator, error) {
	endpoint, err := BuildResourceEndpoint(l)
	if err != nil {
		return nil, err
	}

	args, err := c.Arguments(opts)
	if err != nil {
		return nil, err
	}

	return c.NewPageIterator(endpoint, args, opts.Body, opts.Query)
}

// NewPageIterator returns an iterator starting at endpoint. Quiet verbosity is
// rejected because the server then omits the _meta envelope that carries the
// cursor.
func (c *Client) NewPageIterator(endpoint Endpoint, args RequestArguments, body any, query url.Values) (*PageIterator, error) {
	if endpoint.IsZero() {
		return nil, &ValidationError{Code: CodeEndpointNotSupported, Field: "endpoint", Err: errors.New("endpoint is empty")}
	}

	args = args.normalize()
	if err := args.Validate(); err != nil {
		return nil, err
	}

	if !args.Verbosity.Paginates() {
		return nil, &ValidationError{
			Code:  CodeQuietIteration,
			Field: "verbosity",
			Value: string(args.Verbosity),
			Err:   errors.New("iteration requires verbosity normal or full"),
		}
	}

	return &PageIterator{
		client: c,
		args:   args,
		body:   body,
		query:  query,
		cursor: endpoint,
	}, nil
}

// Next fetches the page at the cursor and advances to the page the server
// links as next. Once no next page exists it returns ErrIterationExhausted.
// A failed request leaves the cursor where it was, so Next may be retried.
// When the page arrives but its next link cannot be followed, the page is
// returned together with the error and the iterator is exhausted.
func (it *PageIterator) Next(ctx context.Context) (*Response, error) {
	if it.exhausted {
		return nil, ErrIterationExhausted
	}

	resp, err := it.client.Do(ctx, it.cursor, it.args, it.body, it.query)
	if err != nil {
		return nil, err
	}

	it.pulled++

	next, err := it.nextCursor(resp)
	if err != nil {
		it.exhausted = true
		return resp, fmt.Errorf("failed to read pagination cursor from %s: %w", it.cursor, err)
	}

	if next.IsZero() {
		it.exhausted = true
	} else {
		it.cursor = next
	}

	it.client.logger.Trace("pulled page", "page", it.pulled, "next", next.String())

	return resp, nil
}

// nextCursor reads _meta.next. A missing envelope or a false, null or empty
// link ends the sequence and yields the zero Endpoint.
func (it *PageIterator) nextCursor(resp *Response) (Endpoint, error) {
	meta, err := resp.Meta()
	if err != nil {
		return Endpoint{}, err
	}

	if meta == nil || !meta.Next.Present() {
		return Endpoint{}, nil
	}

	link := string(meta.Next)

	// Absolute links must stay on the API host.
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		u, err := url.Parse(link)
		if err != nil {
			return Endpoint{}, err
		}

		base, err := url.Parse(it.client.baseURL)
		if err != nil {
			return Endpoint{}, err
		}

		if !strings.EqualFold(u.Host, base.Host) {
			return Endpoint{}, &ValidationError{
				Code: CodeEndpointNotSupported, Field: "next", Value: link,
				Err: fmt.Errorf("cursor host %q differs from %q", u.Host, base.Host),
			}
		}

		link = u.EscapedPath()
		if u.RawQuery != "" {
			link += "?" + u.RawQuery
		}
	}

	return ParseEndpoint(link)
}

// Exhausted reports whether the server has reported the last page.
func (it *PageIterator) Exhausted() bool {
	return it.exhausted
}

// Cursor returns the endpoint the next call to Next will request. It is the
// zero Endpoint once the iterator is exhausted.
func (it *PageIterator) Cursor() Endpoint {
	if it.exhausted {
		return Endpoint{}
	}

	return it.cursor
}

// Pulled returns the number of pages fetched so far.
func (it *PageIterator) Pulled() int {
	return it.pulled
}

// All adapts the iterator for range-over-func. Iteration stops after the last
// page or after the first error, which is yielded once, alongside the page
// when one was fetched.
//
//	for page, err := range it.All(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (it *PageIterator) All(ctx context.Context) iter.Seq2[*Response, error] {
	return func(yield func(*Response, error) bool) {
		for {
			resp, err := it.Next(ctx)
			if errors.Is(err, ErrIterationExhausted) {
				return
			}

			if !yield(resp, err) || err != nil {
				return
			}
		}
	}
}
