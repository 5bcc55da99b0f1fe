package catalog

import (
	"context"
	"errors"
	"iter"

	"github.com/mopinion/mopinion-go/api"
	"github.com/mopinion/mopinion-go/types"
)

// FeedbackIterator walks the feedback of a dataset or report page by page,
// decoding each page into a types.FeedbackPage.
type FeedbackIterator struct {
	pages *api.PageIterator
}

// Feedback returns an iterator over the feedback of dataset or report id.
// opts may carry a Query (for example a limit or date filter) and a
// verbosity other than quiet.
func (c *Catalog) Feedback(kind types.ResourceName, id int, opts api.RequestOptions) (*FeedbackIterator, error) {
	if err := checkFeedbackKind(kind); err != nil {
		return nil, err
	}

	if opts.Method == "" {
		opts.Method = c.opts.Method
	}

	pages, err := c.client.ResourcePages(api.ResourceLocator{
		Resource:    kind,
		ResourceID:  api.ID(id),
		SubResource: types.SubResourceFeedback,
	}, opts)
	if err != nil {
		return nil, err
	}

	return &FeedbackIterator{pages: pages}, nil
}

// Next returns the next page of feedback, or api.ErrIterationExhausted once
// the last page has been returned. A page whose next link cannot be followed
// is returned together with the error.
func (it *FeedbackIterator) Next(ctx context.Context) (*types.FeedbackPage, error) {
	resp, err := it.pages.Next(ctx)
	if resp == nil {
		return nil, err
	}

	page, decodeErr := DecodeFeedbackPage(resp)
	if decodeErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, decodeErr
	}

	return page, err
}

// Pages exposes the underlying page iterator.
func (it *FeedbackIterator) Pages() *api.PageIterator {
	return it.pages
}

// All yields every feedback entry across all pages. Iteration stops at the
// first error, which is yielded once.
func (it *FeedbackIterator) All(ctx context.Context) iter.Seq2[types.Feedback, error] {
	return func(yield func(types.Feedback, error) bool) {
		for {
			page, err := it.Next(ctx)
			if errors.Is(err, api.ErrIterationExhausted) {
				return
			}

			if page != nil {
				for _, entry := range page.Feedback {
					if !yield(entry, nil) {
						return
					}
				}
			}

			if err != nil {
				yield(types.Feedback{}, err)
				return
			}
		}
	}
}

// DecodeFeedbackPage decodes one feedback listing response.
func DecodeFeedbackPage(resp *api.Response) (*types.FeedbackPage, error) {
	m, err := resp.Map()
	if err != nil {
		return nil, err
	}

	page := &types.FeedbackPage{}

	meta, err := resp.Meta()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		page.Meta = *meta
	}

	if err := Decode(Records(m), &page.Feedback); err != nil {
		return nil, err
	}

	return page, nil
}
