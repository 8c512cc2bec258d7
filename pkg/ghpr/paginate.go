/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghpr

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// listPageSize is the page size requested from GitHub list endpoints.
const listPageSize = 100

// paginate walks a paged GitHub list endpoint, mapping each raw item
// through extract until max items have been collected or the source
// reports no further pages. A page smaller than the requested size also
// ends the walk. extract returns false to drop an item. The first
// request error aborts the whole fetch.
func paginate[T, R any](ctx context.Context, max int,
	list func(context.Context, *github.ListOptions) ([]T, *github.Response, error),
	extract func(T) (R, bool),
) ([]R, error) {
	opt := &github.ListOptions{PerPage: listPageSize}
	var out []R
	for {
		items, resp, err := list(ctx, opt)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if r, ok := extract(item); ok {
				out = append(out, r)
			}
			if len(out) >= max {
				return out, nil
			}
		}
		if len(items) < listPageSize || resp.NextPage == 0 {
			return out, nil
		}
		opt.Page = resp.NextPage
	}
}
