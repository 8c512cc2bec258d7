/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghpr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v75/github"
)

const (
	// maxFiles caps how many changed files are collected per pull
	// request.
	maxFiles = 200
	// maxCommits caps how many commit messages are collected per pull
	// request.
	maxCommits = 50
)

// PullRequest is an immutable snapshot of one pull request, fetched
// once per run.
type PullRequest struct {
	Number       int
	Title        string
	Body         string
	Author       string
	MergedBy     string
	Merged       bool
	Labels       []string
	Additions    int
	Deletions    int
	ChangedFiles int
	HTMLURL      string
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Filename  string
	Additions int
	Deletions int
	Changes   int
}

// Get fetches the pull request snapshot. Merged reports whether the
// pull request carries a merge timestamp.
func (c *Client) Get(ctx context.Context, number int) (*PullRequest, error) {
	pr, _, err := c.inner.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching PR #%d: %w", number, err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		if name := l.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	return &PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		MergedBy:     pr.GetMergedBy().GetLogin(),
		Merged:       pr.MergedAt != nil,
		Labels:       labels,
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		HTMLURL:      pr.GetHTMLURL(),
	}, nil
}

// ListChangedFiles returns the files touched by the pull request,
// capped at 200 entries.
func (c *Client) ListChangedFiles(ctx context.Context, number int) ([]ChangedFile, error) {
	files, err := paginate(ctx, maxFiles,
		func(ctx context.Context, opt *github.ListOptions) ([]*github.CommitFile, *github.Response, error) {
			return c.inner.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opt)
		},
		func(f *github.CommitFile) (ChangedFile, bool) {
			return ChangedFile{
				Filename:  f.GetFilename(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
			}, true
		})
	if err != nil {
		return nil, fmt.Errorf("listing changed files for PR #%d: %w", number, err)
	}
	return files, nil
}

// ListCommitMessages returns the non-empty commit messages on the pull
// request, whitespace-trimmed, capped at 50 entries.
func (c *Client) ListCommitMessages(ctx context.Context, number int) ([]string, error) {
	msgs, err := paginate(ctx, maxCommits,
		func(ctx context.Context, opt *github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
			return c.inner.PullRequests.ListCommits(ctx, c.owner, c.repo, number, opt)
		},
		func(rc *github.RepositoryCommit) (string, bool) {
			msg := strings.TrimSpace(rc.GetCommit().GetMessage())
			return msg, msg != ""
		})
	if err != nil {
		return nil, fmt.Errorf("listing commits for PR #%d: %w", number, err)
	}
	return msgs, nil
}

// Comment posts an issue comment on the pull request.
func (c *Client) Comment(ctx context.Context, number int, body string) error {
	_, _, err := c.inner.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("commenting on PR #%d: %w", number, err)
	}
	return nil
}
