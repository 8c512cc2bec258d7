/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline drives one merged pull request through
// summarization into a Notion daily changelog entry. Runs are
// idempotent per (page, PR): a marker scan guards the append, so
// re-running for an already-logged PR is a no-op.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jomei/notionapi"
	"github.com/jonboulle/clockwork"

	"github.com/mergelog/mergelog/pkg/changelog"
	"github.com/mergelog/mergelog/pkg/ghpr"
)

// GitHub is the slice of the GitHub client the pipeline uses.
type GitHub interface {
	Repo() string
	Get(ctx context.Context, number int) (*ghpr.PullRequest, error)
	ListChangedFiles(ctx context.Context, number int) ([]ghpr.ChangedFile, error)
	ListCommitMessages(ctx context.Context, number int) ([]string, error)
	Comment(ctx context.Context, number int, body string) error
}

// Notion is the slice of the document store client the pipeline uses.
type Notion interface {
	UpsertPageForDate(ctx context.Context, date, title string) (string, error)
	PageTexts(ctx context.Context, pageID string) ([]string, error)
	AppendBlocks(ctx context.Context, pageID string, blocks []notionapi.Block) error
	PageURL(ctx context.Context, pageID string) (string, error)
}

// Summarizer generates changelog text from a rendered context.
type Summarizer interface {
	Summarize(ctx context.Context, prContext string) (string, error)
}

// Options selects the pull request and the target page for one run.
type Options struct {
	// PRNumber is the pull request to log.
	PRNumber int
	// Timezone names the IANA zone whose calendar date keys the daily
	// page.
	Timezone string
	// Date overrides the computed date (YYYY-MM-DD) when set.
	Date string
	// PageID, when set, appends to that page directly instead of the
	// date-keyed upsert, bypassing the duplicate check.
	PageID string
	// CommentBack posts a confirmation comment on the PR after a
	// successful append.
	CommentBack bool
}

// Pipeline wires the GitHub, summarizer, and Notion collaborators
// together for sequential single-PR runs.
type Pipeline struct {
	github    GitHub
	notion    Notion
	summarize Summarizer
	clock     clockwork.Clock
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock, which decides what "today" means.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New returns a Pipeline over the given collaborators.
func New(gh GitHub, store Notion, s Summarizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		github:    gh,
		notion:    store,
		summarize: s,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one pull request end to end: fetch, summarize, upsert
// the daily page, guard against duplicates, append, and optionally
// comment back. Unmerged PRs and already-logged PRs return nil after a
// log line; they are not errors.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	log := clog.FromContext(ctx)

	log.Infof("Fetching PR #%d from %s…", opts.PRNumber, p.github.Repo())
	pr, err := p.github.Get(ctx, opts.PRNumber)
	if err != nil {
		return err
	}
	if !pr.Merged {
		log.Info("PR is not merged; skipping.")
		return nil
	}

	files, err := p.github.ListChangedFiles(ctx, opts.PRNumber)
	if err != nil {
		return err
	}
	commits, err := p.github.ListCommitMessages(ctx, opts.PRNumber)
	if err != nil {
		return err
	}
	prContext := changelog.BuildContext(p.github.Repo(), pr, files, commits)

	log.Info("Calling OpenAI to generate changelog entry…")
	summary, err := p.summarize.Summarize(ctx, prContext)
	if err != nil {
		return err
	}

	blocks := changelog.SectionBlocks(p.github.Repo(), pr.Number, pr.Title, pr.HTMLURL, summary)

	pageID := opts.PageID
	var targetDate string
	if pageID == "" {
		targetDate = opts.Date
		if targetDate == "" {
			loc, err := time.LoadLocation(opts.Timezone)
			if err != nil {
				return fmt.Errorf("loading timezone %q: %w", opts.Timezone, err)
			}
			targetDate = p.clock.Now().In(loc).Format("2006-01-02")
		}

		log.Infof("Upserting Notion page for %s…", targetDate)
		pageID, err = p.notion.UpsertPageForDate(ctx, targetDate, fmt.Sprintf("Changelog %s", targetDate))
		if err != nil {
			return err
		}

		texts, err := p.notion.PageTexts(ctx, pageID)
		if err != nil {
			return err
		}
		if changelog.AlreadyLogged(texts, pr.Number) {
			log.Info("Entry already exists. Exiting.")
			return nil
		}
	} else {
		log.Infof("Appending to provided Notion page id: %s…", pageID)
	}

	log.Info("Appending new section to Notion page…")
	if err := p.notion.AppendBlocks(ctx, pageID, blocks); err != nil {
		return err
	}

	if opts.CommentBack {
		if err := p.comment(ctx, opts, pr.Number, pageID, targetDate); err != nil {
			return err
		}
	}

	log.Info("Done.")
	return nil
}

// comment posts the confirmation comment on the PR. A missing page URL
// degrades the message; a failed comment is an error.
func (p *Pipeline) comment(ctx context.Context, opts Options, number int, pageID, targetDate string) error {
	url, err := p.notion.PageURL(ctx, pageID)
	if err != nil {
		clog.FromContext(ctx).Warnf("Failed to fetch page URL, commenting without it: %v", err)
		url = ""
	}

	var body string
	switch {
	case opts.PageID != "" && url != "":
		body = fmt.Sprintf("Changelog entry added to Notion page: %s", url)
	case opts.PageID != "":
		body = "Changelog entry added to Notion (page URL unavailable)."
	case url != "":
		body = fmt.Sprintf("Changelog entry added to Notion daily page for %s (%s):\n%s", targetDate, opts.Timezone, url)
	default:
		body = fmt.Sprintf("Changelog entry added to Notion daily page for %s (URL unavailable).", targetDate)
	}
	return p.github.Comment(ctx, number, body)
}
