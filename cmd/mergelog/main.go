/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// mergelog summarizes a merged GitHub pull request with an LLM and
// appends the result to a daily Notion changelog page.
//
// Usage:
//
//	mergelog --repo=owner/name [--pr=N] [--date=YYYY-MM-DD] [--timezone=TZ] [--notion-page-id=ID]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/mergelog/mergelog/pkg/ghpr"
	"github.com/mergelog/mergelog/pkg/notionstore"
	"github.com/mergelog/mergelog/pkg/pipeline"
	"github.com/mergelog/mergelog/pkg/summarize"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = clog.WithLogger(ctx, clog.New(slog.Default().Handler()))

	// A .env file is optional; CI environments set these directly.
	_ = godotenv.Load()

	tzDefault := os.Getenv("TIMEZONE")
	if tzDefault == "" {
		tzDefault = "America/New_York"
	}

	var (
		repo     = flag.String("repo", "", "owner/name of the repository")
		prNumber = flag.Int("pr", 0, "PR number (derived from the workflow event when omitted)")
		timezone = flag.String("timezone", tzDefault, "IANA timezone used to pick the daily page date")
		date     = flag.String("date", "", "override date (YYYY-MM-DD) for the Notion page")
		pageID   = flag.String("notion-page-id", "", "append to this Notion page id instead of the date upsert")
	)
	flag.Parse()
	if *repo == "" {
		log.Fatal("--repo is required")
	}
	owner, name, err := ghpr.ParseRepo(*repo)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to parse --repo: %v", err)
	}

	var env struct {
		NotionToken      string `env:"NOTION_TOKEN, required"`
		NotionDatabaseID string `env:"NOTION_DATABASE_ID, required"`
		TitleProperty    string `env:"NOTION_TITLE_PROPERTY, default=Title"`
		DateProperty     string `env:"NOTION_DATE_PROPERTY, default=Date"`
		GitHubToken      string `env:"GITHUB_TOKEN, required"`
		GitHubEventPath  string `env:"GITHUB_EVENT_PATH"`
		OpenAIAPIKey     string `env:"OPENAI_API_KEY, required"`
		Model            string `env:"LLM_MODEL, default=gpt-4o"`
		// Any value other than "false" leaves the PR comment enabled.
		CommentOnPR string `env:"COMMENT_ON_PR, default=true"`
	}
	if err := envconfig.Process(ctx, &env); err != nil {
		clog.FatalContextf(ctx, "Failed to process environment: %v", err)
	}

	number := *prNumber
	if number == 0 {
		number = ghpr.PRNumberFromEvent(env.GitHubEventPath)
	}
	if number == 0 {
		clog.FatalContextf(ctx, "PR number not provided and could not be derived from event")
	}

	gh := ghpr.New(ctx, owner, name, env.GitHubToken)
	notion := notionstore.New(env.NotionToken, env.NotionDatabaseID, env.TitleProperty, env.DateProperty)
	summarizer, err := summarize.NewOpenAI(ctx, env.OpenAIAPIKey, env.Model)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to create summarizer: %v", err)
	}

	p := pipeline.New(gh, notion, summarizer)
	if err := p.Run(ctx, pipeline.Options{
		PRNumber:    number,
		Timezone:    *timezone,
		Date:        *date,
		PageID:      *pageID,
		CommentBack: !strings.EqualFold(env.CommentOnPR, "false"),
	}); err != nil {
		clog.FatalContextf(ctx, "Failed to publish changelog entry: %v", err)
	}
}
