/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ghpr reads merged pull requests from GitHub and posts
// comments back to them. It exposes a bounded snapshot of a pull
// request (metadata, changed files, commit messages) sized for
// downstream summarization.
package ghpr

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/mergelog/mergelog/pkg/httpratelimit"
	"github.com/mergelog/mergelog/pkg/useragent"
)

// Client talks to a single GitHub repository.
type Client struct {
	inner *github.Client
	owner string
	repo  string
}

// New returns a Client for the given repository, authenticating every
// request with token. Requests are paced and retried through the rate
// limit transport.
func New(ctx context.Context, owner, repo, token string) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	oauthClient := oauth2.NewClient(ctx, tokenSource)

	httpClient := &http.Client{
		Transport: useragent.NewTransport(httpratelimit.NewTransport(oauthClient.Transport)),
	}

	return &Client{
		inner: github.NewClient(httpClient),
		owner: owner,
		repo:  repo,
	}
}

// Repo returns the "owner/name" identifier this client is bound to.
func (c *Client) Repo() string {
	return fmt.Sprintf("%s/%s", c.owner, c.repo)
}

// ParseRepo splits an "owner/name" repository reference into its two
// components.
func ParseRepo(s string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", s)
	}
	return owner, name, nil
}
