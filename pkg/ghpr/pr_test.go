/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghpr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v75/github"
)

// mockTransport intercepts HTTP calls and serves canned responses
// keyed by path (plus query string when present).
type mockTransport struct {
	responses     map[string]mockResponse
	calls         []string
	roundTripFunc func(*http.Request) (*http.Response, error)
}

type mockResponse struct {
	statusCode int
	body       string
	nextPage   int
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if m.roundTripFunc != nil {
		return m.roundTripFunc(req)
	}

	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path = path + "?" + req.URL.RawQuery
	}
	m.calls = append(m.calls, req.Method+" "+path)

	resp, ok := m.responses[path]
	if !ok {
		return &http.Response{
			StatusCode: 404,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
		}, nil
	}

	header := make(http.Header)
	if resp.nextPage > 0 {
		header.Set("Link", fmt.Sprintf(`<https://api.github.com%s?page=%d>; rel="next"`, req.URL.Path, resp.nextPage))
	}

	return &http.Response{
		StatusCode: resp.statusCode,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Header:     header,
	}, nil
}

func testClient(transport http.RoundTripper) *Client {
	return &Client{
		inner: github.NewClient(&http.Client{Transport: transport}),
		owner: "testowner",
		repo:  "testrepo",
	}
}

// filesJSON renders n changed-file entries starting at index start.
func filesJSON(t *testing.T, start, n int) string {
	t.Helper()
	files := make([]*github.CommitFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, &github.CommitFile{
			Filename:  github.Ptr(fmt.Sprintf("pkg/file%03d.go", start+i)),
			Additions: github.Ptr(1),
			Deletions: github.Ptr(1),
			Changes:   github.Ptr(2),
		})
	}
	b, err := json.Marshal(files)
	if err != nil {
		t.Fatalf("marshaling files: %v", err)
	}
	return string(b)
}

// commitsJSON renders one commit entry per message.
func commitsJSON(t *testing.T, messages ...string) string {
	t.Helper()
	commits := make([]*github.RepositoryCommit, 0, len(messages))
	for _, m := range messages {
		commits = append(commits, &github.RepositoryCommit{
			Commit: &github.Commit{Message: github.Ptr(m)},
		})
	}
	b, err := json.Marshal(commits)
	if err != nil {
		t.Fatalf("marshaling commits: %v", err)
	}
	return string(b)
}

func TestClient_Get(t *testing.T) {
	mergedAt := github.Timestamp{Time: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)}

	tests := []struct {
		name       string
		pr         *github.PullRequest
		statusCode int
		want       *PullRequest
		wantErr    bool
	}{
		{
			name: "merged PR with full metadata",
			pr: &github.PullRequest{
				Number:       github.Ptr(42),
				Title:        github.Ptr("Add retry logic"),
				Body:         github.Ptr("Retries transient failures."),
				User:         &github.User{Login: github.Ptr("alice")},
				MergedBy:     &github.User{Login: github.Ptr("bob")},
				MergedAt:     &mergedAt,
				Labels:       []*github.Label{{Name: github.Ptr("bug")}, {Name: github.Ptr("")}},
				Additions:    github.Ptr(10),
				Deletions:    github.Ptr(3),
				ChangedFiles: github.Ptr(2),
				HTMLURL:      github.Ptr("https://github.com/testowner/testrepo/pull/42"),
			},
			statusCode: 200,
			want: &PullRequest{
				Number:       42,
				Title:        "Add retry logic",
				Body:         "Retries transient failures.",
				Author:       "alice",
				MergedBy:     "bob",
				Merged:       true,
				Labels:       []string{"bug"},
				Additions:    10,
				Deletions:    3,
				ChangedFiles: 2,
				HTMLURL:      "https://github.com/testowner/testrepo/pull/42",
			},
		},
		{
			name: "unmerged PR has no merge timestamp",
			pr: &github.PullRequest{
				Number: github.Ptr(7),
				Title:  github.Ptr("WIP"),
				User:   &github.User{Login: github.Ptr("alice")},
			},
			statusCode: 200,
			want: &PullRequest{
				Number: 7,
				Title:  "WIP",
				Author: "alice",
				Labels: []string{},
			},
		},
		{
			name:       "API error",
			statusCode: 500,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{responses: make(map[string]mockResponse)}

			body := "{}"
			if tt.pr != nil {
				b, err := json.Marshal(tt.pr)
				if err != nil {
					t.Fatalf("marshaling PR: %v", err)
				}
				body = string(b)
			}
			number := 42
			if tt.pr != nil && tt.pr.Number != nil {
				number = *tt.pr.Number
			}
			transport.responses[fmt.Sprintf("/repos/testowner/testrepo/pulls/%d", number)] = mockResponse{
				statusCode: tt.statusCode,
				body:       body,
			}

			got, err := testClient(transport).Get(context.Background(), number)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClient_ListChangedFiles(t *testing.T) {
	t.Run("single short page", func(t *testing.T) {
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/files?per_page=100": {
				statusCode: 200,
				body: `[
					{"filename": "cmd/main.go", "additions": 5, "deletions": 2, "changes": 7},
					{"filename": "README.md", "additions": 1, "deletions": 0, "changes": 1}
				]`,
			},
		}}

		got, err := testClient(transport).ListChangedFiles(context.Background(), 42)
		if err != nil {
			t.Fatalf("ListChangedFiles() error = %v", err)
		}
		want := []ChangedFile{
			{Filename: "cmd/main.go", Additions: 5, Deletions: 2, Changes: 7},
			{Filename: "README.md", Additions: 1, Deletions: 0, Changes: 1},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ListChangedFiles() mismatch (-want +got):\n%s", diff)
		}
		if len(transport.calls) != 1 {
			t.Errorf("expected 1 request, got %d: %v", len(transport.calls), transport.calls)
		}
	})

	t.Run("stops at the cap without fetching further pages", func(t *testing.T) {
		// Two full pages reach the 200-file cap; the advertised third
		// page must never be requested.
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/files?per_page=100": {
				statusCode: 200,
				body:       filesJSON(t, 0, 100),
				nextPage:   2,
			},
			"/repos/testowner/testrepo/pulls/42/files?page=2&per_page=100": {
				statusCode: 200,
				body:       filesJSON(t, 100, 100),
				nextPage:   3,
			},
		}}

		got, err := testClient(transport).ListChangedFiles(context.Background(), 42)
		if err != nil {
			t.Fatalf("ListChangedFiles() error = %v", err)
		}
		if len(got) != 200 {
			t.Errorf("ListChangedFiles() returned %d files, want 200", len(got))
		}
		if len(transport.calls) != 2 {
			t.Errorf("expected 2 requests, got %d: %v", len(transport.calls), transport.calls)
		}
	})

	t.Run("aborts on page failure", func(t *testing.T) {
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/files?per_page=100": {
				statusCode: 200,
				body:       filesJSON(t, 0, 100),
				nextPage:   2,
			},
			"/repos/testowner/testrepo/pulls/42/files?page=2&per_page=100": {
				statusCode: 500,
				body:       "{}",
			},
		}}

		if _, err := testClient(transport).ListChangedFiles(context.Background(), 42); err == nil {
			t.Error("ListChangedFiles() error = nil, want failure from second page")
		}
	})
}

func TestClient_ListCommitMessages(t *testing.T) {
	t.Run("trims whitespace and skips empty messages", func(t *testing.T) {
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/commits?per_page=100": {
				statusCode: 200,
				body:       commitsJSON(t, "  fix bug  ", "", "add feature\n\nlong body"),
			},
		}}

		got, err := testClient(transport).ListCommitMessages(context.Background(), 42)
		if err != nil {
			t.Fatalf("ListCommitMessages() error = %v", err)
		}
		want := []string{"fix bug", "add feature\n\nlong body"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ListCommitMessages() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops at the cap mid page", func(t *testing.T) {
		messages := make([]string, 100)
		for i := range messages {
			messages[i] = fmt.Sprintf("commit %d", i)
		}
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/commits?per_page=100": {
				statusCode: 200,
				body:       commitsJSON(t, messages...),
				nextPage:   2,
			},
		}}

		got, err := testClient(transport).ListCommitMessages(context.Background(), 42)
		if err != nil {
			t.Fatalf("ListCommitMessages() error = %v", err)
		}
		if len(got) != 50 {
			t.Errorf("ListCommitMessages() returned %d messages, want 50", len(got))
		}
		if len(transport.calls) != 1 {
			t.Errorf("expected 1 request, got %d: %v", len(transport.calls), transport.calls)
		}
	})

	t.Run("walks pages when empties keep the count low", func(t *testing.T) {
		empty := make([]string, 100)
		transport := &mockTransport{responses: map[string]mockResponse{
			"/repos/testowner/testrepo/pulls/42/commits?per_page=100": {
				statusCode: 200,
				body:       commitsJSON(t, empty...),
				nextPage:   2,
			},
			"/repos/testowner/testrepo/pulls/42/commits?page=2&per_page=100": {
				statusCode: 200,
				body:       commitsJSON(t, "only real commit"),
			},
		}}

		got, err := testClient(transport).ListCommitMessages(context.Background(), 42)
		if err != nil {
			t.Fatalf("ListCommitMessages() error = %v", err)
		}
		want := []string{"only real commit"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ListCommitMessages() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestClient_Comment(t *testing.T) {
	var capturedPath, capturedBody string
	transport := &mockTransport{}
	transport.roundTripFunc = func(req *http.Request) (*http.Response, error) {
		if req.Method != "POST" {
			t.Errorf("unexpected method %s", req.Method)
		}
		capturedPath = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		capturedBody = string(b)
		return &http.Response{
			StatusCode: 201,
			Body:       io.NopCloser(strings.NewReader(`{"id": 1}`)),
			Header:     make(http.Header),
		}, nil
	}

	if err := testClient(transport).Comment(context.Background(), 42, "Changelog entry added."); err != nil {
		t.Fatalf("Comment() error = %v", err)
	}

	if want := "/repos/testowner/testrepo/issues/42/comments"; capturedPath != want {
		t.Errorf("Comment() path = %q, want %q", capturedPath, want)
	}

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal([]byte(capturedBody), &payload); err != nil {
		t.Fatalf("unmarshaling comment payload: %v", err)
	}
	if want := "Changelog entry added."; payload.Body != want {
		t.Errorf("Comment() body = %q, want %q", payload.Body, want)
	}
}

func TestClient_CommentError(t *testing.T) {
	transport := &mockTransport{responses: make(map[string]mockResponse)}
	// No canned response: the mock answers 404 and the client must
	// surface it.
	if err := testClient(transport).Comment(context.Background(), 42, "body"); err == nil {
		t.Error("Comment() error = nil, want failure")
	}
}
