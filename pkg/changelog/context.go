/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changelog turns a pull request snapshot and a generated
// summary into the text context and Notion block structures that make
// up one daily changelog entry.
package changelog

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mergelog/mergelog/pkg/ghpr"
)

const (
	// topFiles is how many changed files appear in the rendered
	// context; the rest collapse into a remainder line.
	topFiles = 30
	// topCommits is how many commit first-lines appear in the rendered
	// context.
	topCommits = 20
	// commitLineRunes caps the length of each rendered commit line.
	commitLineRunes = 200
)

// BuildContext renders the bounded text block handed to the
// summarizer. Deterministic for identical inputs.
func BuildContext(repo string, pr *ghpr.PullRequest, files []ghpr.ChangedFile, commits []string) string {
	author := pr.Author
	if author == "" {
		author = "?"
	}
	mergedBy := pr.MergedBy
	if mergedBy == "" {
		mergedBy = "?"
	}
	labels := "none"
	if len(pr.Labels) > 0 {
		labels = strings.Join(pr.Labels, ", ")
	}
	body := strings.TrimSpace(pr.Body)
	if body == "" {
		body = "(no description)"
	}

	sorted := make([]ghpr.ChangedFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Changes > sorted[j].Changes })
	if len(sorted) > topFiles {
		sorted = sorted[:topFiles]
	}
	fileLines := make([]string, 0, len(sorted)+1)
	for _, f := range sorted {
		fileLines = append(fileLines, fmt.Sprintf("- %s (+%d/-%d)", f.Filename, f.Additions, f.Deletions))
	}
	if len(files) > len(sorted) {
		fileLines = append(fileLines, fmt.Sprintf("- … and %d more", len(files)-len(sorted)))
	}

	commitLines := make([]string, 0, topCommits+1)
	for _, m := range commits[:min(len(commits), topCommits)] {
		commitLines = append(commitLines, "- "+firstLine(m))
	}
	if len(commits) > topCommits {
		commitLines = append(commitLines, fmt.Sprintf("- … and %d more", len(commits)-topCommits))
	}
	commitBlock := "(none)"
	if len(commitLines) > 0 {
		commitBlock = strings.Join(commitLines, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", repo)
	fmt.Fprintf(&b, "PR #%d by %s, merged by %s\n", pr.Number, author, mergedBy)
	fmt.Fprintf(&b, "Title: %s\n", pr.Title)
	fmt.Fprintf(&b, "Labels: %s\n", labels)
	fmt.Fprintf(&b, "Stats: +%d / -%d across %d files\n", pr.Additions, pr.Deletions, pr.ChangedFiles)
	b.WriteString("\nPR Description:\n")
	b.WriteString(body)
	b.WriteString("\n\nChanged files (top):\n")
	b.WriteString(strings.Join(fileLines, "\n"))
	b.WriteString("\n\nCommit messages (top):\n")
	b.WriteString(commitBlock)
	return b.String()
}

// firstLine returns the first line of a commit message, capped at
// commitLineRunes characters.
func firstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	line = strings.TrimSuffix(line, "\r")
	if utf8.RuneCountInString(line) <= commitLineRunes {
		return line
	}
	return string([]rune(line)[:commitLineRunes])
}
