/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changelog

import (
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// Marker returns the hidden token written as the final block of a
// section. Its presence on a page is the source of truth for "this PR
// is already logged here".
func Marker(number int) string {
	return fmt.Sprintf("[LOGGED-PR-ID:%d]", number)
}

// AlreadyLogged reports whether any of texts contains the hidden
// marker or the human-readable "PR #<n>" needle for the given PR
// number.
func AlreadyLogged(texts []string, number int) bool {
	marker := Marker(number)
	needle := fmt.Sprintf("PR #%d", number)
	for _, t := range texts {
		if strings.Contains(t, needle) || strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// SectionBlocks renders one changelog section: a heading naming the
// repo and PR, a paragraph linking to it, the summary blocks, a
// divider, and a trailing paragraph holding only the hidden marker.
// The order is fixed; the marker must land on the page for
// AlreadyLogged to find it later.
func SectionBlocks(repo string, number int, title, url, summary string) []notionapi.Block {
	heading := fmt.Sprintf("%s • PR #%d: %s", repo, number, title)
	blocks := []notionapi.Block{
		&notionapi.Heading2Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading2),
			Heading2: notionapi.Heading{
				RichText: []notionapi.RichText{richText(heading)},
			},
		},
		&notionapi.ParagraphBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
			Paragraph: notionapi.Paragraph{
				RichText: []notionapi.RichText{richText("Link: "), richLink(url)},
			},
		},
	}
	blocks = append(blocks, summaryBlocks(summary)...)
	return append(blocks,
		&notionapi.DividerBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeDivider),
			Divider:    notionapi.Divider{},
		},
		paragraph(Marker(number)),
	)
}

// summaryBlocks converts generated text into a paragraph for the first
// non-empty line and one bullet item per subsequent line, stripping a
// leading bullet glyph from each.
func summaryBlocks(summary string) []notionapi.Block {
	var lines []string
	for _, l := range strings.Split(summary, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	blocks := []notionapi.Block{paragraph(lines[0])}
	for _, l := range lines[1:] {
		blocks = append(blocks, bullet(stripBulletGlyph(l)))
	}
	return blocks
}

func stripBulletGlyph(line string) string {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}

func basicBlock(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{
		Object: notionapi.ObjectTypeBlock,
		Type:   t,
	}
}

func richText(content string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}
}

// richLink renders the URL as its own link text.
func richLink(url string) notionapi.RichText {
	rt := richText(url)
	rt.Text.Link = &notionapi.Link{Url: url}
	return rt
}

func paragraph(content string) *notionapi.ParagraphBlock {
	return &notionapi.ParagraphBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
		Paragraph: notionapi.Paragraph{
			RichText: []notionapi.RichText{richText(content)},
		},
	}
}

func bullet(content string) *notionapi.BulletedListItemBlock {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeBulletedListItem),
		BulletedListItem: notionapi.ListItem{
			RichText: []notionapi.RichText{richText(content)},
		},
	}
}
