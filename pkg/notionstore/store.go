/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package notionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jomei/notionapi"
)

// UpsertPageForDate returns the identifier of the page whose date
// property equals date (YYYY-MM-DD), creating one with the given title
// when none exists. Find-then-create is not atomic: two runs for the
// same date racing each other can both create a page, so callers are
// expected to run one instance at a time per database.
func (c *Client) UpsertPageForDate(ctx context.Context, date, title string) (string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}

	c.resolve(ctx)

	var pageID string
	if err := c.withSchemaRetry(ctx, func() error {
		var err error
		pageID, err = c.findPageForDate(ctx, date)
		return err
	}); err != nil {
		return "", fmt.Errorf("querying pages where %q equals %s: %w", c.resolver.dateProp, date, err)
	}
	if pageID != "" {
		clog.FromContext(ctx).With("page", pageID, "date", date).Debug("Found existing page")
		return pageID, nil
	}

	if err := c.withSchemaRetry(ctx, func() error {
		var err error
		pageID, err = c.createPageForDate(ctx, date, title)
		return err
	}); err != nil {
		return "", fmt.Errorf("creating page for %s with title %q and date %q properties: %w",
			date, c.resolver.titleProp, c.resolver.dateProp, err)
	}
	clog.FromContext(ctx).With("page", pageID, "date", date).Debug("Created page")
	return pageID, nil
}

func (c *Client) findPageForDate(ctx context.Context, date string) (string, error) {
	resp, err := c.inner.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: dateEqualsFilter{
			PropertyFilter: notionapi.PropertyFilter{Property: c.resolver.dateProp},
			equals:         date,
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID.String(), nil
}

// dateEqualsFilter matches a date property against a plain YYYY-MM-DD
// value. notionapi.DateFilterCondition only holds notionapi.Date, which
// marshals as an RFC3339 timestamp; Notion compares a timestamp at
// minute precision instead of matching the whole day, so pages whose
// property holds a bare date would be missed. The embedded
// PropertyFilter satisfies notionapi.Filter.
type dateEqualsFilter struct {
	notionapi.PropertyFilter
	equals string
}

func (f dateEqualsFilter) MarshalJSON() ([]byte, error) {
	type condition struct {
		Equals string `json:"equals"`
	}
	return json.Marshal(struct {
		Property string    `json:"property"`
		Date     condition `json:"date"`
	}{f.Property, condition{f.equals}})
}

func (c *Client) createPageForDate(ctx context.Context, date, title string) (string, error) {
	page, err := c.inner.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: notionapi.Properties{
			c.resolver.dateProp: calendarDateProperty{start: date},
			c.resolver.titleProp: notionapi.TitleProperty{
				Title: []notionapi.RichText{{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: title},
				}},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return page.ID.String(), nil
}

// calendarDateProperty is a page date property carrying a plain
// YYYY-MM-DD value, so the daily page's date stays a date rather than
// the datetime notionapi.DateProperty would write.
type calendarDateProperty struct {
	start string
}

func (p calendarDateProperty) GetID() string { return "" }

func (p calendarDateProperty) GetType() notionapi.PropertyType { return notionapi.PropertyTypeDate }

func (p calendarDateProperty) MarshalJSON() ([]byte, error) {
	type value struct {
		Start string `json:"start"`
	}
	return json.Marshal(struct {
		Date value `json:"date"`
	}{value{p.start}})
}

// PageTexts returns the plain text of each direct child block of the
// page that carries rich text (headings, paragraphs, bullet items),
// following the continuation cursor until exhausted. Empty texts and
// other block kinds are skipped.
func (c *Client) PageTexts(ctx context.Context, pageID string) ([]string, error) {
	var texts []string
	pagination := &notionapi.Pagination{PageSize: 100}
	for {
		resp, err := c.inner.Block.GetChildren(ctx, notionapi.BlockID(pageID), pagination)
		if err != nil {
			return nil, fmt.Errorf("listing children of page %s: %w", pageID, err)
		}
		for _, b := range resp.Results {
			if t := blockText(b); t != "" {
				texts = append(texts, t)
			}
		}
		if !resp.HasMore {
			return texts, nil
		}
		pagination.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}

func blockText(b notionapi.Block) string {
	var rts []notionapi.RichText
	switch v := b.(type) {
	case *notionapi.Heading1Block:
		rts = v.Heading1.RichText
	case *notionapi.Heading2Block:
		rts = v.Heading2.RichText
	case *notionapi.Heading3Block:
		rts = v.Heading3.RichText
	case *notionapi.ParagraphBlock:
		rts = v.Paragraph.RichText
	case *notionapi.BulletedListItemBlock:
		rts = v.BulletedListItem.RichText
	default:
		return ""
	}
	var sb strings.Builder
	for _, rt := range rts {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// AppendBlocks appends blocks to the end of the page's children.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []notionapi.Block) error {
	if _, err := c.inner.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
		Children: blocks,
	}); err != nil {
		return fmt.Errorf("appending %d blocks to page %s: %w", len(blocks), pageID, err)
	}
	return nil
}

// PageURL fetches the page's canonical URL. Callers treat failure as
// non-fatal and fall back to a URL-less message.
func (c *Client) PageURL(ctx context.Context, pageID string) (string, error) {
	page, err := c.inner.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return "", fmt.Errorf("fetching page %s: %w", pageID, err)
	}
	return page.URL, nil
}
