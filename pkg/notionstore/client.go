/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package notionstore wraps the Notion API for one changelog database:
// date-keyed page upsert, child text retrieval, block append, and
// property-name resolution against the database's declared schema.
package notionstore

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/jomei/notionapi"

	"github.com/mergelog/mergelog/pkg/useragent"
)

// codeValidationError is Notion's error code for malformed requests,
// typically a filter or property referencing a nonexistent column.
const codeValidationError = notionapi.ErrorCode("validation_error")

// Client talks to a single Notion database and the pages beneath it.
type Client struct {
	inner      *notionapi.Client
	databaseID notionapi.DatabaseID
	resolver   *propertyResolver
}

// New returns a Client bound to one database. The configured title and
// date property names are used as-is until the database schema says
// otherwise.
func New(token, databaseID, titleProp, dateProp string) *Client {
	httpClient := &http.Client{
		Transport: useragent.NewTransport(nil),
	}
	return &Client{
		inner:      notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient)),
		databaseID: notionapi.DatabaseID(databaseID),
		resolver: &propertyResolver{
			titleProp: titleProp,
			dateProp:  dateProp,
		},
	}
}

// propertyResolver tracks which actual database properties fill the
// logical title and date roles. It starts unresolved; the first
// resolve transitions it to resolved, and invalidate forces the next
// resolve to fetch the schema again.
type propertyResolver struct {
	titleProp string
	dateProp  string
	resolved  bool
}

func (r *propertyResolver) invalidate() {
	r.resolved = false
}

// resolve fetches the database schema once and substitutes any
// configured property name the schema does not declare with the first
// property of the needed type. A failed schema fetch keeps the
// configured names; the resolver still becomes resolved so the run can
// proceed on a best-effort basis.
func (c *Client) resolve(ctx context.Context) {
	r := c.resolver
	if r.resolved {
		return
	}
	r.resolved = true

	db, err := c.inner.Database.Get(ctx, c.databaseID)
	if err != nil {
		clog.FromContext(ctx).Warnf("Failed to fetch database schema, keeping configured property names: %v", err)
		return
	}
	r.titleProp = resolveName(db.Properties, r.titleProp, notionapi.PropertyConfigTypeTitle)
	r.dateProp = resolveName(db.Properties, r.dateProp, notionapi.PropertyConfigTypeDate)
	clog.FromContext(ctx).With(
		"title_property", r.titleProp,
		"date_property", r.dateProp,
	).Debug("Resolved database properties")
}

// resolveName keeps name when the schema declares it, and otherwise
// falls back to the schema's first property of the wanted type.
// Candidates are ordered by name so the substitution is deterministic.
func resolveName(props notionapi.PropertyConfigs, name string, want notionapi.PropertyConfigType) string {
	if _, ok := props[name]; ok {
		return name
	}
	var candidates []string
	for propName, cfg := range props {
		if cfg.GetType() == want {
			candidates = append(candidates, propName)
		}
	}
	if len(candidates) == 0 {
		return name
	}
	sort.Strings(candidates)
	return candidates[0]
}

// withSchemaRetry runs op, and when it fails with a Notion validation
// error, forces one re-resolution of the property schema and retries a
// single time. A second failure is returned unchanged.
func (c *Client) withSchemaRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !isValidationError(err) {
		return err
	}
	clog.FromContext(ctx).Warnf("Validation error from Notion, re-resolving properties and retrying once: %v", err)
	c.resolver.invalidate()
	c.resolve(ctx)
	return op()
}

func isValidationError(err error) bool {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest || apiErr.Code == codeValidationError
}
