/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package useragent stamps outbound HTTP requests with the product
// User-Agent so GitHub and Notion traffic is attributable to this tool.
package useragent

import (
	"fmt"
	"net/http"
)

// Product is the User-Agent product token reported on every outbound
// request.
const Product = "mergelog"

// Version is combined with Product to form the User-Agent value. It is
// overridden at release time via -ldflags.
var Version = "devel"

// Agent returns the full User-Agent value.
func Agent() string {
	return fmt.Sprintf("%s/%s", Product, Version)
}

// NewTransport wraps rt so that every request it carries reports the
// product User-Agent. A nil rt wraps http.DefaultTransport.
func NewTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &uaTransport{RoundTripper: rt, agent: Agent()}
}

type uaTransport struct {
	http.RoundTripper
	agent string
}

func (t *uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r.Header.Set("User-Agent", t.agent)
	return t.RoundTripper.RoundTrip(r)
}
