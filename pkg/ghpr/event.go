/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghpr

import (
	"encoding/json"
	"os"
)

// PRNumberFromEvent extracts the pull request number from a GitHub
// Actions event payload file. It returns 0 when path is empty, the
// file is unreadable, or the payload carries no pull_request number.
func PRNumberFromEvent(path string) int {
	if path == "" {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var event struct {
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return 0
	}
	return event.PullRequest.Number
}
