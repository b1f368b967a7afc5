// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package utils provides small shared helpers with no domain knowledge.
package utils

// CoalesceString returns the first non-empty string from the given arguments.
func CoalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
