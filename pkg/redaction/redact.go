// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package redaction masks personally identifiable information before it
// reaches logs. Child and coach names and guardian emails must never be
// logged in full.
package redaction

import "strings"

// RedactEmail masks the local part of an email address, keeping only the
// first character and the domain. Strings that do not look like an email
// are fully masked.
func RedactEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return strings.Repeat("*", len(email))
	}

	local := email[:at]
	domain := email[at+1:]

	return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
}

// RedactName masks a display name, keeping the first character of each
// word so log lines stay correlatable without exposing the full name.
func RedactName(name string) string {
	if name == "" {
		return ""
	}

	words := strings.Fields(name)
	masked := make([]string, 0, len(words))
	for _, word := range words {
		runes := []rune(word)
		if len(runes) == 1 {
			masked = append(masked, string(runes[0])+".")
			continue
		}
		masked = append(masked, string(runes[0])+strings.Repeat("*", len(runes)-1))
	}

	return strings.Join(masked, " ")
}
