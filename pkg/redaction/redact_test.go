// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package redaction

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{
			name:     "standard email",
			email:    "guardian@example.com",
			expected: "g*******@example.com",
		},
		{
			name:     "single character local part",
			email:    "a@example.com",
			expected: "a@example.com",
		},
		{
			name:     "empty string",
			email:    "",
			expected: "",
		},
		{
			name:     "no at sign",
			email:    "not-an-email",
			expected: "************",
		},
		{
			name:     "at sign first",
			email:    "@example.com",
			expected: "************",
		},
		{
			name:     "at sign last",
			email:    "guardian@",
			expected: "*********",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RedactEmail(tt.email)
			if result != tt.expected {
				t.Errorf("RedactEmail(%q) = %q, expected %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestRedactName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "first and last name",
			input:    "Maya Patel",
			expected: "M*** P****",
		},
		{
			name:     "single name",
			input:    "Maya",
			expected: "M***",
		},
		{
			name:     "single character word",
			input:    "J Doe",
			expected: "J. D**",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "extra whitespace collapses",
			input:    "  Maya   Patel  ",
			expected: "M*** P****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RedactName(tt.input)
			if result != tt.expected {
				t.Errorf("RedactName(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
