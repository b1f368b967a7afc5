// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiarizedTranscriptText(t *testing.T) {
	tests := []struct {
		name       string
		transcript *DiarizedTranscript
		expected   string
	}{
		{
			name:       "nil transcript",
			transcript: nil,
			expected:   "",
		},
		{
			name:       "no lines",
			transcript: &DiarizedTranscript{},
			expected:   "",
		},
		{
			name: "labeled turns joined by newlines",
			transcript: &DiarizedTranscript{
				Lines: []TranscriptLine{
					{Speaker: SpeakerCoach, Text: "let's start with fractions"},
					{Speaker: SpeakerChild, Text: "okay"},
					{Speaker: SpeakerCoach, Text: "open your workbook"},
				},
			},
			expected: "COACH: let's start with fractions\nCHILD: okay\nCOACH: open your workbook",
		},
		{
			name: "fallback speaker label",
			transcript: &DiarizedTranscript{
				Lines: []TranscriptLine{
					{Speaker: SpeakerLabelFor(3), Text: "hello"},
				},
			},
			expected: "SPEAKER_3: hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.transcript.Text())
			assert.Equal(t, len(tt.expected), tt.transcript.CharLength())
		})
	}
}

func TestSpeakerLabelFor(t *testing.T) {
	assert.Equal(t, "SPEAKER_0", SpeakerLabelFor(0))
	assert.Equal(t, "SPEAKER_7", SpeakerLabelFor(7))
}
