// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package constants

// Session classification thresholds. The attendance analyzer and the
// outcome classifier share these; changing one changes business behavior.
const (
	// MinSessionParticipants is the minimum roster size for a session to
	// count as plausibly held.
	MinSessionParticipants = 2

	// ValidSessionMinutes is the minimum duration for a valid session.
	ValidSessionMinutes = 10

	// ShortSessionMinutes is the cutoff below which a held session is
	// classified as cut off rather than merely brief.
	ShortSessionMinutes = 5

	// MinTranscriptChars is the minimum diarized transcript length for a
	// long recording to count as usably transcribed.
	MinTranscriptChars = 100
)
