// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

package service

import (
	"sort"
	"strings"

	"github.com/learnloop/session-intel-service/internal/domain/models"
)

// signatureSampleWords is how many of a speaker's first words feed the
// instructional-phrasing check.
const signatureSampleWords = 20

// instructionalWords are greetings and imperative verbs typical of how a
// coach opens and steers a session. Matched against lowercased,
// punctuation-trimmed signature samples.
var instructionalWords = map[string]bool{
	"hi":      true,
	"hello":   true,
	"hey":     true,
	"welcome": true,
	"let's":   true,
	"lets":    true,
	"start":   true,
	"begin":   true,
	"open":    true,
	"try":     true,
}

// DiarizeTranscript reconstructs a speaker-labeled transcript from the
// provider's flat word stream. Role assignment is heuristic: the speaker
// with the most words is assumed to be the coach and the second-most the
// child, corrected by instructional phrasing when the talk-share signal
// points the wrong way. A lone speaker id is labeled COACH; ids beyond the
// two primary roles fall back to SPEAKER_<id>.
//
// The roster is context only; the provider's speaker ids are not correlated
// with roster entries. Diarization is best-effort and never fails: at worst
// every line carries a generic speaker label.
func DiarizeTranscript(words []models.TranscriptWord, participants []models.RosterParticipant) models.DiarizedTranscript {
	result := models.DiarizedTranscript{TotalWords: len(words)}
	if len(words) == 0 {
		return result
	}

	counts := make(map[int]int)
	samples := make(map[int][]string)
	for _, word := range words {
		counts[word.SpeakerID]++
		if len(samples[word.SpeakerID]) < signatureSampleWords {
			samples[word.SpeakerID] = append(samples[word.SpeakerID], word.Text)
		}
	}

	coachID, childID, hasChild := assignSpeakerRoles(counts, samples)
	result.CoachSpeakerID = coachID
	if hasChild {
		result.ChildSpeakerID = childID
	}

	labelFor := func(speakerID int) string {
		switch {
		case speakerID == coachID:
			return models.SpeakerCoach
		case hasChild && speakerID == childID:
			return models.SpeakerChild
		default:
			return models.SpeakerLabelFor(speakerID)
		}
	}

	currentSpeaker := words[0].SpeakerID
	var currentWords []string
	for _, word := range words {
		if word.SpeakerID != currentSpeaker {
			result.Lines = append(result.Lines, models.TranscriptLine{
				Speaker: labelFor(currentSpeaker),
				Text:    strings.Join(currentWords, " "),
			})
			currentSpeaker = word.SpeakerID
			currentWords = currentWords[:0]
		}
		currentWords = append(currentWords, word.Text)
	}
	result.Lines = append(result.Lines, models.TranscriptLine{
		Speaker: labelFor(currentSpeaker),
		Text:    strings.Join(currentWords, " "),
	})

	return result
}

// assignSpeakerRoles picks the coach and child speaker ids from per-speaker
// word counts and signature samples. Coaches talk more on average, so the
// top talker starts as the coach; the assignment is swapped when the child
// candidate's sample sounds more instructional than the coach candidate's,
// which rescues the quiet coach talking to a chatty child.
func assignSpeakerRoles(counts map[int]int, samples map[int][]string) (coachID, childID int, hasChild bool) {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	coachID = ids[0]
	if len(ids) < 2 {
		return coachID, 0, false
	}

	childID = ids[1]
	if instructionalScore(samples[childID]) > instructionalScore(samples[coachID]) {
		coachID, childID = childID, coachID
	}

	return coachID, childID, true
}

// instructionalScore counts how many words of a signature sample match the
// instructional vocabulary.
func instructionalScore(sample []string) int {
	score := 0
	for _, word := range sample {
		normalized := strings.ToLower(strings.Trim(word, ".,!?;:\""))
		if instructionalWords[normalized] {
			score++
		}
	}
	return score
}
