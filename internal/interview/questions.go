package interview

import (
	"sort"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty never fails; anything unrecognized becomes medium.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender selects the interviewer avatar. Unknown values become male.
func ParseGender(s string) Gender {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g
	default:
		return GenderMale
	}
}

type Question struct {
	ID                  int    `json:"id"`
	Text                string `json:"text"`
	RevealOffsetSeconds int    `json:"reveal_offset_seconds"`
}

// Each tier is ordered by RevealOffsetSeconds.
var questionBank = map[Difficulty][]Question{
	DifficultyEasy: {
		{ID: 1, Text: "Tell me a little about yourself.", RevealOffsetSeconds: 5},
		{ID: 2, Text: "Why are you interested in this position?", RevealOffsetSeconds: 20},
		{ID: 3, Text: "What are your greatest strengths?", RevealOffsetSeconds: 35},
		{ID: 4, Text: "Where do you see yourself in five years?", RevealOffsetSeconds: 50},
	},
	DifficultyMedium: {
		{ID: 1, Text: "Walk me through a project you are proud of and the role you played in it.", RevealOffsetSeconds: 5},
		{ID: 2, Text: "Describe a time you disagreed with a teammate. How did you resolve it?", RevealOffsetSeconds: 20},
		{ID: 3, Text: "Tell me about a mistake you made at work and what you learned from it.", RevealOffsetSeconds: 35},
		{ID: 4, Text: "How do you prioritize when several deadlines land in the same week?", RevealOffsetSeconds: 50},
	},
	DifficultyHard: {
		{ID: 1, Text: "Describe the most complex problem you have solved. What made it hard?", RevealOffsetSeconds: 5},
		{ID: 2, Text: "Tell me about a time you had to influence a decision without any formal authority.", RevealOffsetSeconds: 20},
		{ID: 3, Text: "A critical release is failing an hour before launch. Walk me through your next steps.", RevealOffsetSeconds: 35},
		{ID: 4, Text: "What would your previous manager say is your biggest area for growth, and what are you doing about it?", RevealOffsetSeconds: 50},
	},
}

// Questions returns a copy of the bank for d. Unknown tiers resolve to medium.
func Questions(d Difficulty) []Question {
	qs, ok := questionBank[d]
	if !ok {
		qs = questionBank[DifficultyMedium]
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}

// ActiveQuestion picks the last question whose reveal offset has been reached.
// qs must be ordered by offset. The bool is false before the first offset.
func ActiveQuestion(qs []Question, elapsed int) (Question, bool) {
	// first index whose offset is still in the future
	i := sort.Search(len(qs), func(i int) bool {
		return qs[i].RevealOffsetSeconds > elapsed
	})
	if i == 0 {
		return Question{}, false
	}
	return qs[i-1], true
}

// RevealedCount is the number of questions shown by the given elapsed time.
func RevealedCount(qs []Question, elapsed int) int {
	return sort.Search(len(qs), func(i int) bool {
		return qs[i].RevealOffsetSeconds > elapsed
	})
}
