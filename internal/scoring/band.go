// Package scoring converts reading/listening submissions into IELTS-style
// band scores. Everything in the package is a pure function of its inputs:
// no persistence, no shared state, safe to call concurrently.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Band score bounds. Bands run from 0.0 to 9.0 in 0.5 steps.
const (
	MinBand = 0.0
	MaxBand = 9.0
)

// GradingUnit is the smallest gradable item of a reading or listening
// section (a subquestion). CorrectAnswer follows multiple-choice letter
// grading: case and surrounding whitespace are insignificant and only the
// first character matters.
type GradingUnit struct {
	ID            uint
	CorrectAnswer string
}

// AnswerKey returns the answer-map key for a grading unit id.
func AnswerKey(id uint) string {
	return fmt.Sprintf("q_%d", id)
}

// Normalize reduces a submitted value to a single comparable token: first
// element of a sequence, trimmed, lower-cased, first character only. Every
// input produces a token; absent or blank values produce the empty token.
func Normalize(v AnswerValue) string {
	return normalizeString(v.First())
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, r := range s {
		return string(unicode.ToLower(r))
	}
	return ""
}

// ComputeAutoScore grades a reading/listening question set against the
// submitted answers and returns the band score.
//
// Each grading unit counts toward the total; a unit is correct when the
// normalized submission equals the normalized correct answer. A missing
// answer is incorrect, never an error. An exam with no gradable units
// scores 0.0. The percentage of correct units maps onto the band scale at
// 10% per band, rounded to the nearest 0.5 half-up (see RoundToBand) and
// clamped at 9.0.
func ComputeAutoScore(units []GradingUnit, answers AnswerMap) float64 {
	total := 0
	correct := 0

	for _, unit := range units {
		total++
		submitted, ok := answers[AnswerKey(unit.ID)]
		if !ok {
			continue
		}
		if Normalize(submitted) == normalizeString(unit.CorrectAnswer) {
			correct++
		}
	}

	if total == 0 {
		return MinBand
	}

	percentage := float64(correct) / float64(total) * 100
	band := RoundToBand(percentage / 10)
	return math.Min(band, MaxBand)
}

// RoundToBand rounds a raw band value to the nearest 0.5 increment.
// Ties round half away from zero (math.Round on the doubled value), so a
// raw band of 1.25 becomes 1.5, and 3.333 becomes 3.5.
func RoundToBand(raw float64) float64 {
	return math.Round(raw*2) / 2
}

// IsValidBand reports whether v lies on the band scale: within [0, 9] and
// a multiple of 0.5.
func IsValidBand(v float64) bool {
	if v < MinBand || v > MaxBand {
		return false
	}
	doubled := v * 2
	return doubled == math.Trunc(doubled)
}
