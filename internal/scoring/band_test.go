package scoring

import "testing"

func unitsFromAnswers(correct []string) []GradingUnit {
	units := make([]GradingUnit, 0, len(correct))
	for i, ans := range correct {
		units = append(units, GradingUnit{ID: uint(i + 1), CorrectAnswer: ans})
	}
	return units
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		value AnswerValue
		want  string
	}{
		{name: "plain letter", value: Scalar("B"), want: "b"},
		{name: "sequence takes first", value: Sequence("b", "x"), want: "b"},
		{name: "surrounding whitespace", value: Scalar(" B "), want: "b"},
		{name: "first char only", value: Scalar("b2"), want: "b"},
		{name: "lowercase preserved", value: Scalar("c"), want: "c"},
		{name: "absent", value: AnswerValue{}, want: ""},
		{name: "empty string", value: Scalar(""), want: ""},
		{name: "whitespace only", value: Scalar("   "), want: ""},
		{name: "empty sequence", value: Sequence(), want: ""},
		{name: "sequence with empty first", value: Sequence("", "b"), want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.value); got != tc.want {
				t.Fatalf("Normalize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestComputeAutoScore(t *testing.T) {
	tests := []struct {
		name    string
		correct []string
		answers AnswerMap
		want    float64
	}{
		{
			name:    "no gradable units",
			correct: nil,
			answers: AnswerMap{"q_1": Scalar("a")},
			want:    0.0,
		},
		{
			name:    "all correct is band nine",
			correct: []string{"a", "b", "c", "d"},
			answers: AnswerMap{
				"q_1": Scalar("A"),
				"q_2": Scalar(" b "),
				"q_3": Scalar("c"),
				"q_4": Sequence("d", "a"),
			},
			want: 9.0,
		},
		{
			name:    "all incorrect is band zero",
			correct: []string{"a", "b"},
			answers: AnswerMap{"q_1": Scalar("b"), "q_2": Scalar("a")},
			want:    0.0,
		},
		{
			name:    "missing answers count as incorrect",
			correct: []string{"a", "b", "c", "d"},
			answers: AnswerMap{"q_1": Scalar("a"), "q_2": Scalar("b")},
			want:    5.0,
		},
		{
			// 1/3 correct: 33.33% -> raw 3.333 -> nearest half is 3.5.
			name:    "one of three rounds up",
			correct: []string{"a", "b", "c"},
			answers: AnswerMap{"q_1": Scalar("a")},
			want:    3.5,
		},
		{
			// 2/3 correct: 66.67% -> raw 6.667 -> nearest half is 6.5.
			name:    "two of three rounds down",
			correct: []string{"a", "b", "c"},
			answers: AnswerMap{"q_1": Scalar("a"), "q_2": Scalar("b")},
			want:    6.5,
		},
		{
			// 1/8 correct: 12.5% -> raw 1.25, an exact .25 tie. Half-up
			// rounding lands on 1.5.
			name:    "exact quarter tie rounds half up",
			correct: []string{"a", "b", "c", "d", "a", "b", "c", "d"},
			answers: AnswerMap{"q_1": Scalar("a")},
			want:    1.5,
		},
		{
			name:    "seven of ten is band seven",
			correct: []string{"a", "b", "c", "a", "b", "c", "a", "b", "c", "a"},
			answers: AnswerMap{
				"q_1": Scalar("a"),
				"q_2": Scalar("b"),
				"q_3": Scalar("c"),
				"q_4": Scalar("a"),
				"q_5": Scalar("b"),
				"q_6": Scalar("c"),
				"q_7": Scalar("a"),
				"q_8": Scalar("x"),
				"q_9": Scalar("x"),
			},
			want: 7.0,
		},
		{
			name:    "empty sequence treated as absent",
			correct: []string{"a"},
			answers: AnswerMap{"q_1": Sequence()},
			want:    0.0,
		},
		{
			// An empty correct answer only matches an equally empty token.
			name:    "missing correct answer matches empty submission",
			correct: []string{""},
			answers: AnswerMap{"q_1": Scalar("  ")},
			want:    9.0,
		},
		{
			name:    "missing correct answer rejects real submission",
			correct: []string{""},
			answers: AnswerMap{"q_1": Scalar("a")},
			want:    0.0,
		},
		{
			name:    "nil answer map",
			correct: []string{"a", "b"},
			answers: nil,
			want:    0.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			units := unitsFromAnswers(tc.correct)

			got := ComputeAutoScore(units, tc.answers)
			if got != tc.want {
				t.Fatalf("ComputeAutoScore() = %v, want %v", got, tc.want)
			}
			if !IsValidBand(got) {
				t.Fatalf("ComputeAutoScore() = %v, not a valid band", got)
			}

			// Pure function: a second call must agree.
			if again := ComputeAutoScore(units, tc.answers); again != got {
				t.Fatalf("ComputeAutoScore() not idempotent: %v then %v", got, again)
			}
		})
	}
}

func TestRoundToBand(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{raw: 0, want: 0},
		{raw: 1.25, want: 1.5},
		{raw: 3.333, want: 3.5},
		{raw: 6.667, want: 6.5},
		{raw: 7.0, want: 7.0},
		{raw: 8.74, want: 8.5},
		{raw: 8.75, want: 9.0},
	}

	for _, tc := range tests {
		if got := RoundToBand(tc.raw); got != tc.want {
			t.Errorf("RoundToBand(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestIsValidBand(t *testing.T) {
	for v := 0.0; v <= 9.0; v += 0.5 {
		if !IsValidBand(v) {
			t.Errorf("IsValidBand(%v) = false, want true", v)
		}
	}
	for _, v := range []float64{-0.5, 9.5, 3.25, 6.1} {
		if IsValidBand(v) {
			t.Errorf("IsValidBand(%v) = true, want false", v)
		}
	}
}
