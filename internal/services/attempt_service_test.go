package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/scoring"
	"github.com/examforge/exam-service/internal/validator"
)

type testEnv struct {
	repo      *fakeRepo
	cache     *memCache
	audio     *memAudioStore
	publisher *events.MockEventPublisher
	services  ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	cacheService := newMemCache()
	audio := newMemAudioStore()
	publisher := events.NewMockEventPublisher(testLogger())

	env := &testEnv{
		repo:      repo,
		cache:     cacheService,
		audio:     audio,
		publisher: publisher,
		services:  NewServiceManager(repo, cacheService, audio, publisher, testLogger(), validator.New()),
	}

	ctx := context.Background()
	users := []*models.User{
		{ID: "student-1", FullName: "Aida Student", Email: "aida@example.com", Role: models.RoleStudent},
		{ID: "student-2", FullName: "Bekzat Student", Email: "bekzat@example.com", Role: models.RoleStudent},
		{ID: "mentor-1", FullName: "Marat Mentor", Email: "marat@example.com", Role: models.RoleMentor},
		{ID: "admin-1", FullName: "Ava Admin", Email: "ava@example.com", Role: models.RoleAdmin},
	}
	for _, user := range users {
		require.NoError(t, repo.User().Upsert(ctx, user))
	}
	return env
}

// seedReadingExam creates an active reading exam with numQuestions
// single-letter subquestions, answers "a", "b", "c", ... cyclically.
func (env *testEnv) seedReadingExam(t *testing.T, numQuestions int) *models.Exam {
	t.Helper()
	subs := make([]models.SubQuestion, numQuestions)
	for i := range subs {
		subs[i] = models.SubQuestion{
			ID:            uint(100 + i),
			Text:          "statement",
			CorrectAnswer: string(rune('a' + i%3)),
			Position:      i,
		}
	}
	exam := &models.Exam{
		Title:       "Academic Reading Mock",
		SectionKind: models.SectionReading,
		Status:      models.ExamActive,
		Duration:    60,
		CreatedBy:   "mentor-1",
		ReadingPassages: []models.ReadingPassage{{
			ID:      1,
			Title:   "Passage 1",
			Content: "text",
			Questions: []models.Question{{
				ID:           1,
				Prompt:       "Choose the correct letter.",
				SubQuestions: subs,
			}},
		}},
	}
	require.NoError(t, env.repo.Exam().Create(context.Background(), exam))
	return exam
}

func (env *testEnv) seedSectionExam(t *testing.T, kind models.SectionKind) *models.Exam {
	t.Helper()
	exam := &models.Exam{
		Title:       "Section Mock",
		SectionKind: kind,
		Status:      models.ExamActive,
		Duration:    60,
		CreatedBy:   "mentor-1",
	}
	require.NoError(t, env.repo.Exam().Create(context.Background(), exam))
	return exam
}

func TestAttemptService_Submit_AutoScoresReading(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.seedReadingExam(t, 10)

	// Correct answers cycle a, b, c. Answer 7 of 10 correctly.
	answers := scoring.AnswerMap{}
	for i := 0; i < 10; i++ {
		key := scoring.AnswerKey(uint(100 + i))
		if i < 7 {
			answers[key] = scoring.Scalar(strings.ToUpper(string(rune('a' + i%3))))
		} else {
			answers[key] = scoring.Scalar("z")
		}
	}

	resp, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{
		ExamID:  exam.ID,
		Answers: answers,
	}, "student-1")
	require.NoError(t, err)

	assert.Equal(t, models.AttemptCompleted, resp.Status)
	require.NotNil(t, resp.ReadingScore)
	assert.Equal(t, 7.0, *resp.ReadingScore)
	require.NotNil(t, resp.TotalScore)
	assert.Equal(t, 7.0, *resp.TotalScore)
	assert.Nil(t, resp.ListeningScore)
	require.NotNil(t, resp.CompletedAt)

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventAttemptSubmitted, published[0].Type)
	assert.Equal(t, events.EventAttemptAutoScored, published[1].Type)

	scored, ok := published[1].Data.(events.AttemptAutoScoredEvent)
	require.True(t, ok)
	assert.Equal(t, 7.0, scored.Band)
	assert.Equal(t, resp.ID, scored.AttemptID)
}

func TestAttemptService_Submit_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.seedReadingExam(t, 3)

	t.Run("unknown exam", func(t *testing.T) {
		_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: 9999}, "student-1")
		assert.ErrorIs(t, err, ErrExamNotFound)
	})

	t.Run("draft exam", func(t *testing.T) {
		draft := &models.Exam{Title: "Draft", SectionKind: models.SectionReading, Status: models.ExamDraft, Duration: 60, CreatedBy: "mentor-1"}
		require.NoError(t, env.repo.Exam().Create(ctx, draft))
		_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: draft.ID}, "student-1")
		assert.ErrorIs(t, err, ErrExamNotActive)
	})

	t.Run("mentor cannot submit", func(t *testing.T) {
		_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: exam.ID}, "mentor-1")
		assert.ErrorIs(t, err, ErrOnlyStudentsCanSubmit)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: exam.ID}, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("resubmission", func(t *testing.T) {
		_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: exam.ID}, "student-1")
		require.NoError(t, err)

		_, err = env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: exam.ID}, "student-1")
		assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
		assert.True(t, IsConflict(err))
	})
}

func TestAttemptService_Submit_SpeakingAudio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.seedSectionExam(t, models.SectionSpeaking)

	resp, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{
		ExamID: exam.ID,
		Answers: scoring.AnswerMap{
			"part_1": scoring.Scalar("transcript one"),
		},
		Audio: []AudioUpload{
			{FieldName: "speaking_part_1_audio", Filename: "part1.webm", Content: strings.NewReader("audio-1")},
			{FieldName: "speaking_part_2_audio", Filename: "part2.mp3", Content: strings.NewReader("audio-2")},
			{FieldName: "background_noise", Filename: "noise.wav", Content: strings.NewReader("junk")},
		},
	}, "student-1")
	require.NoError(t, err)

	// Speaking waits for a mentor, no score is produced.
	assert.Equal(t, models.AttemptSubmitted, resp.Status)
	assert.Nil(t, resp.TotalScore)
	assert.Nil(t, resp.CompletedAt)

	require.Len(t, resp.AudioFiles, 2)
	assert.Equal(t, uint(1), resp.AudioFiles[0].PartID)
	assert.Equal(t, uint(2), resp.AudioFiles[1].PartID)

	stored, err := env.audio.Get(resp.AudioFiles[0].FileKey)
	require.NoError(t, err)
	stored.Close()

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	submitted, ok := published[0].Data.(events.AttemptSubmittedEvent)
	require.True(t, ok)
	assert.True(t, submitted.ReviewRequired)
}

func TestParseAudioPartID(t *testing.T) {
	tests := []struct {
		field  string
		wantID uint
		wantOK bool
	}{
		{"speaking_part_1_audio", 1, true},
		{"speaking_part_12_audio", 12, true},
		{"part_3_audio", 3, true},
		{"speaking_part_audio", 0, false},
		{"speaking_part_1", 0, false},
		{"notes", 0, false},
		{"_audio", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			id, ok := ParseAudioPartID(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestAttemptService_GetByID_Access(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.seedReadingExam(t, 3)

	resp, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: exam.ID}, "student-1")
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		got, err := env.services.Attempt().GetByID(ctx, resp.ID, "student-1")
		require.NoError(t, err)
		assert.Equal(t, resp.ID, got.ID)
	})

	t.Run("mentor", func(t *testing.T) {
		_, err := env.services.Attempt().GetByID(ctx, resp.ID, "mentor-1")
		require.NoError(t, err)
	})

	t.Run("other student denied", func(t *testing.T) {
		_, err := env.services.Attempt().GetByID(ctx, resp.ID, "student-2")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, err := env.services.Attempt().GetByID(ctx, 9999, "student-1")
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})
}

func TestAttemptService_ListMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	examA := env.seedReadingExam(t, 3)
	examB := env.seedSectionExam(t, models.SectionWriting)

	_, err := env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: examA.ID}, "student-1")
	require.NoError(t, err)
	_, err = env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: examB.ID}, "student-1")
	require.NoError(t, err)
	_, err = env.services.Attempt().Submit(ctx, &SubmitAttemptRequest{ExamID: examA.ID}, "student-2")
	require.NoError(t, err)

	mine, total, err := env.services.Attempt().ListMine(ctx, "student-1", repositories.AttemptFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, mine, 2)
	for _, attempt := range mine {
		assert.Equal(t, "student-1", attempt.StudentID)
		// List responses omit the answer payload.
		assert.Nil(t, attempt.Answers)
	}
}
