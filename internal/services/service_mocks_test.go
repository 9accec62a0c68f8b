package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/cache"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

// fakeStore is a shared in-memory backing store for the fake repositories.
type fakeStore struct {
	mu sync.Mutex

	users    map[string]*models.User
	groups   map[string]*models.Group
	exams    map[uint]*models.Exam
	attempts map[uint]*models.Attempt
	reviews  map[uint]*models.Review
	audio    map[string]*models.AttemptAudio

	nextID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*models.User),
		groups:   make(map[string]*models.Group),
		exams:    make(map[uint]*models.Exam),
		attempts: make(map[uint]*models.Attempt),
		reviews:  make(map[uint]*models.Review),
		audio:    make(map[string]*models.AttemptAudio),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func audioMapKey(attemptID, partID uint) string {
	return fmt.Sprintf("%d:%d", attemptID, partID)
}

// fakeRepo implements repositories.TransactionRepository over the store.
// Transactions are a pass-through; tests exercise service logic, not SQL.
type fakeRepo struct {
	store *fakeStore
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: newFakeStore()}
}

func (r *fakeRepo) Exam() repositories.ExamRepository       { return &fakeExamRepo{r.store} }
func (r *fakeRepo) Attempt() repositories.AttemptRepository { return &fakeAttemptRepo{r.store} }
func (r *fakeRepo) Review() repositories.ReviewRepository   { return &fakeReviewRepo{r.store} }
func (r *fakeRepo) Audio() repositories.AudioRepository     { return &fakeAudioRepo{r.store} }
func (r *fakeRepo) User() repositories.UserRepository       { return &fakeUserRepo{r.store} }
func (r *fakeRepo) Group() repositories.GroupRepository     { return &fakeGroupRepo{r.store} }

func (r *fakeRepo) Begin(ctx context.Context) (repositories.Repository, error) { return r, nil }
func (r *fakeRepo) Commit(ctx context.Context) error                           { return nil }
func (r *fakeRepo) Rollback(ctx context.Context) error                         { return nil }

// ===== ENTITY FAKES =====

type fakeExamRepo struct{ store *fakeStore }

func (f *fakeExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if exam.ID == 0 {
		exam.ID = f.store.id()
	}
	exam.CreatedAt = time.Now()
	f.store.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	exam, ok := f.store.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, nil
}

func (f *fakeExamRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.store.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamRepo) Delete(ctx context.Context, id uint) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	delete(f.store.exams, id)
	return nil
}

func (f *fakeExamRepo) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var exams []*models.Exam
	for _, exam := range f.store.exams {
		if filters.SectionKind != nil && exam.SectionKind != *filters.SectionKind {
			continue
		}
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		copied := *exam
		exams = append(exams, &copied)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams, int64(len(exams)), nil
}

type fakeAttemptRepo struct{ store *fakeStore }

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if attempt.ID == 0 {
		attempt.ID = f.store.id()
	}
	attempt.CreatedAt = time.Now()
	f.store.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	attempt, ok := f.store.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttemptRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	attempt, ok := f.store.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	if exam, ok := f.store.exams[attempt.ExamID]; ok {
		copied.Exam = *exam
	}
	if student, ok := f.store.users[attempt.StudentID]; ok {
		copied.Student = *student
	}
	for key, audio := range f.store.audio {
		if strings.HasPrefix(key, fmt.Sprintf("%d:", attempt.ID)) {
			copied.AudioFiles = append(copied.AudioFiles, *audio)
		}
	}
	sort.Slice(copied.AudioFiles, func(i, j int) bool {
		return copied.AudioFiles[i].PartID < copied.AudioFiles[j].PartID
	})
	for _, review := range f.store.reviews {
		if review.AttemptID == attempt.ID {
			copied.Reviews = append(copied.Reviews, *review)
		}
	}
	return &copied, nil
}

func (f *fakeAttemptRepo) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, attempt := range f.store.attempts {
		if attempt.ExamID == examID && attempt.StudentID == studentID {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *attempt
	f.store.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var attempts []*models.Attempt
	for _, attempt := range f.store.attempts {
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		if filters.ExamID != nil && attempt.ExamID != *filters.ExamID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		copied := *attempt
		if exam, ok := f.store.exams[attempt.ExamID]; ok {
			copied.Exam = *exam
		}
		if student, ok := f.store.users[attempt.StudentID]; ok {
			copied.Student = *student
		}
		attempts = append(attempts, &copied)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ID < attempts[j].ID })
	return attempts, int64(len(attempts)), nil
}

func (f *fakeAttemptRepo) GetPendingReview(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var attempts []*models.Attempt
	for _, attempt := range f.store.attempts {
		exam, ok := f.store.exams[attempt.ExamID]
		if !ok {
			continue
		}
		if attempt.Status != models.AttemptSubmitted || exam.SectionKind.IsAutoScored() {
			continue
		}
		copied := *attempt
		copied.Exam = *exam
		if student, ok := f.store.users[attempt.StudentID]; ok {
			copied.Student = *student
		}
		attempts = append(attempts, &copied)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ID < attempts[j].ID })
	return attempts, int64(len(attempts)), nil
}

type fakeReviewRepo struct{ store *fakeStore }

func (f *fakeReviewRepo) Create(ctx context.Context, review *models.Review) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if review.ID == 0 {
		review.ID = f.store.id()
	}
	review.CreatedAt = time.Now()
	copied := *review
	f.store.reviews[review.ID] = &copied
	return nil
}

func (f *fakeReviewRepo) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	review, ok := f.store.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *review
	return &copied, nil
}

func (f *fakeReviewRepo) GetByAttemptAndMentor(ctx context.Context, attemptID uint, mentorID string) (*models.Review, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, review := range f.store.reviews {
		if review.AttemptID == attemptID && review.MentorID == mentorID {
			copied := *review
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReviewRepo) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Review, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var reviews []*models.Review
	for _, review := range f.store.reviews {
		if review.AttemptID == attemptID {
			copied := *review
			reviews = append(reviews, &copied)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID < reviews[j].ID })
	return reviews, nil
}

func (f *fakeReviewRepo) Update(ctx context.Context, review *models.Review) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.reviews[review.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *review
	f.store.reviews[review.ID] = &copied
	return nil
}

type fakeAudioRepo struct{ store *fakeStore }

func (f *fakeAudioRepo) Upsert(ctx context.Context, audio *models.AttemptAudio) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	key := audioMapKey(audio.AttemptID, audio.PartID)
	if existing, ok := f.store.audio[key]; ok {
		audio.ID = existing.ID
	} else if audio.ID == 0 {
		audio.ID = f.store.id()
	}
	copied := *audio
	f.store.audio[key] = &copied
	return nil
}

func (f *fakeAudioRepo) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAudio, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var files []*models.AttemptAudio
	for _, audio := range f.store.audio {
		if audio.AttemptID == attemptID {
			copied := *audio
			files = append(files, &copied)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].PartID < files[j].PartID })
	return files, nil
}

type fakeUserRepo struct{ store *fakeStore }

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user, ok := f.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetRole(ctx context.Context, id string) (models.UserRole, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user, ok := f.store.users[id]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return user.Role, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *models.User) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	copied := *user
	f.store.users[user.ID] = &copied
	return nil
}

type fakeGroupRepo struct{ store *fakeStore }

func (f *fakeGroupRepo) GetStudentGroup(ctx context.Context, studentID string) (*models.Group, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	group, ok := f.store.groups[studentID]
	if !ok {
		return nil, nil
	}
	copied := *group
	return &copied, nil
}

// ===== CACHE FAKE =====

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// ===== AUDIO STORE FAKE =====

type memAudioStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemAudioStore() *memAudioStore {
	return &memAudioStore{files: make(map[string][]byte)}
}

func (s *memAudioStore) Put(key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return key, nil
}

func (s *memAudioStore) Get(key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *memAudioStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
