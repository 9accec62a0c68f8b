package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportExamResults(ctx context.Context, examID uint, userID string) ([]byte, error) {
	role, err := s.repo.User().GetRole(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	if role != models.RoleMentor && role != models.RoleAdmin {
		return nil, NewPermissionError(userID, examID, "exam", "export_results", "students cannot export results")
	}

	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		ExamID:    &examID,
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get exam attempts: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Student Name", "Status", "Started At", "Submitted At",
		"Reading Band", "Listening Band", "Total Band",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		row := []interface{}{
			attempt.StudentID,
			attempt.Student.FullName,
			string(attempt.Status),
			attempt.StartedAt.Format("2006-01-02 15:04:05"),
		}

		if attempt.SubmittedAt != nil {
			row = append(row, attempt.SubmittedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}

		row = append(row, bandCell(attempt.ReadingScore))
		row = append(row, bandCell(attempt.ListeningScore))
		row = append(row, bandCell(attempt.TotalScore))

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exam results exported",
		"exam_id", exam.ID,
		"attempts", len(attempts),
		"user_id", userID)

	return buf.Bytes(), nil
}

func bandCell(score *float64) interface{} {
	if score == nil {
		return ""
	}
	return *score
}
