package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
)

func sampleSummaries() []models.StudentSummary {
	return []models.StudentSummary{
		{ID: "a", StudentID: "1", Name: "Asha Rao", RollNumber: "001", College: "Engineering College", Caste: "General"},
		{ID: "b", StudentID: "2", Name: "Bala K", RollNumber: "002", College: "Arts College", Caste: "OBC"},
		{ID: "c", StudentID: "3", Name: "Chitra M", RollNumber: "003", College: "Engineering College", Caste: "SC"},
		{ID: "d", StudentID: "4", Name: "Dev P", RollNumber: "004", College: "Science College", Caste: "OBC"},
	}
}

func TestGroupStudentsByCollege(t *testing.T) {
	records := sampleSummaries()
	groups := GroupStudents(records, GroupByCollege)

	require.Len(t, groups, 3)
	total := 0
	for _, g := range groups {
		total += g.Count
		assert.Equal(t, []string{ColumnName, ColumnRollNumber, ColumnCaste}, g.Columns)
		assert.Equal(t, "College: "+g.Key, g.Label)
		for _, row := range g.Rows {
			var source models.StudentSummary
			for _, r := range records {
				if r.ID == row.ID {
					source = r
				}
			}
			assert.Equal(t, g.Key, source.College)
			assert.Equal(t, []string{source.Name, source.RollNumber, source.Caste}, row.Cells)
		}
	}
	assert.Equal(t, len(records), total)

	assert.Equal(t, "Engineering College", groups[0].Key)
	assert.Equal(t, []string{"a", "c"}, []string{groups[0].Rows[0].ID, groups[0].Rows[1].ID})
	assert.Equal(t, "Arts College", groups[1].Key)
	assert.Equal(t, "Science College", groups[2].Key)
}

func TestGroupStudentsByCaste(t *testing.T) {
	groups := GroupStudents(sampleSummaries(), GroupByCaste)
	require.Len(t, groups, 3)
	assert.Equal(t, "Caste: OBC", groups[1].Label)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, []string{ColumnName, ColumnRollNumber, ColumnCollege}, groups[1].Columns)
	assert.Equal(t, []string{"Bala K", "002", "Arts College"}, groups[1].Rows[0].Cells)
}

func TestGroupStudentsWithoutKey(t *testing.T) {
	groups := GroupStudents(sampleSummaries(), GroupByNone)
	require.Len(t, groups, 1)
	assert.Equal(t, "All Students", groups[0].Label)
	assert.Equal(t, 4, groups[0].Count)
	assert.Equal(t, []string{ColumnName, ColumnRollNumber, ColumnCollege, ColumnCaste}, groups[0].Columns)

	empty := GroupStudents(nil, GroupByNone)
	require.Len(t, empty, 1)
	assert.Zero(t, empty[0].Count)
	assert.Empty(t, GroupStudents(nil, GroupByCollege))
}

func TestParseGroupKey(t *testing.T) {
	for raw, want := range map[string]GroupKey{"": GroupByNone, "college": GroupByCollege, "Caste": GroupByCaste} {
		got, err := ParseGroupKey(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseGroupKey("religion")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestWithActionsDoesNotAliasColumns(t *testing.T) {
	groups := GroupStudents(sampleSummaries(), GroupByCollege)
	withActions := WithActions(groups)
	assert.Equal(t, ColumnActions, withActions[0].Columns[len(withActions[0].Columns)-1])
	assert.NotContains(t, groups[0].Columns, ColumnActions)
}

type stubIssuer struct {
	requests []dto.IssueTCRequest
	err      error
}

func (s *stubIssuer) Issue(_ context.Context, req dto.IssueTCRequest, _ IssueOptions) (*dto.IssueTCResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.IssueTCResponse{ID: "tc-1", StudentID: req.StudentID, FileName: "TC_" + req.StudentID + "_1.txt"}, nil
}

func TestStudentListServiceIssueForStudent(t *testing.T) {
	repo := &mockStudentRepo{}
	students := newStudentServiceForTest(repo, nil)
	stored, err := students.Register(context.Background(), validForm(), RequestMeta{})
	require.NoError(t, err)

	issuer := &stubIssuer{}
	svc := NewStudentListService(students, issuer, nil)

	var notified string
	resp, err := svc.IssueForStudent(context.Background(), stored.ID, IssueOptions{}, func(id string) { notified = id })
	require.NoError(t, err)
	assert.Equal(t, "TC_1_1.txt", resp.FileName)
	assert.Equal(t, "1", notified)
	require.Len(t, issuer.requests, 1)
	assert.Equal(t, dto.IssueTCRequest{StudentID: "1", StudentName: "John Doe", RollNumber: "001", College: "Engineering College", Caste: "General"}, issuer.requests[0])

	issuer.err = appErrors.ErrTCIssueFailed
	notified = ""
	_, err = svc.IssueForStudent(context.Background(), stored.ID, IssueOptions{}, func(id string) { notified = id })
	assert.True(t, errors.Is(err, appErrors.ErrTCIssueFailed))
	assert.Empty(t, notified)
}

func TestStudentListServiceListAndExport(t *testing.T) {
	repo := &mockStudentRepo{}
	students := newStudentServiceForTest(repo, nil)
	_, err := students.Register(context.Background(), validForm(), RequestMeta{})
	require.NoError(t, err)
	svc := NewStudentListService(students, &stubIssuer{}, nil)

	view, err := svc.List(context.Background(), dto.StudentListQuery{GroupBy: "college"}, true)
	require.NoError(t, err)
	assert.Equal(t, "college", view.GroupBy)
	assert.Equal(t, 1, view.Total)
	assert.Contains(t, view.Groups[0].Columns, ColumnActions)

	file, err := svc.Export(context.Background(), dto.StudentListQuery{GroupBy: "college", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "students_by_college.csv", file.FileName)
	assert.True(t, strings.Contains(string(file.Content), "John Doe"))
	assert.NotContains(t, string(file.Content), ColumnActions)

	pdf, err := svc.Export(context.Background(), dto.StudentListQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Content), "%PDF"))

	_, err = svc.Export(context.Background(), dto.StudentListQuery{Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
