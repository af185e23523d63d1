package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/dto"
	"github.com/noah-isme/sma-tc-api/internal/models"
	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/export"
)

// GroupKey is the attribute a student list is grouped by.
type GroupKey string

const (
	GroupByNone    GroupKey = ""
	GroupByCollege GroupKey = "college"
	GroupByCaste   GroupKey = "caste"
)

// List columns.
const (
	ColumnName       = "Name"
	ColumnRollNumber = "Roll Number"
	ColumnCollege    = "College"
	ColumnCaste      = "Caste"
	ColumnActions    = "Actions"
)

const allStudentsLabel = "All Students"

// ParseGroupKey accepts college, caste or an empty value.
func ParseGroupKey(raw string) (GroupKey, error) {
	switch GroupKey(strings.ToLower(strings.TrimSpace(raw))) {
	case GroupByNone:
		return GroupByNone, nil
	case GroupByCollege:
		return GroupByCollege, nil
	case GroupByCaste:
		return GroupByCaste, nil
	}
	return GroupByNone, appErrors.Clone(appErrors.ErrValidation, "groupBy must be college or caste")
}

// Columns lists the visible columns. The grouped attribute is hidden.
func (k GroupKey) Columns() []string {
	switch k {
	case GroupByCollege:
		return []string{ColumnName, ColumnRollNumber, ColumnCaste}
	case GroupByCaste:
		return []string{ColumnName, ColumnRollNumber, ColumnCollege}
	default:
		return []string{ColumnName, ColumnRollNumber, ColumnCollege, ColumnCaste}
	}
}

func (k GroupKey) value(s models.StudentSummary) string {
	switch k {
	case GroupByCollege:
		return s.College
	case GroupByCaste:
		return s.Caste
	}
	return ""
}

func (k GroupKey) label(value string) string {
	switch k {
	case GroupByCollege:
		return "College: " + value
	case GroupByCaste:
		return "Caste: " + value
	}
	return allStudentsLabel
}

func cell(column string, s models.StudentSummary) string {
	switch column {
	case ColumnName:
		return s.Name
	case ColumnRollNumber:
		return s.RollNumber
	case ColumnCollege:
		return s.College
	case ColumnCaste:
		return s.Caste
	}
	return ""
}

// GroupStudents partitions records by key. Groups appear in first-appearance
// order and each keeps the input order of its records.
func GroupStudents(records []models.StudentSummary, key GroupKey) []dto.StudentGroup {
	columns := key.Columns()
	groups := make([]dto.StudentGroup, 0)
	index := make(map[string]int)

	if key == GroupByNone {
		groups = append(groups, dto.StudentGroup{Label: allStudentsLabel, Columns: columns, Rows: []dto.StudentRow{}})
		index[""] = 0
	}

	for _, record := range records {
		value := key.value(record)
		pos, ok := index[value]
		if !ok {
			pos = len(groups)
			index[value] = pos
			groups = append(groups, dto.StudentGroup{Key: value, Label: key.label(value), Columns: columns, Rows: []dto.StudentRow{}})
		}
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = cell(column, record)
		}
		groups[pos].Rows = append(groups[pos].Rows, dto.StudentRow{ID: record.ID, StudentID: record.StudentID, Cells: cells})
		groups[pos].Count++
	}
	return groups
}

// WithActions appends the Actions column to every group.
func WithActions(groups []dto.StudentGroup) []dto.StudentGroup {
	out := make([]dto.StudentGroup, len(groups))
	for i, g := range groups {
		g.Columns = append(append([]string{}, g.Columns...), ColumnActions)
		out[i] = g
	}
	return out
}

type studentLister interface {
	ListSummaries(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, error)
	Get(ctx context.Context, id string) (*models.Student, error)
}

type certificateIssuer interface {
	Issue(ctx context.Context, req dto.IssueTCRequest, opts IssueOptions) (*dto.IssueTCResponse, error)
}

// StudentListService serves grouped listings, exports and the per-row issue action.
type StudentListService struct {
	students studentLister
	issuer   certificateIssuer
	logger   *zap.Logger
}

// NewStudentListService constructs the listing service.
func NewStudentListService(students studentLister, issuer certificateIssuer, logger *zap.Logger) *StudentListService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentListService{students: students, issuer: issuer, logger: logger}
}

// List returns the grouped view. Admins get the Actions column.
func (s *StudentListService) List(ctx context.Context, query dto.StudentListQuery, withActions bool) (*dto.GroupedStudentsResponse, error) {
	key, err := ParseGroupKey(query.GroupBy)
	if err != nil {
		return nil, err
	}
	records, err := s.students.ListSummaries(ctx, models.StudentFilter{College: query.College, Caste: query.Caste})
	if err != nil {
		return nil, err
	}
	groups := GroupStudents(records, key)
	if withActions {
		groups = WithActions(groups)
	}
	return &dto.GroupedStudentsResponse{GroupBy: string(key), Total: len(records), Groups: groups}, nil
}

// ExportFile is a rendered list export.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Export renders the grouped view as CSV or PDF.
func (s *StudentListService) Export(ctx context.Context, query dto.StudentListQuery) (*ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != export.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	view, err := s.List(ctx, query, false)
	if err != nil {
		return nil, err
	}

	title := "Students"
	if view.GroupBy != "" {
		title = "Students by " + view.GroupBy
	}
	dataset := export.Dataset{Title: title, Sections: make([]export.Section, 0, len(view.Groups))}
	for _, g := range view.Groups {
		rows := make([][]string, 0, len(g.Rows))
		for _, r := range g.Rows {
			rows = append(rows, r.Cells)
		}
		dataset.Sections = append(dataset.Sections, export.Section{Title: g.Label, Headers: g.Columns, Rows: rows})
	}

	name := "students"
	if view.GroupBy != "" {
		name += "_by_" + view.GroupBy
	}
	if format == export.FormatPDF {
		content, err := export.NewPDFExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportFile{FileName: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
	content, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{FileName: name + ".csv", ContentType: "text/csv", Content: content}, nil
}

// IssueForStudent issues a certificate for a listed student and then calls
// onIssued with the student's id when it is not nil.
func (s *StudentListService) IssueForStudent(ctx context.Context, id string, opts IssueOptions, onIssued func(studentID string)) (*dto.IssueTCResponse, error) {
	student, err := s.students.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.issuer.Issue(ctx, dto.IssueTCRequest{
		StudentID:   student.UniqueID,
		StudentName: strings.TrimSpace(student.StudentName + " " + student.Surname),
		RollNumber:  student.AdmissionNo,
		College:     student.College,
		Caste:       student.Caste,
	}, opts)
	if err != nil {
		s.logger.Warn("certificate issue from list failed", zap.String("student_id", id), zap.Error(err))
		return nil, err
	}
	if onIssued != nil {
		onIssued(student.UniqueID)
	}
	return resp, nil
}
