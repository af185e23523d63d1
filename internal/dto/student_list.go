package dto

// StudentListQuery captures list and export query parameters.
type StudentListQuery struct {
	GroupBy string `form:"groupBy"`
	College string `form:"college"`
	Caste   string `form:"caste"`
	Format  string `form:"format"`
}

// StudentRow is one record projected onto its group's columns.
type StudentRow struct {
	ID        string   `json:"id"`
	StudentID string   `json:"studentId"`
	Cells     []string `json:"cells"`
}

// StudentGroup is one rendered table of the grouped list.
type StudentGroup struct {
	Key     string       `json:"key"`
	Label   string       `json:"label"`
	Count   int          `json:"count"`
	Columns []string     `json:"columns"`
	Rows    []StudentRow `json:"rows"`
}

// GroupedStudentsResponse is the full grouped list view.
type GroupedStudentsResponse struct {
	GroupBy string         `json:"groupBy"`
	Total   int            `json:"total"`
	Groups  []StudentGroup `json:"groups"`
}
