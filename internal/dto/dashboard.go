package dto

// DashboardResponse is the role-specific dashboard shell.
type DashboardResponse struct {
	Role       string           `json:"role"`
	Title      string           `json:"title"`
	Cards      []DashboardCard  `json:"cards"`
	Navigation []NavItem        `json:"navigation"`
	Counts     *DashboardCounts `json:"counts,omitempty"`
	LogoutPath string           `json:"logoutPath"`
}

// DashboardCard is one summary tile.
type DashboardCard struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Path     string `json:"path,omitempty"`
}

// NavItem links to an operation available to the role.
type NavItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// DashboardCounts summarises records for admins.
type DashboardCounts struct {
	TotalStudents      int `json:"totalStudents"`
	CertificatesIssued int `json:"certificatesIssued"`
}
