package model

// Timestamps are carried as RFC 3339 strings so rows round-trip through both
// stores and the embedded fixtures unchanged.

// Contractor is a firm engaged for infrastructure work.
type Contractor struct {
	ID             string   `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string   `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string   `json:"name" mapstructure:"name,omitempty"`
	ContactName    string   `json:"contact_name,omitempty" mapstructure:"contact_name,omitempty"`
	Email          string   `json:"email,omitempty" mapstructure:"email,omitempty"`
	Phone          string   `json:"phone,omitempty" mapstructure:"phone,omitempty"`
	Specialties    []string `json:"specialties,omitempty" mapstructure:"specialties,omitempty"`
	Rating         float64  `json:"rating,omitempty" mapstructure:"rating,omitempty"`
	Status         string   `json:"status,omitempty" mapstructure:"status,omitempty"`
	CreatedAt      string   `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string   `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// Inspection is a scheduled or completed condition review of an asset.
type Inspection struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	AssetID        string  `json:"asset_id,omitempty" mapstructure:"asset_id,omitempty"`
	Inspector      string  `json:"inspector,omitempty" mapstructure:"inspector,omitempty"`
	ScheduledFor   string  `json:"scheduled_for,omitempty" mapstructure:"scheduled_for,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	ConditionScore float64 `json:"condition_score,omitempty" mapstructure:"condition_score,omitempty"`
	Notes          string  `json:"notes,omitempty" mapstructure:"notes,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// Asset is a tracked piece of infrastructure (road segment, bridge, culvert...).
type Asset struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string  `json:"name" mapstructure:"name,omitempty"`
	Type           string  `json:"type,omitempty" mapstructure:"type,omitempty"`
	Location       string  `json:"location,omitempty" mapstructure:"location,omitempty"`
	Condition      string  `json:"condition,omitempty" mapstructure:"condition,omitempty"`
	PCI            float64 `json:"pci,omitempty" mapstructure:"pci,omitempty"`
	LengthMiles    float64 `json:"length_miles,omitempty" mapstructure:"length_miles,omitempty"`
	InstalledYear  int     `json:"installed_year,omitempty" mapstructure:"installed_year,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// MaintenanceTask is a unit of planned or reactive work on an asset.
type MaintenanceTask struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	AssetID        string  `json:"asset_id,omitempty" mapstructure:"asset_id,omitempty"`
	ContractorID   string  `json:"contractor_id,omitempty" mapstructure:"contractor_id,omitempty"`
	Title          string  `json:"title" mapstructure:"title,omitempty"`
	Priority       string  `json:"priority,omitempty" mapstructure:"priority,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	DueDate        string  `json:"due_date,omitempty" mapstructure:"due_date,omitempty"`
	EstimatedCost  float64 `json:"estimated_cost,omitempty" mapstructure:"estimated_cost,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// Project is a capital improvement project.
type Project struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string  `json:"name" mapstructure:"name,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	Budget         float64 `json:"budget,omitempty" mapstructure:"budget,omitempty"`
	Spent          float64 `json:"spent,omitempty" mapstructure:"spent,omitempty"`
	StartDate      string  `json:"start_date,omitempty" mapstructure:"start_date,omitempty"`
	EndDate        string  `json:"end_date,omitempty" mapstructure:"end_date,omitempty"`
	ContractorID   string  `json:"contractor_id,omitempty" mapstructure:"contractor_id,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// FundingSource is a pool of money (general fund, bond, levy) projects draw from.
type FundingSource struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string  `json:"name" mapstructure:"name,omitempty"`
	Type           string  `json:"type,omitempty" mapstructure:"type,omitempty"`
	Amount         float64 `json:"amount,omitempty" mapstructure:"amount,omitempty"`
	Remaining      float64 `json:"remaining,omitempty" mapstructure:"remaining,omitempty"`
	FiscalYear     int     `json:"fiscal_year,omitempty" mapstructure:"fiscal_year,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// Grant is an external award applied for or received.
type Grant struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string  `json:"name" mapstructure:"name,omitempty"`
	Agency         string  `json:"agency,omitempty" mapstructure:"agency,omitempty"`
	Amount         float64 `json:"amount,omitempty" mapstructure:"amount,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	Deadline       string  `json:"deadline,omitempty" mapstructure:"deadline,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// Expense is a single spend line against a project or funding source.
type Expense struct {
	ID              string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID  string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	ProjectID       string  `json:"project_id,omitempty" mapstructure:"project_id,omitempty"`
	FundingSourceID string  `json:"funding_source_id,omitempty" mapstructure:"funding_source_id,omitempty"`
	Description     string  `json:"description" mapstructure:"description,omitempty"`
	Category        string  `json:"category,omitempty" mapstructure:"category,omitempty"`
	Amount          float64 `json:"amount,omitempty" mapstructure:"amount,omitempty"`
	Date            string  `json:"date,omitempty" mapstructure:"date,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// CitizenReport is an issue submitted by a resident (pothole, broken light...).
type CitizenReport struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Category       string  `json:"category,omitempty" mapstructure:"category,omitempty"`
	Description    string  `json:"description" mapstructure:"description,omitempty"`
	Location       string  `json:"location,omitempty" mapstructure:"location,omitempty"`
	Latitude       float64 `json:"latitude,omitempty" mapstructure:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty" mapstructure:"longitude,omitempty"`
	ReporterEmail  string  `json:"reporter_email,omitempty" mapstructure:"reporter_email,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// ScanIssue is a defect detected by a pavement or imagery scan.
type ScanIssue struct {
	ID             string  `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	AssetID        string  `json:"asset_id,omitempty" mapstructure:"asset_id,omitempty"`
	IssueType      string  `json:"issue_type" mapstructure:"issue_type,omitempty"`
	Severity       string  `json:"severity,omitempty" mapstructure:"severity,omitempty"`
	Confidence     float64 `json:"confidence,omitempty" mapstructure:"confidence,omitempty"`
	Status         string  `json:"status,omitempty" mapstructure:"status,omitempty"`
	DetectedAt     string  `json:"detected_at,omitempty" mapstructure:"detected_at,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// BudgetScenario is a what-if allocation of funds across asset classes.
type BudgetScenario struct {
	ID             string             `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string             `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Name           string             `json:"name" mapstructure:"name,omitempty"`
	TotalBudget    float64            `json:"total_budget,omitempty" mapstructure:"total_budget,omitempty"`
	Allocations    map[string]float64 `json:"allocations,omitempty" mapstructure:"allocations,omitempty"`
	ProjectedPCI   float64            `json:"projected_pci,omitempty" mapstructure:"projected_pci,omitempty"`
	Years          int                `json:"years,omitempty" mapstructure:"years,omitempty"`
	CreatedAt      string             `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string             `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}

// User is a member of a tenant organization.
type User struct {
	ID             string `json:"id" mapstructure:"id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty" mapstructure:"organization_id,omitempty"`
	Email          string `json:"email" mapstructure:"email,omitempty"`
	FullName       string `json:"full_name,omitempty" mapstructure:"full_name,omitempty"`
	Role           string `json:"role,omitempty" mapstructure:"role,omitempty"`
	Active         bool   `json:"active,omitempty" mapstructure:"active,omitempty"`
	CreatedAt      string `json:"created_at,omitempty" mapstructure:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty" mapstructure:"updated_at,omitempty"`
}
