package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names, in the fixed order every persisted or exported
// dataset uses. Salesforce-sourced columns first, team-authored columns last.
const (
	ColStage               = "Stage"
	ColSolutionResource    = "Solution Resource"
	ColAccountName         = "Account Name"
	ColOwnerRole           = "Owner Role"
	ColOpportunityName     = "Opportunity Name"
	ColOpportunityOwner    = "Opportunity Owner"
	ColMainPrimaryService  = "Main Primary Service"
	ColOpportunityPAR      = "Opportunity PAR"
	ColStageDuration       = "Stage Duration"
	ColCloseDate           = "Close Date"
	ColNotes               = "Notes"
	ColStatus              = "Status"
	ColReceivedBySolutions = "Received by Solutions"
	ColClosedBySolutions   = "Closed by Solutions"
	ColProduct             = "Product"
	ColSolutionsNotes      = "Solutions Notes"
	ColTasks               = "Tasks"
	ColActionItems         = "Action Items"
	ColCommentsResults     = "Comments / Results"
)

// SalesforceCols are overwritten from the latest CRM export on every merge.
var SalesforceCols = []string{
	ColStage, ColSolutionResource, ColAccountName, ColOwnerRole,
	ColOpportunityName, ColOpportunityOwner, ColMainPrimaryService,
	ColOpportunityPAR, ColStageDuration, ColCloseDate, ColNotes,
	ColStatus, ColReceivedBySolutions, ColClosedBySolutions, ColProduct,
}

// TeamCols are authored by the solutions team and survive every merge.
var TeamCols = []string{
	ColSolutionsNotes, ColTasks, ColActionItems, ColCommentsResults,
}

// AllCols is the canonical column set in canonical order.
var AllCols = append(append([]string{}, SalesforceCols...), TeamCols...)

const (
	// StatusUnassigned is the Status default when the export carries none.
	StatusUnassigned = "Unassigned"
	StatusWorking    = "Working"
	StatusPending    = "Pending"

	// ProductUnclassified is the Product sentinel for unclassified deals.
	ProductUnclassified = "unclassified"

	// RemovedMarker is appended to Solutions Notes when an opportunity
	// disappears from a later export. Records are never physically deleted.
	RemovedMarker = "[Removed from SF]"
)

// Opportunity is one row of the masterfile. Opportunity Name is the
// reconciliation key and is expected to be unique; duplicates resolve
// first-match-wins.
type Opportunity struct {
	Stage               string
	SolutionResource    string
	AccountName         string
	OwnerRole           string
	Name                string
	Owner               string
	MainPrimaryService  string
	PAR                 decimal.Decimal
	StageDuration       int
	CloseDate           *time.Time
	Notes               string
	Status              string
	ReceivedBySolutions *time.Time
	ClosedBySolutions   *time.Time
	Product             string

	SolutionsNotes  string
	Tasks           string
	ActionItems     string
	CommentsResults string
}

// NewOpportunity returns a record with every defaultable field populated.
func NewOpportunity() Opportunity {
	return Opportunity{
		PAR:     decimal.Zero,
		Status:  StatusUnassigned,
		Product: ProductUnclassified,
	}
}

// CopySalesforceFields overwrites the source-of-truth fields of dst from src,
// leaving the team-authored fields of dst untouched.
func CopySalesforceFields(dst *Opportunity, src Opportunity) {
	dst.Stage = src.Stage
	dst.SolutionResource = src.SolutionResource
	dst.AccountName = src.AccountName
	dst.OwnerRole = src.OwnerRole
	dst.Name = src.Name
	dst.Owner = src.Owner
	dst.MainPrimaryService = src.MainPrimaryService
	dst.PAR = src.PAR
	dst.StageDuration = src.StageDuration
	dst.CloseDate = src.CloseDate
	dst.Notes = src.Notes
	dst.Status = src.Status
	dst.ReceivedBySolutions = src.ReceivedBySolutions
	dst.ClosedBySolutions = src.ClosedBySolutions
	dst.Product = src.Product
}

// MergeStats summarizes one reconciliation run.
type MergeStats struct {
	Updated int `json:"updated"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// RawTable is an uploaded tabular artifact before canonicalization:
// arbitrary headers, cells as strings.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// TableSource records which ingest path produced a RawTable.
type TableSource string

const (
	SourceXLSX      TableSource = "xlsx"
	SourceCSV       TableSource = "csv"
	SourceHTMLTable TableSource = "email_html_table"
)

// EmailRow is a fetched CRM-export mail tracked in storage.
type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// FetchedMailMessage is a raw message pulled from a mailbox.
type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// MergeRun is one persisted reconciliation audit entry.
type MergeRun struct {
	ID        int
	TraceID   string
	Source    string
	Stats     MergeStats
	CreatedAt string
}
