// ABOUTME: Labeled corpora for the retrieval benchmark
// ABOUTME: Each scenario pairs business documents with queries and the section that answers them

package retrieval

// TestScenario is one corpus and its labeled queries
type TestScenario struct {
	ID          string
	Name        string
	Description string
	ScopeID     string
	Documents   []Document
	Queries     []LabeledQuery
}

// Document is one file ingested before querying
type Document struct {
	FileName string
	Text     string
}

// LabeledQuery names the chunk that should rank first
type LabeledQuery struct {
	Query           string
	ExpectedFile    string
	ExpectedSection string
	// ExpectedContextItems must appear somewhere in the retrieved content
	ExpectedContextItems []string
}

// TestResult is the outcome of one scenario
type TestResult struct {
	TestID             string                 `json:"test_id"`
	TestName           string                 `json:"test_name"`
	HitRate            float64                `json:"hit_rate"`
	MRR                float64                `json:"mrr"`
	ContextRecallScore float64                `json:"context_recall"`
	Status             string                 `json:"status"` // "PASS" or "FAIL"
	Details            map[string]interface{} `json:"details,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

// GetInvoicingPortal returns the B2B invoicing discovery scenario
func GetInvoicingPortal() TestScenario {
	return TestScenario{
		ID:          "invoicing",
		Name:        "Invoicing portal discovery notes",
		Description: "Interview notes and a stakeholder register for a B2B invoicing portal",
		ScopeID:     "bench-invoicing",
		Documents: []Document{
			{
				FileName: "interview-notes.md",
				Text: `# Authentication
Customers sign in with single sign-on through their company identity provider.
Accounts without SSO use a password plus a one-time code sent by email.

# Invoice approval
Invoices above 10,000 EUR need approval from the finance controller.
Smaller invoices are approved automatically after a three-day dispute window.

# Payment methods
The portal accepts SEPA direct debit, bank transfer and corporate credit cards.
Card payments carry a 1.5 percent surcharge.

# Reporting
Finance wants a monthly export of paid and overdue invoices as CSV.`,
			},
			{
				FileName: "stakeholders.md",
				Text: `# Finance controller
Owns invoice approval thresholds and signs off the monthly close.

# Customer support lead
Handles disputes raised during the dispute window and escalates fraud.

# IT security officer
Requires audit logs for every login and every approval decision.`,
			},
		},
		Queries: []LabeledQuery{
			{Query: "how do customers log in with single sign-on", ExpectedFile: "interview-notes.md", ExpectedSection: "Authentication", ExpectedContextItems: []string{"single sign-on"}},
			{Query: "which invoices need finance controller approval", ExpectedFile: "interview-notes.md", ExpectedSection: "Invoice approval", ExpectedContextItems: []string{"10,000 EUR"}},
			{Query: "credit cards surcharge payment methods", ExpectedFile: "interview-notes.md", ExpectedSection: "Payment methods", ExpectedContextItems: []string{"surcharge"}},
			{Query: "monthly CSV export of overdue invoices", ExpectedFile: "interview-notes.md", ExpectedSection: "Reporting", ExpectedContextItems: []string{"CSV"}},
			{Query: "who handles disputes and fraud escalation", ExpectedFile: "stakeholders.md", ExpectedSection: "Customer support lead", ExpectedContextItems: []string{"escalates fraud"}},
			{Query: "audit logs security requirements", ExpectedFile: "stakeholders.md", ExpectedSection: "IT security officer", ExpectedContextItems: []string{"audit logs"}},
		},
	}
}

// GetWarehouseBacklog returns the warehouse app backlog scenario
func GetWarehouseBacklog() TestScenario {
	return TestScenario{
		ID:          "warehouse",
		Name:        "Warehouse scanning app backlog",
		Description: "Requirements for a handheld scanning app used by warehouse pickers",
		ScopeID:     "bench-warehouse",
		Documents: []Document{
			{
				FileName: "requirements.md",
				Text: `# Barcode scanning
Pickers scan shelf barcodes and item barcodes; a mismatch blocks the pick.

# Offline mode
The app must keep working without wifi for up to eight hours and sync afterwards.

# Pick lists
Supervisors assign pick lists sorted by aisle to minimise walking distance.

# Accessibility
All screens support large text and glove-friendly touch targets.`,
			},
		},
		Queries: []LabeledQuery{
			{Query: "scan barcode mismatch blocks pick", ExpectedFile: "requirements.md", ExpectedSection: "Barcode scanning", ExpectedContextItems: []string{"mismatch"}},
			{Query: "working without wifi offline sync", ExpectedFile: "requirements.md", ExpectedSection: "Offline mode", ExpectedContextItems: []string{"eight hours"}},
			{Query: "supervisors assign pick lists by aisle", ExpectedFile: "requirements.md", ExpectedSection: "Pick lists", ExpectedContextItems: []string{"aisle"}},
			{Query: "large text glove touch targets", ExpectedFile: "requirements.md", ExpectedSection: "Accessibility", ExpectedContextItems: []string{"glove-friendly"}},
		},
	}
}

// GetAllTests returns every scenario
func GetAllTests() []TestScenario {
	return []TestScenario{
		GetInvoicingPortal(),
		GetWarehouseBacklog(),
	}
}
