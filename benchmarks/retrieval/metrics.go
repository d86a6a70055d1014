// ABOUTME: Retrieval quality metrics: hit rate, reciprocal rank and context recall
// ABOUTME: Deterministic scoring against labeled expected sections

package retrieval

import (
	"fmt"
	"strings"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// PassThreshold is the minimum hit rate and context recall for PASS
const PassThreshold = 0.8

// MetricsCalculator computes benchmark scores
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Rank returns the 1-based position of the expected chunk, or 0 when absent
func (m *MetricsCalculator) Rank(results []models.RetrievalResult, q LabeledQuery) int {
	for i, r := range results {
		if r.FileName == q.ExpectedFile && r.Section == q.ExpectedSection {
			return i + 1
		}
	}
	return 0
}

// ReciprocalRank is 1/rank, or 0 when the expected chunk was not retrieved
func (m *MetricsCalculator) ReciprocalRank(rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return 1 / float64(rank)
}

// CalculateContextRecall computes the share of expected items present in the retrieved content
func (m *MetricsCalculator) CalculateContextRecall(
	retrievedContext []string,
	expectedContextItems []string,
) (float64, string) {
	if len(expectedContextItems) == 0 {
		return 1.0, "No context items expected"
	}

	allContext := strings.ToUpper(strings.Join(retrievedContext, " "))

	foundCount := 0
	missingItems := []string{}
	for _, expectedItem := range expectedContextItems {
		if strings.Contains(allContext, strings.ToUpper(expectedItem)) {
			foundCount++
		} else {
			missingItems = append(missingItems, expectedItem)
		}
	}

	recall := float64(foundCount) / float64(len(expectedContextItems))
	if recall == 1.0 {
		return 1.0, "Perfect context recall - all expected items retrieved"
	}
	return recall, fmt.Sprintf("Partial context recall (%.2f) - missing items: %v", recall, missingItems)
}

// QueryOutcome is the scored result of one labeled query
type QueryOutcome struct {
	Query  string  `json:"query"`
	Rank   int     `json:"rank"`
	Recall float64 `json:"recall"`
	Top    string  `json:"top,omitempty"`
}

// EvaluateQuery scores one query's results
func (m *MetricsCalculator) EvaluateQuery(q LabeledQuery, results []models.RetrievalResult) QueryOutcome {
	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	recall, _ := m.CalculateContextRecall(contents, q.ExpectedContextItems)

	out := QueryOutcome{Query: q.Query, Rank: m.Rank(results, q), Recall: recall}
	if len(results) > 0 {
		out.Top = results[0].FileName + "#" + results[0].Section
	}
	return out
}

// EvaluateTest aggregates query outcomes into a scenario result
func (m *MetricsCalculator) EvaluateTest(scenario TestScenario, outcomes []QueryOutcome) TestResult {
	var hits, rr, recall float64
	for _, o := range outcomes {
		if o.Rank > 0 {
			hits++
		}
		rr += m.ReciprocalRank(o.Rank)
		recall += o.Recall
	}

	result := TestResult{
		TestID:   scenario.ID,
		TestName: scenario.Name,
		Status:   "FAIL",
		Details: map[string]interface{}{
			"queries": outcomes,
		},
	}
	if n := float64(len(outcomes)); n > 0 {
		result.HitRate = hits / n
		result.MRR = rr / n
		result.ContextRecallScore = recall / n
	}
	if result.HitRate >= PassThreshold && result.ContextRecallScore >= PassThreshold {
		result.Status = "PASS"
	}
	return result
}
