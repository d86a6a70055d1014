// ABOUTME: Benchmark runner that ingests each scenario into a fresh store and scores retrieval
// ABOUTME: Uses the same extractor, chunker, indexer and retriever as the service

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/core"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

// BenchmarkRunner executes retrieval benchmarks
type BenchmarkRunner struct {
	embedder core.Embedder
	splitter core.Splitter
	k        int
	metrics  *MetricsCalculator
	verbose  bool
}

// NewBenchmarkRunner creates a runner that retrieves the top k chunks per query.
// A nil splitter uses the heading splitter.
func NewBenchmarkRunner(embedder core.Embedder, splitter core.Splitter, k int, verbose bool) *BenchmarkRunner {
	if k <= 0 {
		k = core.DefaultRetrievalLimit
	}
	return &BenchmarkRunner{
		embedder: embedder,
		splitter: splitter,
		k:        k,
		metrics:  NewMetricsCalculator(),
		verbose:  verbose,
	}
}

// RunTest ingests a scenario into an isolated store and evaluates every query
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Printf("\n========================================\n")
		fmt.Printf("RUNNING: %s\n", scenario.Name)
		fmt.Printf("========================================\n")
		fmt.Printf("Description: %s\n\n", scenario.Description)
	}

	store := memory.New()
	indexer := core.NewIndexer(r.embedder, store, core.DefaultEmbedConcurrency, nil)
	ingestor := core.NewIngestor(store, core.NewExtractor(), core.NewChunkEngine(r.splitter), indexer, core.IngestorConfig{}, nil)
	defer ingestor.Shutdown()
	retriever := core.NewRetriever(r.embedder, store, r.k, core.MaxRetrievalLimit, nil)

	for _, doc := range scenario.Documents {
		res, err := ingestor.Upload(ctx, core.UploadRequest{
			ScopeID:  scenario.ScopeID,
			FileName: doc.FileName,
			Data:     []byte(doc.Text),
		})
		if err != nil {
			return TestResult{}, fmt.Errorf("ingesting %s: %w", doc.FileName, err)
		}
		if !res.RagProcessed {
			return TestResult{}, fmt.Errorf("ingesting %s: %s", doc.FileName, res.Error)
		}
		if r.verbose {
			fmt.Printf("Ingested %s: %d chunks\n", doc.FileName, res.ChunksCreated)
		}
	}

	outcomes := make([]QueryOutcome, 0, len(scenario.Queries))
	for _, q := range scenario.Queries {
		results, err := retriever.RetrieveStrict(ctx, q.Query, scenario.ScopeID, r.k)
		if err != nil {
			return TestResult{}, fmt.Errorf("query %q: %w", q.Query, err)
		}
		o := r.metrics.EvaluateQuery(q, results)
		outcomes = append(outcomes, o)
		if r.verbose {
			fmt.Printf("  rank %d  %-45s top=%s\n", o.Rank, q.Query, o.Top)
		}
	}

	result := r.metrics.EvaluateTest(scenario, outcomes)
	if r.verbose {
		fmt.Printf("\nHit rate@%d: %.2f  MRR: %.2f  Context recall: %.2f  Status: %s\n",
			r.k, result.HitRate, result.MRR, result.ContextRecallScore, result.Status)
	}
	return result, nil
}

// RunAllTests executes all benchmark scenarios
func (r *BenchmarkRunner) RunAllTests(ctx context.Context) ([]TestResult, error) {
	scenarios := GetAllTests()
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("test %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ExportResults writes a JSON summary of results
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
	}
	summary := map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"embedder":    r.embedder.ModelName(),
		"k":           r.k,
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
