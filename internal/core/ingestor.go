// ABOUTME: Ingestor runs the upload pipeline: extract, persist, chunk, embed, store
// ABOUTME: Extraction and chunking failures keep the document with zero chunks; delete cascades
package core

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DefaultMaxUploadBytes caps the size of one uploaded file
const DefaultMaxUploadBytes = 20 << 20

// UploadRequest is one file to ingest
type UploadRequest struct {
	ScopeID     string
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult reports what ingestion produced
type UploadResult struct {
	DocumentID    string         `json:"documentId"`
	ChunksCreated int            `json:"chunksCreated"`
	RagProcessed  bool           `json:"ragProcessed"`
	Pending       bool           `json:"pending,omitempty"`
	Error         string         `json:"error,omitempty"`
	Failures      []ChunkFailure `json:"failures,omitempty"`
}

// IngestorConfig tunes ingestion
type IngestorConfig struct {
	Async          bool
	MaxUploadBytes int64
}

// Ingestor owns document upload and deletion
type Ingestor struct {
	docs      DocumentRepository
	extractor *Extractor
	chunker   *ChunkEngine
	indexer   *Indexer
	cfg       IngestorConfig
	metrics   *metrics.Metrics
	logger    *log.Logger

	// background indexing outlives the request but not the process
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewIngestor creates an Ingestor
func NewIngestor(docs DocumentRepository, extractor *Extractor, chunker *ChunkEngine, indexer *Indexer, cfg IngestorConfig, m *metrics.Metrics) *Ingestor {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Ingestor{
		docs:      docs,
		extractor: extractor,
		chunker:   chunker,
		indexer:   indexer,
		cfg:       cfg,
		metrics:   m,
		logger:    log.New(log.Writer(), "[Ingest] ", log.LstdFlags),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Upload extracts and stores a file, then chunks and indexes it. Extraction,
// chunking and embedding failures are reported in the result, not as errors.
func (in *Ingestor) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	return in.upload(ctx, req, in.cfg.Async)
}

func (in *Ingestor) upload(ctx context.Context, req UploadRequest, async bool) (*UploadResult, error) {
	if strings.TrimSpace(req.ScopeID) == "" {
		return nil, models.ValidationError("scopeId is required")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, models.ValidationError("file is required")
	}
	if int64(len(req.Data)) > in.cfg.MaxUploadBytes {
		return nil, models.ValidationError("file exceeds the %d byte upload limit", in.cfg.MaxUploadBytes)
	}

	extraction, extractErr := in.extractor.Extract(req.FileName, req.ContentType, req.Data)
	mimeType := DetectMimeType(req.FileName, req.ContentType)
	text := ""
	if extractErr == nil {
		text = extraction.Text
		mimeType = extraction.MimeType
	}

	doc, err := models.NewDocument(req.ScopeID, req.FileName, mimeType, int64(len(req.Data)), text)
	if err != nil {
		return nil, err
	}
	if err := in.docs.SaveDocument(ctx, doc); err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to save document")
	}

	result := &UploadResult{DocumentID: doc.ID}
	if extractErr != nil {
		in.logger.Printf("extraction failed for %s (%s): %v", doc.FileName, doc.ID, extractErr)
		result.Error = models.PublicMessage(extractErr)
		in.metrics.ObserveIngest("extraction_failed")
		return result, nil
	}
	if strings.TrimSpace(text) == "" {
		in.metrics.ObserveIngest("empty")
		return result, nil
	}

	if async {
		in.wg.Add(1)
		go func() {
			defer in.wg.Done()
			if _, err := in.process(in.baseCtx, doc); err != nil {
				in.logger.Printf("background ingestion of %s failed: %v", doc.ID, err)
			}
		}()
		result.Pending = true
		return result, nil
	}

	return in.process(ctx, doc)
}

// IngestText stores text as a markdown document and indexes it synchronously
func (in *Ingestor) IngestText(ctx context.Context, scopeID, title, text string) (*UploadResult, error) {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "note.md"
	} else if !strings.Contains(name, ".") {
		name += ".md"
	}
	return in.upload(ctx, UploadRequest{ScopeID: scopeID, FileName: name, ContentType: "text/markdown", Data: []byte(text)}, false)
}

// process chunks and indexes a saved document
func (in *Ingestor) process(ctx context.Context, doc *models.Document) (*UploadResult, error) {
	result := &UploadResult{DocumentID: doc.ID}

	drafts, err := in.chunker.Chunk(ctx, doc.FileName, doc.RawText)
	if err != nil {
		in.logger.Printf("chunking failed for %s (%s): %v", doc.FileName, doc.ID, err)
		result.Error = models.PublicMessage(err)
		in.metrics.ObserveIngest("chunking_failed")
		return result, nil
	}

	indexed, err := in.indexer.Index(ctx, doc, drafts)
	if indexed != nil {
		result.ChunksCreated = indexed.ChunksCreated
		result.Failures = indexed.Failures
	}
	if err != nil {
		if models.IsKind(err, models.KindStorage) {
			in.metrics.ObserveIngest("storage_failed")
			return nil, err
		}
		result.Error = models.PublicMessage(err)
		in.metrics.ObserveIngest("embedding_failed")
		return result, nil
	}

	result.RagProcessed = result.ChunksCreated > 0
	if len(result.Failures) > 0 {
		result.Error = models.PublicMessage(models.NewError(models.KindEmbedding,
			"%d of %d chunks failed to embed", len(result.Failures), len(drafts)))
		in.metrics.ObserveIngest("partial")
	} else {
		in.metrics.ObserveIngest("indexed")
	}
	return result, nil
}

// Delete removes a document after its chunks, blocking until both are gone
func (in *Ingestor) Delete(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return models.ValidationError("documentId is required")
	}
	deleted, err := in.docs.DeleteDocument(ctx, documentID)
	if err != nil {
		return models.Wrap(models.KindStorage, err, "failed to delete document")
	}
	if !deleted {
		return models.NewError(models.KindNotFound, "document %s not found", documentID)
	}
	in.logger.Printf("deleted document %s", documentID)
	return nil
}

// List returns documents in a scope, or all documents for an empty scope
func (in *Ingestor) List(ctx context.Context, scopeID string) ([]models.DocumentSummary, error) {
	docs, err := in.docs.ListDocuments(ctx, scopeID)
	if err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to list documents")
	}
	if docs == nil {
		docs = []models.DocumentSummary{}
	}
	return docs, nil
}

// Wait blocks until background ingestion has finished
func (in *Ingestor) Wait() {
	in.wg.Wait()
}

// Shutdown cancels background ingestion and waits for it to stop
func (in *Ingestor) Shutdown() {
	in.cancel()
	in.wg.Wait()
}
