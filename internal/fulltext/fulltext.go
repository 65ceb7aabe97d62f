// Package fulltext keeps an in-memory bleve index of a document snapshot for
// keyword search with highlighted fragments.
package fulltext

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

const (
	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100

	// DefaultSize is the default number of hits returned
	DefaultSize = 20

	// NameBoost weights name matches over content matches
	NameBoost = 3.0
)

// keywordFields are indexed verbatim (lowercased) for exact filtering.
var keywordFields = []string{
	domain.FieldExtension, domain.FieldFolder, domain.FieldType, domain.FieldTags,
	domain.FieldProvider, domain.FieldHospital, domain.FieldMonth, domain.FieldYear,
}

// record is the shape stored in bleve.
type record struct {
	Name      string   `json:"nombre"`
	Path      string   `json:"ruta"`
	Content   string   `json:"contenido"`
	Extension string   `json:"extension"`
	Folder    string   `json:"carpeta"`
	Type      string   `json:"tipo"`
	Tags      []string `json:"etiquetas"`
	Provider  string   `json:"proveedor_virtual"`
	Hospital  string   `json:"hospital_virtual"`
	Month     string   `json:"mes_virtual"`
	Year      string   `json:"anio_virtual"`
}

func toRecord(d *domain.Document) record {
	return record{
		Name:      d.Name,
		Path:      d.Path,
		Content:   d.Content,
		Extension: textnorm.Normalize(d.Extension),
		Folder:    textnorm.Normalize(d.Folder),
		Type:      textnorm.Normalize(d.Type),
		Tags:      d.Tags,
		Provider:  textnorm.Normalize(d.Provider),
		Hospital:  textnorm.Normalize(d.Hospital),
		Month:     textnorm.Normalize(d.Month),
		Year:      textnorm.Normalize(d.Year),
	}
}

// CreateIndexMapping creates the bleve index mapping for documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Content field - analyzed for full-text search
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldContent, contentField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	nameField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldName, nameField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldPath, pathField)

	for _, name := range keywordFields {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(name, f)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Index is an in-memory full-text index. It is read-only once built.
type Index struct {
	idx    bleve.Index
	count  int
	failed int
}

// Build indexes docs into a new in-memory index keyed by document id.
// Documents bleve rejects are logged, counted and skipped.
func Build(docs []*domain.Document) (*Index, error) {
	idx, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	var failed int
	batch := idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, toRecord(d)); err != nil {
			failed++
			slog.Warn("Failed to add document to full-text index", "id", d.ID, "path", d.Path, "error", err)
			continue
		}
		if batch.Size() >= MaxBatchSize {
			if err := idx.Batch(batch); err != nil {
				_ = idx.Close()
				return nil, fmt.Errorf("batch index failed: %w", err)
			}
			batch = idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("final batch index failed: %w", err)
		}
	}
	if failed > 0 {
		slog.Warn("Full-text index built with skipped documents", "indexed", len(docs)-failed, "failed", failed)
	}
	return &Index{idx: idx, count: len(docs) - failed, failed: failed}, nil
}

// Len returns the number of documents in the index.
func (i *Index) Len() int {
	return i.count
}

// Failed returns the number of documents that could not be indexed.
func (i *Index) Failed() int {
	return i.failed
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

// Query is a keyword search with optional exact filters. Filter keys are
// domain field names.
type Query struct {
	Text    string
	Filters map[string]string
	Size    int
}

// Hit is one matching document.
type Hit struct {
	ID        string   `json:"id"`
	Path      string   `json:"ruta"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}

// Result is the outcome of a Search.
type Result struct {
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Search runs q against the index.
func (i *Index) Search(q Query) (*Result, error) {
	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = q.Size
	if req.Size <= 0 {
		req.Size = DefaultSize
	}
	req.Fields = []string{domain.FieldPath}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.FieldContent)

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &Result{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields[domain.FieldPath].(string); ok {
			hit.Path = v
		}
		if frags, ok := h.Fragments[domain.FieldContent]; ok {
			hit.Fragments = frags
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// buildQuery constructs a bleve query from a Query.
func buildQuery(q Query) query.Query {
	var searchQuery query.Query
	if strings.TrimSpace(q.Text) == "" {
		searchQuery = bleve.NewMatchAllQuery()
	} else {
		contentQuery := bleve.NewMatchQuery(q.Text)
		contentQuery.SetField(domain.FieldContent)

		nameQuery := bleve.NewMatchQuery(q.Text)
		nameQuery.SetField(domain.FieldName)
		nameQuery.SetBoost(NameBoost)

		searchQuery = bleve.NewDisjunctionQuery(contentQuery, nameQuery)
	}

	must := []query.Query{searchQuery}
	for field, value := range q.Filters {
		value = textnorm.Normalize(value)
		if value == "" {
			continue
		}
		if field == domain.FieldExtension && !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		must = append(must, tq)
	}
	if len(must) == 1 {
		return searchQuery
	}
	return bleve.NewConjunctionQuery(must...)
}
