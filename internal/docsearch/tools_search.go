package docsearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/ranking"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query     string             `json:"query,omitempty" jsonschema_description:"Search query. May be empty when at least one filter is set"`
	Mode      string             `json:"mode,omitempty" jsonschema_description:"Ranking mode: flexible (default) or strict"`
	TopK      int                `json:"top_k,omitempty" jsonschema_description:"Maximum number of results"`
	Semantic  *bool              `json:"semantic,omitempty" jsonschema_description:"Enable the TF-IDF semantic signal"`
	Fuzzy     *bool              `json:"fuzzy,omitempty" jsonschema_description:"Enable fuzzy name matching"`
	Type      string             `json:"type,omitempty" jsonschema_description:"Filter by document type"`
	Extension string             `json:"extension,omitempty" jsonschema_description:"Filter by file extension (e.g., pdf, .xml)"`
	Folder    string             `json:"folder,omitempty" jsonschema_description:"Filter by folder"`
	Provider  string             `json:"provider,omitempty" jsonschema_description:"Filter by provider"`
	Hospital  string             `json:"hospital,omitempty" jsonschema_description:"Filter by hospital"`
	Month     string             `json:"month,omitempty" jsonschema_description:"Filter by month (e.g., ENERO)"`
	Year      string             `json:"year,omitempty" jsonschema_description:"Filter by year"`
	Tags      []string           `json:"tags,omitempty" jsonschema_description:"Require all of these tags"`
	Weights   map[string]float64 `json:"weights,omitempty" jsonschema_description:"Custom signal weights (exact, fuzzy, semantic, content, tokens, temporal, structural, boost_*)"`
	Audit     bool               `json:"audit,omitempty" jsonschema_description:"Include the per-signal score breakdown"`
	Profiling bool               `json:"profiling,omitempty" jsonschema_description:"Record per-phase timings"`
}

func (a SearchArgument) filters() ranking.Filters {
	return ranking.Filters{
		Type:      a.Type,
		Extension: a.Extension,
		Folder:    a.Folder,
		Provider:  a.Provider,
		Hospital:  a.Hospital,
		Month:     a.Month,
		Year:      a.Year,
		Tags:      a.Tags,
	}
}

// SearchHandler handles the search MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult("Search is not available. No document corpus has been loaded yet."), nil, nil
	}

	filters := args.filters()
	if strings.TrimSpace(args.Query) == "" && filters.Empty() {
		return errorResult("Query cannot be empty unless a filter is set"), nil, nil
	}
	if args.TopK < 0 {
		return errorResult("top_k cannot be negative"), nil, nil
	}

	sreq := h.service.NewRequest(args.Query)
	sreq.Filters = filters
	if args.Mode != "" {
		sreq.Mode = args.Mode
	}
	if args.TopK > 0 {
		sreq.TopK = args.TopK
	}
	if args.Semantic != nil {
		sreq.UseSemantic = *args.Semantic
	}
	if args.Fuzzy != nil {
		sreq.Fuzzy = *args.Fuzzy
	}
	if len(args.Weights) > 0 {
		sreq.Weights = args.Weights
	}
	sreq.Audit = args.Audit
	sreq.Profiling = args.Profiling

	resp := h.service.Engine().Search(sreq)
	return formatResponse(resp, args.Query), nil, nil
}

// formatResponse formats ranked results for MCP response.
func formatResponse(resp *ranking.Response, queryStr string) *mcp.CallToolResult {
	if len(resp.Results) == 0 {
		return textResult(fmt.Sprintf("No results found for query: %s", queryStr))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s' (%s mode, %d candidates, audit id %s):\n\n",
		len(resp.Results), queryStr, resp.Context.Mode, resp.Candidates, resp.Context.AuditID))

	for i, r := range resp.Results {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, displayName(r)))
		if r.Path != "" {
			sb.WriteString(fmt.Sprintf("**Path**: `%s`\n", r.Path))
		}
		sb.WriteString(fmt.Sprintf("**Type**: %s | **Relevance**: %.2f\n", r.Type, r.Relevance))
		if b := r.ScoreBreakdown; b != nil {
			sb.WriteString(fmt.Sprintf("**Scores**: exact=%.2f fuzzy=%.2f semantic=%.2f tokens=%.2f content=%.2f temporal=%.2f structural=%.2f boost=%.4f\n",
				b.Exact, b.Fuzzy, b.Semantic, b.Tokens, b.ContentScore, b.Temporal, b.Structural, b.Boosting))
		}
		sb.WriteString("\n")
	}

	if p := resp.Performance; p != nil {
		sb.WriteString(fmt.Sprintf("Total time: %.3f ms\n", p.TotalTimeMS))
	}

	return textResult(sb.String())
}

func displayName(r domain.Result) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_documents",
		Description: "Rank indexed documents against a query using exact, fuzzy, token, content, semantic, temporal and structural signals",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
