// Package retrieval exposes the knowledge index to the model as the
// search_protocols tool.
package retrieval

import (
	"context"
	"errors"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/knowledge"
	"github.com/Cyclone1070/butterfi/internal/tool"
	"github.com/Cyclone1070/butterfi/internal/workflow/toolmanager"
)

// ErrQueryRequired is returned for blank queries.
var ErrQueryRequired = errors.New("query is required")

// noResults is returned to the model when the index has nothing relevant.
const noResults = "No matching protocol information found."

// searcher is the consumer-side view of the knowledge index.
type searcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Document, error)
}

// SearchRequest is the decoded tool input.
type SearchRequest struct {
	Query string `json:"query"`
}

func (r *SearchRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrQueryRequired
	}
	return nil
}

func (r *SearchRequest) String() string { return r.Query }

type searchResult struct {
	content string
	docs    []knowledge.Document
}

func (r *searchResult) LLMContent() string { return r.content }
func (r *searchResult) Artifact() any      { return r.docs }

// SearchTool retrieves protocol and strategy documents relevant to a query.
type SearchTool struct {
	index searcher
	k     int
}

// NewSearchTool creates a SearchTool returning up to k documents. k <= 0 uses
// the index default.
func NewSearchTool(index searcher, k int) *SearchTool {
	return &SearchTool{index: index, k: k}
}

func (t *SearchTool) Name() string { return tool.NameSearchProtocols }

func (t *SearchTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: tool.NameSearchProtocols,
		Description: "Search the DeFi knowledge base for staking protocols, strategies, yields and risks. " +
			"Use it for any question about which protocol or strategy to pick.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"query": {
					Type:        tool.TypeString,
					Description: "Natural language search query, e.g. \"low risk WMOD staking\"",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTool) Input() any { return &SearchRequest{} }

// Execute runs the search. The documents are carried as the artifact; the
// model sees their contents separated by blank lines.
func (t *SearchTool) Execute(ctx context.Context, input any) (toolmanager.Result, error) {
	req, ok := input.(*SearchRequest)
	if !ok {
		return nil, errors.New("unexpected input type")
	}

	docs, err := t.index.Search(ctx, req.Query, t.k)
	if err != nil {
		return nil, err
	}
	return &searchResult{content: formatDocs(docs), docs: docs}, nil
}

func formatDocs(docs []knowledge.Document) string {
	if len(docs) == 0 {
		return noResults
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
