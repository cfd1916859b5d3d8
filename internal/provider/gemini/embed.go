package gemini

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/butterfi/internal/provider"
	"google.golang.org/genai"
)

// maxEmbedBatch is the most contents the API accepts in one embedding request.
const maxEmbedBatch = 100

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// Embedder generates embeddings with a Gemini embedding model.
type Embedder struct {
	client GeminiClient
	model  string
}

// NewEmbedder creates an Embedder. An empty model selects gemini-embedding-001.
func NewEmbedder(client GeminiClient, model string) *Embedder {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &Embedder{client: client, model: model}
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds documents for storage, one vector per text in input
// order. Large inputs are split across requests.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end], taskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeEmpty,
			Message: fmt.Sprintf("expected %d embeddings", len(texts)),
		}
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &provider.ProviderError{
				Code:    provider.ErrorCodeEmpty,
				Message: fmt.Sprintf("embedding %d is empty", i),
			}
		}
		out[i] = emb.Values
	}
	return out, nil
}
