package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/Cyclone1070/butterfi/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
				FinishReason: genai.FinishReasonStop,
			},
		},
	}
}

func TestGenerate_HappyPath_TextResponse(t *testing.T) {
	var gotModel string
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			return textResponse("Hello there!"), nil
		},
	}

	p := NewGeminiProvider(mockClient, "gemini-mock", nil)
	msg, err := p.Generate(context.Background(), &provider.GenerateRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "Hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini-mock", gotModel)
	assert.Equal(t, provider.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello there!", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestGenerate_HappyPath_ToolCall(t *testing.T) {
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{
						Content: &genai.Content{
							Parts: []*genai.Part{
								{FunctionCall: &genai.FunctionCall{Name: tool.NameSearchProtocols, Args: map[string]any{"query": "5% APR"}}},
								{FunctionCall: &genai.FunctionCall{ID: "abc", Name: tool.NameCheckPositions, Args: map[string]any{}}},
							},
						},
						FinishReason: genai.FinishReasonStop,
					},
				},
			}, nil
		},
	}

	p := NewGeminiProvider(mockClient, "gemini-mock", nil)
	msg, err := p.Generate(context.Background(), &provider.GenerateRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "recommend"}},
	})

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, tool.NameSearchProtocols, msg.ToolCalls[0].Name)
	assert.Equal(t, "5% APR", msg.ToolCalls[0].Args["query"])
	assert.NotEmpty(t, msg.ToolCalls[0].ID)
	assert.Equal(t, "abc", msg.ToolCalls[1].ID)
	assert.True(t, msg.RequestsTools())
}

func TestGenerate_PassesToolsSystemAndMIMEType(t *testing.T) {
	var captured *genai.GenerateContentConfig
	var capturedContents []*genai.Content
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			captured = config
			capturedContents = contents
			return textResponse("{}"), nil
		},
	}

	temp := float32(0)
	p := NewGeminiProvider(mockClient, "gemini-mock", &temp)
	_, err := p.Generate(context.Background(), &provider.GenerateRequest{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "be strict"},
			{Role: provider.RoleUser, Content: "hi"},
		},
		Tools: []tool.Declaration{{
			Name:        tool.NameSearchProtocols,
			Description: "search",
			Parameters: &tool.Schema{
				Type:       tool.TypeObject,
				Properties: map[string]*tool.Schema{"query": {Type: tool.TypeString}},
				Required:   []string{"query"},
			},
		}},
		ResponseMIMEType: provider.MIMETypeJSON,
	})

	require.NoError(t, err)
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be strict", captured.SystemInstruction.Parts[0].Text)
	assert.Equal(t, provider.MIMETypeJSON, captured.ResponseMIMEType)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, float32(0), *captured.Temperature)
	require.Len(t, captured.Tools, 1)
	fd := captured.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, genai.TypeObject, fd.Parameters.Type)
	assert.Equal(t, genai.TypeString, fd.Parameters.Properties["query"].Type)
	// system message is not sent as content
	require.Len(t, capturedContents, 1)
	assert.Equal(t, genai.RoleUser, capturedContents[0].Role)
}

func TestGenerate_SafetyBlock_ReturnsContentBlocked(t *testing.T) {
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}, nil
		},
	}

	_, err := NewGeminiProvider(mockClient, "m", nil).Generate(context.Background(), &provider.GenerateRequest{})
	assert.ErrorIs(t, err, provider.ErrContentBlocked)
}

func TestGenerate_NoCandidates_ReturnsEmpty(t *testing.T) {
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}

	_, err := NewGeminiProvider(mockClient, "m", nil).Generate(context.Background(), &provider.GenerateRequest{})
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestGenerate_APIErrors_Mapped(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		sentinel  error
		retryable bool
	}{
		{"auth", genai.APIError{Code: 401, Message: "bad key"}, provider.ErrAuthentication, false},
		{"rate limit", genai.APIError{Code: 429, Message: "slow"}, provider.ErrRateLimit, true},
		{"unavailable", genai.APIError{Code: 503, Message: "down"}, provider.ErrServiceUnavailable, true},
		{"bad request", genai.APIError{Code: 400, Message: "nope"}, provider.ErrInvalidRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockGeminiClient{
				GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return nil, tt.err
				},
			}
			_, err := NewGeminiProvider(mockClient, "m", nil).Generate(context.Background(), &provider.GenerateRequest{})
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, provider.IsRetryable(err))
		})
	}
}

func TestGenerate_CancelledContext_MapsToTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, ctx.Err()
		},
	}

	_, err := NewGeminiProvider(mockClient, "m", nil).Generate(ctx, &provider.GenerateRequest{})
	assert.ErrorIs(t, err, provider.ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_WithTimeout_BoundsCall(t *testing.T) {
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	_, err := NewGeminiProvider(mockClient, "m", nil).WithTimeout(10*time.Millisecond).Generate(context.Background(), &provider.GenerateRequest{})
	assert.ErrorIs(t, err, provider.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSetModel(t *testing.T) {
	p := NewGeminiProvider(&MockGeminiClient{}, "a", nil)
	p.SetModel("b")
	assert.Equal(t, "b", p.GetModel())
}

func TestEmbedder_TaskTypesAndShape(t *testing.T) {
	var tasks []string
	mockClient := &MockGeminiClient{
		EmbedContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			tasks = append(tasks, config.TaskType)
			out := &genai.EmbedContentResponse{}
			for i := range contents {
				out.Embeddings = append(out.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(i), 1}})
			}
			return out, nil
		},
	}

	e := NewEmbedder(mockClient, "")
	q, err := e.EmbedQuery(context.Background(), "apr")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, q)

	docs, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, []string{taskRetrievalQuery, taskRetrievalDocument}, tasks)
}

func TestEmbedder_SplitsLargeInputs(t *testing.T) {
	var sizes []int
	mockClient := &MockGeminiClient{
		EmbedContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			if len(contents) > maxEmbedBatch {
				return nil, errors.New("at most 100 requests can be in one batch")
			}
			sizes = append(sizes, len(contents))
			out := &genai.EmbedContentResponse{}
			for _, c := range contents {
				out.Embeddings = append(out.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(len(c.Parts[0].Text))}})
			}
			return out, nil
		},
	}
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	vecs, err := NewEmbedder(mockClient, "").EmbedDocuments(context.Background(), texts)

	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, sizes)
	require.Len(t, vecs, 250)
	assert.Equal(t, []float32{1}, vecs[0])
	assert.Equal(t, []float32{101}, vecs[100])
	assert.Equal(t, []float32{250}, vecs[249])
}

func TestEmbedder_CountMismatch_ReturnsError(t *testing.T) {
	mockClient := &MockGeminiClient{
		EmbedContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			return &genai.EmbedContentResponse{}, nil
		},
	}

	_, err := NewEmbedder(mockClient, "m").EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestEmbedder_APIError(t *testing.T) {
	mockClient := &MockGeminiClient{
		EmbedContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
			return nil, errors.New("boom")
		},
	}

	_, err := NewEmbedder(mockClient, "m").EmbedQuery(context.Background(), "x")
	assert.True(t, provider.IsRetryable(err))
}
