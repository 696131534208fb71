package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markdave123-py/integraldb/internal/core"
)

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
}

// NewGeminiEmbedder connects to the Gemini API. dim > 0 enforces the vector length of every response.
func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", core.ErrConfiguration)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dim: dim}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedText embeds one text with the retrieval task type matching its use.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string, task core.TaskType) ([]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = geminiTaskType(task)

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: %w: empty embedding in response", core.ErrEmbed, core.ErrFatal)
	}
	if g.dim > 0 && len(resp.Embedding.Values) != g.dim {
		return nil, fmt.Errorf("%w: %w: embedding has %d dimensions, want %d",
			core.ErrEmbed, core.ErrFatal, len(resp.Embedding.Values), g.dim)
	}
	return resp.Embedding.Values, nil
}

func geminiTaskType(task core.TaskType) genai.TaskType {
	switch task {
	case core.TaskQuery:
		return genai.TaskTypeRetrievalQuery
	default:
		return genai.TaskTypeRetrievalDocument
	}
}

// classify maps SDK errors (gRPC status or REST googleapi.Error) onto the embedding error classes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrTransient, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrRateLimited, err)
		case gerr.Code >= 500:
			return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrTransient, err)
		case gerr.Code >= 400:
			return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrFatal, err)
		}
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrRateLimited, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrTransient, err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied,
		codes.Unauthenticated, codes.NotFound, codes.OutOfRange, codes.Unimplemented:
		return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrFatal, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w: %w", core.ErrEmbed, core.ErrTransient, err)
}
