package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"wellrag/internal/completion"
	"wellrag/internal/embedding"
	"wellrag/internal/vectorstore"
)

const (
	// DefaultTopK is the number of segments retrieved per question.
	DefaultTopK = 3
	// ContextSeparator joins retrieved segment contents.
	ContextSeparator = "\n\n---\n\n"
	// NotFoundAnswer is the reply the model is told to give when the
	// context does not contain the answer.
	NotFoundAnswer = "Not found in WELL v2."
)

// Retriever turns a query vector into a context block.
type Retriever struct {
	store vectorstore.Storage
}

func NewRetriever(store vectorstore.Storage) *Retriever {
	return &Retriever{store: store}
}

// Retrieve runs one nearest-neighbor search and joins the contents in the
// store's order. No results yield an empty context.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, k int) (string, error) {
	docs, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, ContextSeparator), nil
}

// BuildPrompt embeds the question and context into the assistant template.
func BuildPrompt(question, contextBlock string) string {
	var b strings.Builder
	b.WriteString("\nYou are a WELL Building Standard assistant.\n")
	b.WriteString("Answer ONLY using the context below.\n")
	fmt.Fprintf(&b, "If the answer is missing, respond %q\n\n", NotFoundAnswer)
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	if contextBlock != "" {
		b.WriteString(contextBlock)
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer:\n")
	return b.String()
}

// RAGService answers questions from the indexed standard. Each call is a
// single embed, retrieve, complete pass with no memory of earlier calls.
type RAGService struct {
	embedder  embedding.Embedder
	retriever *Retriever
	completer completion.Completer
	topK      int
	logger    *slog.Logger
}

func NewRAGService(emb embedding.Embedder, store vectorstore.Storage, completer completion.Completer, topK int, logger *slog.Logger) *RAGService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RAGService{
		embedder:  emb,
		retriever: NewRetriever(store),
		completer: completer,
		topK:      topK,
		logger:    logger,
	}
}

// Answer returns the model's raw reply for question.
func (s *RAGService) Answer(ctx context.Context, question string) (string, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	contextBlock, err := s.retriever.Retrieve(ctx, vec, s.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	s.logger.Debug("retrieved context", "top_k", s.topK, "bytes", len(contextBlock))
	answer, err := s.completer.Complete(ctx, BuildPrompt(question, contextBlock))
	if err != nil {
		return "", fmt.Errorf("complete answer: %w", err)
	}
	s.logger.Info("answered question", "question_len", len(question), "answer_len", len(answer))
	return answer, nil
}
