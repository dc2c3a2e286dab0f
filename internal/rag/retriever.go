package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/storage"
	"github.com/askdocs/askdocs/internal/vectorstore"
	"github.com/askdocs/askdocs/pkg/utils"
)

// Retrieval is the assembled input for answer synthesis.
type Retrieval struct {
	// Question is the reformulated question, or the original when no
	// history was supplied.
	Question string
	// DocsContext is the matched chunk contents joined by blank lines.
	DocsContext string
	// HistoryContext is the serialized conversation transcript.
	HistoryContext string
	// Context combines both, or whichever is non-empty.
	Context string
	// Matches are the top-k chunks, best first.
	Matches []models.Chunk
}

// Retriever reformulates questions against history and fetches the
// top-k matching chunks from the vector store.
type Retriever struct {
	store       *vectorstore.Store
	storage     storage.Storage
	completer   llm.Completer
	topK        int
	chunkBudget int
	logger      *zap.Logger
}

// NewRetriever creates a retriever. topK defaults to 6 and chunkBudget (max
// characters each matched chunk contributes to the context) to 500.
func NewRetriever(store *vectorstore.Store, st storage.Storage, completer llm.Completer, topK, chunkBudget int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	if chunkBudget <= 0 {
		chunkBudget = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		store:       store,
		storage:     st,
		completer:   completer,
		topK:        topK,
		chunkBudget: chunkBudget,
		logger:      logger,
	}
}

// Retrieve returns the context for question. When history is non-empty the
// question is first reformulated into a standalone form. An empty or absent
// index yields an empty context, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, history []models.Turn) (*Retrieval, error) {
	q := question
	if len(history) > 0 {
		reformulated, err := r.reformulate(ctx, question, history)
		if err != nil {
			return nil, err
		}
		q = reformulated
	}

	results, err := r.store.Search(ctx, q, r.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	matches, err := r.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve chunks: %w", err)
	}

	docsParts := make([]string, 0, len(matches))
	for _, ch := range matches {
		docsParts = append(docsParts, utils.Truncate(ch.Content, r.chunkBudget))
	}
	docsContext := strings.Join(docsParts, "\n\n")
	historyContext := transcript(history)

	r.logger.Debug("retrieval complete",
		zap.String("question", q),
		zap.Int("matches", len(matches)),
		zap.Int("docs_context_len", len(docsContext)),
		zap.Int("history_context_len", len(historyContext)),
	)

	return &Retrieval{
		Question:       q,
		DocsContext:    docsContext,
		HistoryContext: historyContext,
		Context:        combineContext(docsContext, historyContext),
		Matches:        matches,
	}, nil
}

// reformulate asks the completion service for a standalone question. A blank
// reply falls back to the original question.
func (r *Retriever) reformulate(ctx context.Context, question string, history []models.Turn) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: contextualizePrompt})
	messages = append(messages, toMessages(history)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	reply, err := r.completer.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("reformulate question: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return question, nil
	}
	if reply != question {
		r.logger.Debug("question reformulated", zap.String("original", question), zap.String("standalone", reply))
	}
	return reply, nil
}

// combineContext joins document and history context; either may be empty.
func combineContext(docs, history string) string {
	switch {
	case docs != "" && history != "":
		return docs + "\n\nConversation history:\n" + history
	case docs != "":
		return docs
	case history != "":
		return "Conversation history:\n" + history
	default:
		return ""
	}
}

// transcript serializes history turns as "User:"/"Assistant:" lines.
func transcript(history []models.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case models.RoleUser:
			lines = append(lines, "User: "+t.Content)
		default:
			lines = append(lines, "Assistant: "+t.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// toMessages converts history turns to chat messages.
func toMessages(history []models.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, t := range history {
		role := llm.RoleAssistant
		if t.Role == models.RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	return messages
}
