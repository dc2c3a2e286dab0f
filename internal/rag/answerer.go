package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/pkg/utils"
)

// Answerer synthesizes grounded answers from retrieved context.
//
// Two paths exist. The direct path sends exactly two messages (the answer
// prompt with the combined context substituted in, then the raw question)
// in a single completion call; it is used whenever conversation history is
// present, because the composed chain was observed to silently discard
// history. The chain path (reformulate, retrieve, stuff, complete) handles
// history-free questions and serves as the fallback when the direct call
// fails. The precedence is behavioral compatibility, not an optimization.
type Answerer struct {
	retriever  *Retriever
	completer  llm.Completer
	snippetLen int
	logger     *zap.Logger
}

// NewAnswerer creates an answerer. snippetLen is the source preview budget
// in characters (default 300).
func NewAnswerer(retriever *Retriever, completer llm.Completer, snippetLen int, logger *zap.Logger) *Answerer {
	if snippetLen <= 0 {
		snippetLen = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		retriever:  retriever,
		completer:  completer,
		snippetLen: snippetLen,
		logger:     logger,
	}
}

// Answer retrieves context for question and synthesizes an answer. Sources
// are derived from the matched chunks regardless of which path ran, and are
// still returned when only synthesis fails (alongside
// ErrAnswerSynthesisFailed). With debug set, the materialized history is
// attached to the result.
func (a *Answerer) Answer(ctx context.Context, question string, history []models.Turn, debug bool) (*models.AnswerResult, error) {
	retrieval, err := a.retriever.Retrieve(ctx, question, history)
	if err != nil {
		return nil, err
	}

	result := &models.AnswerResult{Sources: a.sources(retrieval.Matches)}
	if debug {
		result.DebugHistory = append([]models.Turn{}, history...)
	}

	var answer string
	if len(history) > 0 {
		answer, err = a.direct(ctx, question, retrieval.Context)
		if err == nil {
			result.UsedDirectPath = true
		} else {
			a.logger.Warn("direct synthesis failed, falling back to chain", zap.Error(err))
		}
	}
	if !result.UsedDirectPath {
		answer, err = a.chain(ctx, question, history, retrieval)
		if err != nil {
			return result, fmt.Errorf("%w: %v", models.ErrAnswerSynthesisFailed, err)
		}
	}
	if strings.TrimSpace(answer) == "" {
		return result, models.ErrAnswerSynthesisFailed
	}
	result.Answer = answer
	return result, nil
}

// direct performs the single-call synthesis: system prompt with the
// combined context substituted, plus the raw question. Exactly two messages.
func (a *Answerer) direct(ctx context.Context, question, combinedContext string) (string, error) {
	system := strings.ReplaceAll(answerPrompt, "{context}", combinedContext)
	return a.completer.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: question},
	})
}

// chain performs the stuffed-prompt synthesis: system prompt with the
// document context, history turns as messages, then the question.
func (a *Answerer) chain(ctx context.Context, question string, history []models.Turn, retrieval *Retrieval) (string, error) {
	system := strings.ReplaceAll(answerPrompt, "{context}", retrieval.DocsContext)
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	if len(history) > 0 {
		messages = append(messages, toMessages(history)...)
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: historyReminder})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return a.completer.Chat(ctx, messages)
}

// sources pairs each matched chunk's source with a truncated preview.
func (a *Answerer) sources(matches []models.Chunk) []models.Source {
	sources := make([]models.Source, len(matches))
	for i, ch := range matches {
		sources[i] = models.Source{
			Source:  ch.Source,
			Snippet: utils.Truncate(ch.Content, a.snippetLen),
		}
	}
	return sources
}
