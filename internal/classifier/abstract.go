package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/textutil"
)

const (
	abstractSystemPrompt        = "You are a helpful assistant that creates concise abstracts for articles. Always respond with only the abstract text, no explanations. Abstract must be 50-100 words."
	defaultAbstractContentChars = 3000
)

// ErrEmptyAbstract is returned when the model answers with blank text.
var ErrEmptyAbstract = errors.New("model returned an empty abstract")

// Abstractor writes short abstracts with a chat model.
type Abstractor struct {
	chat     ports.ChatClient
	maxChars int
	timeout  time.Duration
}

// NewAbstractor wraps a chat client. maxChars bounds the article text sent in the prompt.
func NewAbstractor(chat ports.ChatClient, maxChars int, timeout time.Duration) *Abstractor {
	if maxChars <= 0 {
		maxChars = defaultAbstractContentChars
	}
	return &Abstractor{chat: chat, maxChars: maxChars, timeout: timeout}
}

// Abstract returns a 2-3 sentence summary of the article.
func (a *Abstractor) Abstract(ctx context.Context, article domain.Article) (string, error) {
	content := article.BodyText
	if content == "" {
		content = article.Summary
	}
	if strings.TrimSpace(article.Title) == "" && strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("article %d has no text", article.ID)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Write a concise abstract of 2-3 sentences (50-100 words) for the article below. "+
		"It should state the main topic, the findings and why they matter.\n\n"+
		"Title: %s\n\nContent:\n%s\n\nRespond with the abstract text only.",
		article.Title, textutil.Truncate(content, a.maxChars))

	out, err := a.chat.Complete(ctx, abstractSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	out = textutil.CollapseSpace(out)
	if out == "" {
		return "", ErrEmptyAbstract
	}
	return out, nil
}
