package classifier

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/textutil"
)

const (
	schemaName             = "classification.schema.json"
	defaultMaxContentChars = 2000
	classifySystemPrompt   = "You are a helpful assistant that classifies articles. Always respond with valid JSON."
)

//go:embed schema/classification.schema.json
var classificationSchema string

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func responseSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaName, strings.NewReader(classificationSchema)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaName)
	})
	return compiledSchema, compileErr
}

// LLMOptions tunes the prompt and call budget.
type LLMOptions struct {
	MaxContentChars int
	Timeout         time.Duration
}

// LLMClassifier asks a chat model to place an article in both taxonomies.
type LLMClassifier struct {
	chat ports.ChatClient
	opts LLMOptions
	log  *slog.Logger
	now  func() time.Time
}

var _ ports.Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier wraps a chat client.
func NewLLMClassifier(chat ports.ChatClient, opts LLMOptions, logger *slog.Logger) *LLMClassifier {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = defaultMaxContentChars
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LLMClassifier{chat: chat, opts: opts, log: logger, now: time.Now}
}

// Method implements ports.Classifier.
func (c *LLMClassifier) Method() domain.ClassificationMethod {
	return domain.MethodLLM
}

// Classify never fails: a broken exchange yields empty lists with zero confidence
// and the error recorded as reasoning.
func (c *LLMClassifier) Classify(ctx context.Context, article domain.Article) domain.Classification {
	result := domain.Classification{
		ArticleID:      article.ID,
		Method:         domain.MethodLLM,
		CEAreas:        []string{},
		AITechnologies: []string{},
		Model:          c.chat.Model(),
		ClassifiedAt:   c.now().UTC(),
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	raw, err := c.chat.Complete(ctx, classifySystemPrompt, c.prompt(article))
	result.RawResponse = raw
	if err != nil {
		c.log.Warn("llm classification failed", "article_id", article.ID, "error", err)
		result.Reasoning = "error: " + err.Error()
		return result
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		c.log.Warn("llm response rejected", "article_id", article.ID, "error", err)
		result.Reasoning = "error: " + err.Error()
		return result
	}

	result.CEAreas = filterLabels(parsed.CEAreas, domain.CEAreas)
	result.AITechnologies = filterLabels(parsed.AITechnologies, domain.AITechnologies)
	result.Confidence = clamp01(parsed.Confidence)
	result.Reasoning = parsed.Reasoning
	return result
}

func (c *LLMClassifier) prompt(article domain.Article) string {
	content := article.BodyText
	if content == "" {
		content = article.Summary
	}
	content = textutil.Truncate(content, c.opts.MaxContentChars)

	var b strings.Builder
	b.WriteString("You are an expert in Civil Engineering and Artificial Intelligence. ")
	b.WriteString("Analyze the following article and classify it.\n\n")
	fmt.Fprintf(&b, "Article Title: %s\n\n", article.Title)
	fmt.Fprintf(&b, "Article Content (first %d characters):\n%s\n\n", c.opts.MaxContentChars, content)
	b.WriteString("Classify this article into:\n")
	fmt.Fprintf(&b, "1. Civil Engineering Areas (can be multiple): %s\n", strings.Join(domain.CEAreas, ", "))
	fmt.Fprintf(&b, "2. AI Technologies (can be multiple): %s\n\n", strings.Join(domain.AITechnologies, ", "))
	b.WriteString("Respond ONLY with a JSON object in this exact format:\n")
	b.WriteString(`{"ce_areas": ["Area1", "Area2"], "ai_technologies": ["Tech1", "Tech2"], "confidence": 0.85, "reasoning": "Brief explanation"}`)
	b.WriteString("\n\nIf the article is not relevant to both Civil Engineering AND AI, return empty arrays.")
	return b.String()
}

type llmResponse struct {
	CEAreas        []string `json:"ce_areas"`
	AITechnologies []string `json:"ai_technologies"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
}

// parseResponse strips markdown fences, validates the JSON against the schema and decodes it.
func parseResponse(raw string) (llmResponse, error) {
	payload := stripFences(raw)
	if payload == "" {
		return llmResponse{}, fmt.Errorf("empty response")
	}

	schema, err := responseSchema()
	if err != nil {
		return llmResponse{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return llmResponse{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return llmResponse{}, fmt.Errorf("schema validation: %w", err)
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return llmResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// stripFences removes ```json fences and any prose around the outermost object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
