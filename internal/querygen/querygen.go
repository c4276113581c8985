// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package querygen turns a research topic into keyword search queries.
// The OpenAI generator asks a chat model for boolean-operator queries;
// Static serves queries the user supplied directly.
package querygen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// ErrMissingAPIKey is returned when the OpenAI generator has no credential.
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// ErrNoQueries is returned when generation produced nothing usable.
var ErrNoQueries = errors.New("no search queries generated")

// Generator produces search queries for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string) ([]string, error)
}

const systemPrompt = `You are an expert at converting research interests into effective academic search queries.
Given a description of research interests or topics, generate 3-5 specific keyword-based search queries that will find relevant academic papers. Focus on conceptual papers, like reviews.

Guidelines:
- Use Boolean operators (AND, OR) and quotation marks for precise searching
- Focus on technical and specific terms used in academic literature
- Keep queries to 2-4 key terms connected with operators
- Format example: "machine learning" AND healthcare
- Format example: "neural networks" AND "computer vision" AND optimization
- Avoid complete sentences or natural language queries
- Each query should target a specific aspect of the research topic`

// OpenAI generates queries with a chat completion model.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	log         *zap.Logger
}

// NewOpenAI builds a generator from cfg. Extra options are appended after
// the key and base URL, so callers can swap the HTTP client or retry policy.
func NewOpenAI(cfg types.QueryGenConfig, log *zap.Logger, opts ...option.RequestOption) (*OpenAI, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	all := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		all = append(all, option.WithBaseURL(cfg.BaseURL))
	}
	all = append(all, opts...)

	model := cfg.Model
	if model == "" {
		model = types.DefaultConfig().QueryGen.Model
	}
	return &OpenAI{
		client:      openai.NewClient(all...),
		model:       model,
		temperature: cfg.Temperature,
		log:         logging.OrNop(log).Named("querygen"),
	}, nil
}

// Generate asks the model for queries about topic.
func (g *OpenAI) Generate(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is empty")
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Generate keyword-based search queries for: " + topic),
		},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("generating queries: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoQueries
	}

	queries := ParseQueries(resp.Choices[0].Message.Content)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	g.log.Info("generated queries", zap.String("model", g.model), zap.Strings("queries", queries))
	return queries, nil
}

var listPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseQueries splits model output into one query per line, dropping list
// numbering, bullets, and blank lines. Quotes and operators are kept.
func ParseQueries(text string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		q := strings.TrimSpace(listPrefix.ReplaceAllString(sc.Text(), ""))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Static returns a fixed query list regardless of topic.
type Static []string

// Generate returns the non-blank queries.
func (s Static) Generate(context.Context, string) ([]string, error) {
	var out []string
	for _, q := range s {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoQueries
	}
	return out, nil
}

// ReadQueries reads one query per line from r, skipping blank lines and
// '#' comments.
func ReadQueries(r io.Reader) (Static, error) {
	var out Static
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return out, nil
}
