package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iofold/evalcore/agreement"
	"github.com/iofold/evalcore/clients/openai"
)

const defaultJudgeModel = "gpt-4.1-mini"

// Prices per million tokens for the default judge model, used to estimate
// per-trace cost from usage counts
const (
	defaultPromptCostPerMTokUSD     = 0.40
	defaultCompletionCostPerMTokUSD = 1.60
)

const judgeSystemPrompt = `You are an evaluation judge for AI agent executions. You are given a judging rubric, a task, and the recorded execution trace.

Score how well the execution satisfies the rubric.

Respond with ONLY a JSON object of the form:
{"score": <number between 0.0 and 1.0>, "feedback": "<one or two sentences explaining the score>"}`

// LLMJudgeRunner implements agreement.JudgeRunner by prompting an
// OpenAI-compatible model with the candidate's rubric and the trace.
// Candidates that are sandboxed code instead of rubric prompts need a
// different runner; this is the default one, the way the package ships
// default clients for every interface.
type LLMJudgeRunner struct {
	client interface {
		ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
	}
	model                    string
	promptCostPerMTokUSD     float64
	completionCostPerMTokUSD float64
}

// NewLLMJudgeRunner creates a judge runner backed by an OpenAI-compatible
// endpoint. baseURL may be empty for the OpenAI default, or point at an AI
// gateway. model may be empty for the default judge model.
func NewLLMJudgeRunner(apiKey *string, baseURL string, model string) (*LLMJudgeRunner, error) {
	key, err := loadEnvVar(apiKey, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(*key)
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}

	if model == "" {
		model = defaultJudgeModel
	}

	return &LLMJudgeRunner{
		client:                   client,
		model:                    model,
		promptCostPerMTokUSD:     defaultPromptCostPerMTokUSD,
		completionCostPerMTokUSD: defaultCompletionCostPerMTokUSD,
	}, nil
}

// judgeResponse is the JSON shape the model is asked to produce
type judgeResponse struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Run implements agreement.JudgeRunner
func (r *LLMJudgeRunner) Run(ctx context.Context, candidateSpec string, trace agreement.LabeledTrace) (*agreement.Verdict, error) {
	userMessage, err := buildJudgeMessage(candidateSpec, trace)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := r.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatMessage{
			{Role: openai.MessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.MessageRoleUser, Content: userMessage},
		},
		MaxCompletionTokens: 300,
		ResponseFormat:      &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("judge invocation failed: %w", err)
	}
	durationMS := time.Since(start).Milliseconds()

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	var parsed judgeResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse judge verdict %q: %w", content, err)
	}

	score := parsed.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	cost := float64(resp.Usage.PromptTokens)*r.promptCostPerMTokUSD/1e6 +
		float64(resp.Usage.CompletionTokens)*r.completionCostPerMTokUSD/1e6

	return &agreement.Verdict{
		Score:      score,
		Feedback:   parsed.Feedback,
		DurationMS: durationMS,
		CostUSD:    cost,
	}, nil
}

// buildJudgeMessage serializes the rubric, task and trace into the user turn
func buildJudgeMessage(candidateSpec string, trace agreement.LabeledTrace) (string, error) {
	payload := map[string]any{
		"task":          trace.Task,
		"task_metadata": trace.TaskMetadata,
		"trace":         trace.Trace,
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode trace %s: %w", trace.TraceID, err)
	}

	return fmt.Sprintf("Rubric:\n%s\n\nExecution to judge:\n%s", candidateSpec, encoded), nil
}
