package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iofold/evalcore/agreement"
	"github.com/iofold/evalcore/clients/openai"
)

type stubChatClient struct {
	response *openai.ChatCompletionResponse
	err      error
	lastReq  openai.ChatCompletionRequest
}

func (s *stubChatClient) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	s.lastReq = req
	return s.response, s.err
}

func chatResponse(content string, promptTokens, completionTokens int) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatMessage{Role: openai.MessageRoleAssistant, Content: content},
		}},
		Usage: openai.ChatCompletionUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

func testRunner(client *stubChatClient) *LLMJudgeRunner {
	return &LLMJudgeRunner{
		client:                   client,
		model:                    defaultJudgeModel,
		promptCostPerMTokUSD:     defaultPromptCostPerMTokUSD,
		completionCostPerMTokUSD: defaultCompletionCostPerMTokUSD,
	}
}

func TestLLMJudgeRunner_Run(t *testing.T) {
	client := &stubChatClient{
		response: chatResponse(`{"score": 0.8, "feedback": "mostly satisfies the rubric"}`, 1000, 500),
	}
	runner := testRunner(client)

	trace := agreement.LabeledTrace{
		TraceID:    "t1",
		HumanScore: 1,
		Task:       map[string]any{"input": "summarize the document"},
		Trace:      map[string]any{"steps": []any{"read", "summarize"}},
	}

	verdict, err := runner.Run(context.Background(), "Reward concise, faithful summaries.", trace)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if verdict.Score != 0.8 {
		t.Errorf("Expected score 0.8, got %f", verdict.Score)
	}
	if verdict.Feedback != "mostly satisfies the rubric" {
		t.Errorf("Unexpected feedback: %q", verdict.Feedback)
	}

	// 1000 prompt tokens at $0.40/MTok plus 500 completion tokens at
	// $1.60/MTok
	wantCost := 1000*defaultPromptCostPerMTokUSD/1e6 + 500*defaultCompletionCostPerMTokUSD/1e6
	if verdict.CostUSD != wantCost {
		t.Errorf("Expected cost %f, got %f", wantCost, verdict.CostUSD)
	}

	if client.lastReq.Model != defaultJudgeModel {
		t.Errorf("Expected model %s, got %s", defaultJudgeModel, client.lastReq.Model)
	}
	if client.lastReq.ResponseFormat == nil || client.lastReq.ResponseFormat.Type != "json_object" {
		t.Error("Expected json_object response format")
	}
	if len(client.lastReq.Messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(client.lastReq.Messages))
	}
	userTurn := client.lastReq.Messages[1].Content
	if !strings.Contains(userTurn, "Reward concise, faithful summaries.") {
		t.Error("Expected rubric in the user turn")
	}
	if !strings.Contains(userTurn, "summarize the document") {
		t.Error("Expected task payload in the user turn")
	}
}

func TestLLMJudgeRunner_ClampsScore(t *testing.T) {
	cases := []struct {
		content string
		want    float64
	}{
		{`{"score": 1.7, "feedback": "over"}`, 1},
		{`{"score": -0.3, "feedback": "under"}`, 0},
	}
	for _, tc := range cases {
		runner := testRunner(&stubChatClient{response: chatResponse(tc.content, 1, 1)})
		verdict, err := runner.Run(context.Background(), "rubric", agreement.LabeledTrace{TraceID: "t1"})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if verdict.Score != tc.want {
			t.Errorf("Content %s: expected score %f, got %f", tc.content, tc.want, verdict.Score)
		}
	}
}

func TestLLMJudgeRunner_ClientErrorPropagates(t *testing.T) {
	runner := testRunner(&stubChatClient{err: errors.New("gateway timeout")})
	if _, err := runner.Run(context.Background(), "rubric", agreement.LabeledTrace{TraceID: "t1"}); err == nil {
		t.Error("Expected error from failing client")
	}
}

func TestLLMJudgeRunner_RejectsUnparseableVerdict(t *testing.T) {
	runner := testRunner(&stubChatClient{response: chatResponse("the execution looks fine to me", 1, 1)})
	if _, err := runner.Run(context.Background(), "rubric", agreement.LabeledTrace{TraceID: "t1"}); err == nil {
		t.Error("Expected error for non-JSON verdict")
	}
}

func TestLLMJudgeRunner_RejectsEmptyChoices(t *testing.T) {
	runner := testRunner(&stubChatClient{response: &openai.ChatCompletionResponse{}})
	if _, err := runner.Run(context.Background(), "rubric", agreement.LabeledTrace{TraceID: "t1"}); err == nil {
		t.Error("Expected error for empty choices")
	}
}
