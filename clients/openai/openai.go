package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/iofold/evalcore/internal/retry"
)

const openaiBaseURL = "https://api.openai.com/v1"

// NewClient creates a new OpenAIClient
func NewClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		APIKey:      apiKey,
		BaseURL:     openaiBaseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
	}
}

// SetBaseURL points the client at a different OpenAI-compatible endpoint,
// such as an AI gateway
func (c *OpenAIClient) SetBaseURL(baseURL string) {
	c.BaseURL = baseURL
}

// ChatCompletion sends a chat completion request with retry logic
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	url := c.BaseURL + "/chat/completions"

	bodyBytes, err := c.createAndRunRetryableRequest(ctx, url, req, "chat")
	if err != nil {
		return nil, err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, &ChatCompletionError{
			Message: fmt.Sprintf("failed to parse chat completion response: %v", err),
			RawBody: json.RawMessage(bodyBytes),
		}
	}

	return &chatResp, nil
}

// isRetryableError determines if an error should trigger a retry
func (c *OpenAIClient) isRetryableError(err error, statusCode int, responseBody []byte) bool {
	// Retry on server errors (5xx)
	if statusCode >= 500 {
		return true
	}

	// Retry on rate limiting (429)
	if statusCode == 429 {
		return true
	}

	// Retry on network errors, which never produce a status code
	if statusCode == 0 && err != nil {
		return true
	}

	return false
}

// createAndRunRetryableRequest executes an HTTP request with retry logic
func (c *OpenAIClient) createAndRunRetryableRequest(ctx context.Context, url string, requestBody any, apiName string) ([]byte, error) {
	opts := retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: c.isRetryableError,
		Logger:       log.Printf,
		APIName:      "OpenAI " + apiName,
	}

	return retry.Execute(ctx, opts, func(attempt int) ([]byte, int, error) {
		body, err := json.Marshal(requestBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal %s request: %w", apiName, err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(httpReq)
		if err != nil {
			return nil, 0, err
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("failed to read %s response body: %w", apiName, err)
		}

		if resp.StatusCode != http.StatusOK {
			message := fmt.Sprintf("openai %s API error %d", apiName, resp.StatusCode)
			var errorResp ChatCompletionResponseError
			if json.Unmarshal(bodyBytes, &errorResp) == nil && errorResp.Error.Message != "" {
				message = fmt.Sprintf("%s: %s", message, errorResp.Error.Message)
			}
			return bodyBytes, resp.StatusCode, &ChatCompletionError{
				Message:    message,
				StatusCode: resp.StatusCode,
				RawBody:    json.RawMessage(bodyBytes),
			}
		}

		return bodyBytes, resp.StatusCode, nil
	})
}
