// Package generator holds the HTTP client for the external quiz-generation
// service. The service is an opaque collaborator: it takes a topic,
// difficulty, question count and optional source text, and answers with
// letter-keyed raw questions.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"timelyhub-quiz-engine/internal/domain"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Topic          string `json:"topic"`
	Difficulty     string `json:"difficulty"`
	NumQuestions   int    `json:"numQuestions"`
	SourceDocument string `json:"sourceDocument,omitempty"`
}

type generateResponse struct {
	Data struct {
		Questions []domain.RawQuestion `json:"questions"`
	} `json:"data"`
}

// Generate requests a fresh question set. Any non-2xx status or a response
// that does not decode into questions is reported as ErrGenerationFailed; the
// caller decides whether the learner retries.
func (c *Client) Generate(ctx context.Context, req domain.QuizRequest) ([]domain.RawQuestion, error) {
	body, err := json.Marshal(generateRequest{
		Topic:          req.Topic,
		Difficulty:     req.Difficulty,
		NumQuestions:   req.NumQuestions,
		SourceDocument: req.SourceText,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/quiz/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", domain.ErrGenerationFailed, res.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrGenerationFailed, err)
	}
	if len(decoded.Data.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", domain.ErrGenerationFailed)
	}
	return decoded.Data.Questions, nil
}
