// Package langid calls the external language-identification model. The model
// scores each sentence with the confidence that it is Swiss German; the
// pipeline decides admission from the score.
package langid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Classifier scores sentences. Predictions are 1:1 with the input: the
// implementation must return exactly one score per sentence, in order.
type Classifier interface {
	Predict(ctx context.Context, sentences []string) ([]float64, error)
}

// HTTPClassifier talks to a model served over HTTP: a JSON POST of
// {"sentences": [...]} answered with {"predictions": [...]}.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

type predictRequest struct {
	Sentences []string `json:"sentences"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// NewHTTPClassifier returns a classifier for the model at url. The timeout
// covers one prediction call; model inference on a cold start can be slow, so
// it should be generous.
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Predict scores the sentences. An empty input returns an empty result
// without a network call. A response with a prediction count different from
// the input count is an error: the caller relies on positional matching.
func (c *HTTPClassifier) Predict(ctx context.Context, sentences []string) ([]float64, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(predictRequest{Sentences: sentences})
	if err != nil {
		return nil, fmt.Errorf("encoding prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling language-id model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("language-id model returned status %s", resp.Status)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding prediction response: %w", err)
	}
	if len(out.Predictions) != len(sentences) {
		return nil, fmt.Errorf("language-id model returned %d predictions for %d sentences",
			len(out.Predictions), len(sentences))
	}
	return out.Predictions, nil
}
