package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// ClassifierClient submits image bytes to the AI classification backend.
type ClassifierClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClassifierClient(url string, timeout time.Duration, logger *slog.Logger) *ClassifierClient {
	return &ClassifierClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ClassificationResult is the parsed AI backend verdict.
type ClassificationResult struct {
	AnnotatedImage string   `json:"image"` // base64-encoded annotated overlay
	Detections     []string `json:"detections"`
	DangerLevel    int      `json:"danger_level"`
}

// FloodDetected reports whether any detected class label names flooding.
func (r ClassificationResult) FloodDetected() bool {
	for _, label := range r.Detections {
		if containsFold(label, "flood") {
			return true
		}
	}
	return false
}

// Classify posts the image as a multipart form and blocks until the backend
// answers or the client times out. No retries; a failed call is a failed
// classification.
func (c *ClassifierClient) Classify(ctx context.Context, fileName string, data []byte) (ClassificationResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return ClassificationResult{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ClassificationResult{}, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return ClassificationResult{}, fmt.Errorf("classifier error: status %d: %s", resp.StatusCode, respBody)
	}

	var result ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ClassificationResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
