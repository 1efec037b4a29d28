package ai

// The AI analysis service is an external HTTP dependency. This client owns
// the wire contract and nothing else; responses are passed through opaque.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("ai: service not configured")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// AnalyzeResume scores a resume document. Response shape:
// {score, strengths, weaknesses, improvements}.
func (c *Client) AnalyzeResume(ctx context.Context, filename string, resume []byte) (json.RawMessage, error) {
	return c.postFile(ctx, "/resume-analysis/", filename, resume, nil)
}

// ReviewATS runs the ATS keyword/format review of a resume against a job
// description.
func (c *Client) ReviewATS(ctx context.Context, filename string, resume []byte, jobDescription string) (json.RawMessage, error) {
	return c.postFile(ctx, "/ats-review/", filename, resume, map[string]string{
		"job_description": jobDescription,
	})
}

type RoadmapRequest struct {
	CurrentSkills   []string `json:"current_skills"`
	TargetRole      string   `json:"target_role"`
	ExperienceLevel string   `json:"experience_level"`
}

func (c *Client) GenerateRoadmap(ctx context.Context, req RoadmapRequest) (json.RawMessage, error) {
	return c.postJSON(ctx, "/career-roadmap/", req)
}

type MockInterviewRequest struct {
	JobTitle        string   `json:"job_title"`
	ExperienceLevel string   `json:"experience_level"`
	FocusAreas      []string `json:"focus_areas,omitempty"`
}

func (c *Client) MockInterview(ctx context.Context, req MockInterviewRequest) (json.RawMessage, error) {
	return c.postJSON(ctx, "/mock-interview/", req)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, path, "application/json", bytes.NewReader(body))
}

func (c *Client) postFile(ctx context.Context, path, filename string, file []byte, fields map[string]string) (json.RawMessage, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("resume", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file); err != nil {
		return nil, err
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return c.send(ctx, path, writer.FormDataContentType(), &buf)
}

func (c *Client) send(ctx context.Context, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai: upstream status %d", resp.StatusCode)
	}
	return json.RawMessage(data), nil
}
