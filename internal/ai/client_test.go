package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzeResumeSendsMultipart(t *testing.T) {
	var gotPath, gotAuth string
	var gotFile []byte

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		file, _, err := r.FormFile("resume")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		buf := make([]byte, 16)
		n, _ := file.Read(buf)
		gotFile = buf[:n]
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 82, "strengths": ["go"]}`))
	}))
	defer upstream.Close()

	client := New(upstream.URL, "ai-key", 5*time.Second)
	raw, err := client.AnalyzeResume(context.Background(), "resume.pdf", []byte("pdf-bytes"))
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}

	if gotPath != "/resume-analysis/" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer ai-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if string(gotFile) != "pdf-bytes" {
		t.Fatalf("unexpected file contents %q", gotFile)
	}

	var parsed struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if parsed.Score != 82 {
		t.Fatalf("unexpected score %d", parsed.Score)
	}
}

func TestRoadmapUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	client := New(upstream.URL, "", 5*time.Second)
	if _, err := client.GenerateRoadmap(context.Background(), RoadmapRequest{TargetRole: "backend"}); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := New("", "", time.Second)
	if _, err := client.MockInterview(context.Background(), MockInterviewRequest{JobTitle: "dev"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
