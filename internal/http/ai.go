package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/addu10/CareerBridge/internal/ai"
)

func (s *Server) handleResumeAnalysis(w http.ResponseWriter, r *http.Request) {
	filename, resume, ok := s.readResumeUpload(w, r)
	if !ok {
		return
	}

	key := analysisKey("resume", resume)
	if cached, err := s.cache.GetAnalysis(r.Context(), key); err == nil {
		writeRaw(w, cached)
		return
	}

	result, err := s.ai.AnalyzeResume(r.Context(), filename, resume)
	if err != nil {
		writeAIError(w, err)
		return
	}
	s.cache.SetAnalysis(r.Context(), key, result)
	writeRaw(w, result)
}

func (s *Server) handleATSReview(w http.ResponseWriter, r *http.Request) {
	filename, resume, ok := s.readResumeUpload(w, r)
	if !ok {
		return
	}
	jobDescription := r.FormValue("job_description")
	if jobDescription == "" {
		writeFieldErrors(w, map[string][]string{
			"job_description": {"This field is required."},
		})
		return
	}

	key := analysisKey("ats", append(resume, []byte(jobDescription)...))
	if cached, err := s.cache.GetAnalysis(r.Context(), key); err == nil {
		writeRaw(w, cached)
		return
	}

	result, err := s.ai.ReviewATS(r.Context(), filename, resume, jobDescription)
	if err != nil {
		writeAIError(w, err)
		return
	}
	s.cache.SetAnalysis(r.Context(), key, result)
	writeRaw(w, result)
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var req ai.RoadmapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.TargetRole == "" {
		writeFieldErrors(w, map[string][]string{
			"target_role": {"This field is required."},
		})
		return
	}

	payload, _ := json.Marshal(req)
	key := analysisKey("roadmap", payload)
	if cached, err := s.cache.GetAnalysis(r.Context(), key); err == nil {
		writeRaw(w, cached)
		return
	}

	result, err := s.ai.GenerateRoadmap(r.Context(), req)
	if err != nil {
		writeAIError(w, err)
		return
	}
	s.cache.SetAnalysis(r.Context(), key, result)
	writeRaw(w, result)
}

func (s *Server) handleMockInterview(w http.ResponseWriter, r *http.Request) {
	var req ai.MockInterviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.JobTitle == "" {
		writeFieldErrors(w, map[string][]string{
			"job_title": {"This field is required."},
		})
		return
	}

	// Interview question sets are not cached: each request should produce a
	// fresh set even for the same job title.
	result, err := s.ai.MockInterview(r.Context(), req)
	if err != nil {
		writeAIError(w, err)
		return
	}
	writeRaw(w, result)
}

func (s *Server) readResumeUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_form")
		return "", nil, false
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		writeFieldErrors(w, map[string][]string{
			"resume": {"No file was submitted."},
		})
		return "", nil, false
	}
	defer file.Close()

	resume, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_form")
		return "", nil, false
	}
	return header.Filename, resume, true
}

func analysisKey(kind string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return kind + ":" + hex.EncodeToString(sum[:])
}

func writeAIError(w http.ResponseWriter, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		writeDetail(w, http.StatusServiceUnavailable, "AI service is not configured")
		return
	}
	writeDetail(w, http.StatusBadGateway, "AI service request failed")
}

func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
