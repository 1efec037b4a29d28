package client

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// APIError is a non-2xx answer from the portal API. Detail carries the
// server's {"detail": ...} message when present; Fields carries a
// validation map of field name to messages.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(e.Fields))
		for _, name := range names {
			for _, msg := range e.Fields[name] {
				parts = append(parts, name+": "+msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return "request failed with status " + strconv.Itoa(e.StatusCode)
}

// decodeAPIError reads an error body that is either {"detail": "..."} or a
// field-validation map. Anything unparseable keeps just the status code.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if len(body) == 0 {
		return apiErr
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		apiErr.Detail = detail.Detail
		return apiErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		apiErr.Fields = make(map[string][]string, len(fields))
		for name, raw := range fields {
			var msgs []string
			if err := json.Unmarshal(raw, &msgs); err == nil {
				apiErr.Fields[name] = msgs
				continue
			}
			var msg string
			if err := json.Unmarshal(raw, &msg); err == nil {
				apiErr.Fields[name] = []string{msg}
			}
		}
		if len(apiErr.Fields) > 0 {
			return apiErr
		}
		apiErr.Fields = nil
	}
	return apiErr
}
