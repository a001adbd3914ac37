package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrExtraction is returned when no JSON object can be recovered from a model response.
var ErrExtraction = errors.New("no structured data found in model response")

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```\\s*$")
	fencedBlock   = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")
)

// candidateFunc isolates the part of a response that should hold the JSON object.
type candidateFunc func(text string) (string, bool)

// strategies are tried in order; the first candidate that decodes to an object wins.
var strategies = []candidateFunc{
	strippedResponse,
	firstFencedBlock,
	outermostBraces,
}

// ExtractJSON recovers a single JSON object from a raw model response that may be
// wrapped in markdown fences or surrounded by prose.
func ExtractJSON(text string) (map[string]any, error) {
	var lastErr error
	for _, candidate := range strategies {
		body, ok := candidate(text)
		if !ok {
			continue
		}
		obj, err := decodeObject(body)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, lastErr)
	}
	return nil, ErrExtraction
}

func strippedResponse(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return s, s != ""
}

func firstFencedBlock(text string) (string, bool) {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	s := strings.TrimSpace(m[1])
	return s, s != ""
}

func outermostBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeObject(body string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("decoded value is not an object")
	}
	return obj, nil
}
