package answer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// llmResponse is the JSON shape the model is asked to produce. Thoughts
// and citations are lenient because models drift on both.
type llmResponse struct {
	Answer    string       `json:"answer"`
	Thoughts  flexString   `json:"thoughts"`
	Citations flexIntSlice `json:"citations"`
}

// flexString accepts a JSON string or an array of strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		*f = flexString(strings.Join(parts, "\n"))
		return nil
	}
	return fmt.Errorf("thoughts is neither a string nor a string array")
}

// flexIntSlice accepts numbers or numeric strings, in a bare array.
type flexIntSlice []int

func (f *flexIntSlice) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				out = append(out, n)
				continue
			}
		}
		return fmt.Errorf("citation %s is not a number", item)
	}
	*f = out
	return nil
}

// parseResponse decodes the model output, tolerating a Markdown code
// fence around the JSON body.
func parseResponse(content string) (*llmResponse, error) {
	body := stripFences(content)
	var parsed llmResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return nil, fmt.Errorf("model response has no answer field")
	}
	return &parsed, nil
}

// stripFences removes a surrounding ```json ... ``` fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractMarkers returns the [n] markers appearing in the answer text, in
// order of appearance, duplicates included.
func extractMarkers(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	markers := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		markers = append(markers, n)
	}
	return markers
}
