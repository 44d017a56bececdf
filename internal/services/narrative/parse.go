package narrative

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in response")

// analysisResponse is the shape requested from the analysis service
type analysisResponse struct {
	RecommendedStrike       optionalFloat `json:"recommendedStrike"`
	Recommendation          string        `json:"recommendation"`
	RecommendationReasoning string        `json:"recommendationReasoning"`
	Warnings                []string      `json:"warnings"`
	RiskLevel               string        `json:"riskLevel"`
	KeyFactors              []string      `json:"keyFactors"`
}

// optionalFloat accepts a number, a numeric string ("$95" included) or null.
// Anything else decodes as absent rather than failing the whole object.
type optionalFloat struct {
	Value float64
	Valid bool
}

func (o *optionalFloat) UnmarshalJSON(data []byte) error {
	*o = optionalFloat{}
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*o = optionalFloat{Value: num, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimPrefix(strings.TrimSpace(s), "$")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*o = optionalFloat{Value: v, Valid: true}
		}
	}
	return nil
}

// extractJSON finds the first balanced {...} object in text, ignoring
// surrounding prose and markdown fences. Braces inside strings are skipped.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

// parseAnalysis extracts and decodes the analysis object
func parseAnalysis(text string) (*analysisResponse, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var resp analysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
