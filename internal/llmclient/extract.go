package llmclient

import (
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
)

// ExtractJSONValue pulls the first balanced JSON object or array out of
// free text, for backends that ignore a schema-constrained output request
// and just narrate around the JSON instead of returning it bare (e.g. a
// markdown code fence, or a sentence before/after the payload).
func ExtractJSONValue(text string) (json.RawMessage, error) {
	start := firstJSONStart(text)
	if start < 0 {
		return nil, asTransientError("no JSON value found in response", nil)
	}

	candidate := text[start:]
	open, closeCh := candidate[0], matchingClose(candidate[0])

	depth := 0
	inString := false
	escaped := false
	for i, r := range candidate {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
			// inside a string literal, structural characters don't count
		case r == rune(open):
			depth++
		case r == rune(closeCh):
			depth--
			if depth == 0 {
				value := candidate[:i+1]
				if _, _, _, err := jsonparser.Get([]byte(value)); err != nil {
					return nil, asTransientError("extracted candidate is not valid JSON", err)
				}
				return json.RawMessage(value), nil
			}
		}
	}
	return nil, asTransientError("unterminated JSON value in response", nil)
}

func firstJSONStart(text string) int {
	braceIdx := strings.IndexByte(text, '{')
	bracketIdx := strings.IndexByte(text, '[')
	switch {
	case braceIdx < 0:
		return bracketIdx
	case bracketIdx < 0:
		return braceIdx
	case braceIdx < bracketIdx:
		return braceIdx
	default:
		return bracketIdx
	}
}

func matchingClose(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ']'
}
