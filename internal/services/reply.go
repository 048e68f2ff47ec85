package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aprendu/aprendu-backend/internal/dto"
)

var (
	// ```json\n{...}\n``` and variants without the language tag or newlines
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json|JSON)?\\s*\\n?(.*?)\\n?`{3}")
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
)

// parseReply interprets the model output. Text that does not carry a
// recognisable action object is treated as a markdown answer.
func parseReply(text string) dto.AIReply {
	trimmed := strings.TrimSpace(text)
	markdown := dto.AIReply{Action: dto.ActionNone, Message: trimmed}
	if trimmed == "" {
		return markdown
	}

	for _, candidate := range replyCandidates(trimmed) {
		reply, ok := decodeReply(candidate)
		if ok {
			return reply
		}
	}
	return markdown
}

// replyCandidates lists the strings worth trying, most specific first.
func replyCandidates(text string) []string {
	out := []string{text}
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if obj := extractObject(text); obj != "" {
		out = append(out, obj)
	}
	return out
}

func decodeReply(candidate string) (dto.AIReply, bool) {
	if !strings.HasPrefix(candidate, "{") {
		return dto.AIReply{}, false
	}
	var reply dto.AIReply
	if err := json.Unmarshal([]byte(candidate), &reply); err != nil {
		cleaned := trailingComma.ReplaceAllString(candidate, "$1")
		if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
			return dto.AIReply{}, false
		}
	}
	reply.Action = strings.ToLower(strings.TrimSpace(reply.Action))
	switch reply.Action {
	case dto.ActionCreate, dto.ActionUpdate, dto.ActionClear, dto.ActionNone:
		return reply, true
	default:
		return dto.AIReply{}, false
	}
}

// extractObject returns the outermost balanced {...} in text, ignoring
// braces inside JSON strings.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
