package sync

import (
	"regexp"
	"strings"
)

var decoratorToken = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Decorator is one registered agent trigger, addressed in message text as
// @<key>.
type Decorator struct {
	ID  string
	Key string
}

// DecoratorMatch is one @token that resolved against the registry.
type DecoratorMatch struct {
	Decorator Decorator
	Index     int
	Raw       string
}

// DecoratorResult is the outcome of scanning a message for decorator tokens.
// Valid is true iff at most one distinct decorator id was found; FirstID is
// the chosen agent type when exactly one distinct id matched, and the first
// match otherwise.
type DecoratorResult struct {
	Matches []DecoratorMatch
	IDs     []string
	Valid   bool
	FirstID string
}

// ExtractDecorators scans text for @word tokens and matches them against the
// registry, case-insensitively.
func ExtractDecorators(text string, registry []Decorator) DecoratorResult {
	result := DecoratorResult{Valid: true}

	byKey := make(map[string]Decorator, len(registry))
	for _, d := range registry {
		byKey[strings.ToLower(d.Key)] = d
	}

	seen := make(map[string]bool)
	for _, loc := range decoratorToken.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		word := strings.ToLower(text[loc[2]:loc[3]])
		dec, ok := byKey[word]
		if !ok {
			continue
		}
		result.Matches = append(result.Matches, DecoratorMatch{Decorator: dec, Index: loc[0], Raw: raw})
		if !seen[dec.ID] {
			seen[dec.ID] = true
			result.IDs = append(result.IDs, dec.ID)
		}
	}

	if len(result.IDs) > 0 {
		result.FirstID = result.IDs[0]
	}
	result.Valid = len(result.IDs) <= 1
	return result
}
