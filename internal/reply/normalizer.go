package reply

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// StrategyIndex resolves strategy ids against the on-chain registry. The
// registry's stake token is authoritative for each id.
type StrategyIndex interface {
	StakeToken(id int) (string, bool)
}

// Normalizer parses raw model output into a Reply.
type Normalizer struct {
	strategies StrategyIndex
}

// NewNormalizer creates a Normalizer. A nil index skips the registry check.
func NewNormalizer(strategies StrategyIndex) *Normalizer {
	return &Normalizer{strategies: strategies}
}

var (
	replyKeys    = []string{"LLM_response", "type", "strategies"}
	strategyKeys = []string{"label", "description", "strategyID", "stakeToken"}
)

// Parse strictly decodes raw into a Reply. Surrounding markdown code fences
// are removed; nothing else is repaired.
func (n *Normalizer) Parse(raw string) (Reply, error) {
	body := stripCodeFence(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return Reply{}, malformed(raw, "not a JSON object: %v", err)
	}
	if err := requireKeys(top, replyKeys); err != "" {
		return Reply{}, malformed(raw, "%s", err)
	}

	var r Reply
	if err := json.Unmarshal(top["LLM_response"], &r.Answer); err != nil {
		return Reply{}, malformed(raw, "LLM_response must be a string")
	}
	var intent string
	if err := json.Unmarshal(top["type"], &intent); err != nil {
		return Reply{}, malformed(raw, "type must be a string")
	}
	r.Intent = Intent(intent)
	if !r.Intent.Valid() {
		return Reply{}, malformed(raw, "unknown type %q", intent)
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(top["strategies"], &entries); err != nil {
		return Reply{}, malformed(raw, "strategies must be an array of objects")
	}

	r.Strategies = make([]Strategy, 0, len(entries))
	for i, entry := range entries {
		s, reason := n.parseStrategy(entry)
		if reason != "" {
			return Reply{}, malformed(raw, "strategies[%d]: %s", i, reason)
		}
		r.Strategies = append(r.Strategies, s)
	}

	return r, nil
}

func (n *Normalizer) parseStrategy(entry map[string]json.RawMessage) (Strategy, string) {
	if entry == nil {
		return Strategy{}, "must be an object"
	}
	if reason := requireKeys(entry, strategyKeys); reason != "" {
		return Strategy{}, reason
	}

	var s Strategy
	if json.Unmarshal(entry["label"], &s.Label) != nil {
		return Strategy{}, "label must be a string"
	}
	if json.Unmarshal(entry["description"], &s.Description) != nil {
		return Strategy{}, "description must be a string"
	}
	if json.Unmarshal(entry["strategyID"], &s.StrategyID) != nil {
		return Strategy{}, "strategyID must be an integer"
	}
	if json.Unmarshal(entry["stakeToken"], &s.StakeToken) != nil {
		return Strategy{}, "stakeToken must be a string"
	}

	switch {
	case s.StrategyID <= 0:
		return Strategy{}, "strategyID must be positive"
	case !common.IsHexAddress(s.StakeToken):
		return Strategy{}, "stakeToken is not a valid address"
	}
	if n.strategies == nil {
		return s, ""
	}
	token, ok := n.strategies.StakeToken(s.StrategyID)
	if !ok {
		return Strategy{}, "unknown strategyID"
	}
	if common.HexToAddress(token) != common.HexToAddress(s.StakeToken) {
		return Strategy{}, fmt.Sprintf("stakeToken does not match strategy %d", s.StrategyID)
	}
	return s, ""
}

// requireKeys returns a reason for the first missing or null key.
func requireKeys(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			return "missing key " + k
		}
		if string(v) == "null" {
			return k + " must not be null"
		}
	}
	return ""
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	s = strings.TrimSpace(s[nl+1:])
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractLegacy splits free text into its prose preamble and the "protocols"
// list of the embedded JSON block spanning the first '{' to the last '}'.
// It never fails: without a parseable block it returns the trimmed text and
// an empty list.
func ExtractLegacy(text string) (string, []string) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return strings.TrimSpace(text), []string{}
	}

	var block map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &block); err != nil {
		return strings.TrimSpace(text), []string{}
	}

	protocols := []string{}
	if list, ok := block["protocols"].([]any); ok {
		for _, p := range list {
			if name, ok := p.(string); ok {
				protocols = append(protocols, name)
			}
		}
	}
	return strings.TrimSpace(text[:start]), protocols
}
