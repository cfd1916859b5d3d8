// Package reply defines the structured reply envelope returned to callers and
// the normalizer that turns raw model output into it.
package reply

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Intent selects which downstream flow a reply drives.
type Intent string

const (
	IntentExecuteTransaction Intent = "EXECUTE_TRANSACTION"
	IntentPureString         Intent = "PURE_STRING_RESPONSE"
	IntentWithdrawPosition   Intent = "WITHDRAW_POSITION"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentExecuteTransaction, IntentPureString, IntentWithdrawPosition:
		return true
	}
	return false
}

// Reply is the structured envelope. Its JSON form is the wire shape.
type Reply struct {
	Answer     string     `json:"LLM_response"`
	Intent     Intent     `json:"type"`
	Strategies []Strategy `json:"strategies"`
}

// Strategy is a recommended staking option inside a reply.
type Strategy struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	StrategyID  int    `json:"strategyID"`
	StakeToken  string `json:"stakeToken"`
}

// Direct wraps plain model text in a PURE_STRING_RESPONSE envelope.
func Direct(text string) Reply {
	return Reply{Answer: text, Intent: IntentPureString, Strategies: []Strategy{}}
}

// Encode renders r in the wire shape. Strategies always encode as an array.
func Encode(r Reply) (string, error) {
	if !r.Intent.Valid() {
		return "", fmt.Errorf("encode reply: unknown intent %q", r.Intent)
	}
	if r.Strategies == nil {
		r.Strategies = []Strategy{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode reply: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
