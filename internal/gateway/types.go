package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HeaderThreadID carries the conversation thread id on /userQuery and /query.
const HeaderThreadID = "X-Thread-Id"

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-Id"

// UserQueryRequest is the body of POST /userQuery.
type UserQueryRequest struct {
	UserInput   string `json:"userInput"`
	UserAddress string `json:"userAddress,omitempty"`
	ThreadID    string `json:"threadId,omitempty"`
}

// LegacyQueryRequest is the body of POST /query.
type LegacyQueryRequest struct {
	Query       string `json:"query"`
	UserAddress string `json:"userAddress,omitempty"`
	ThreadID    string `json:"threadId,omitempty"`
}

// LegacyQueryResponse is the body returned by POST /query.
type LegacyQueryResponse struct {
	Answer    string   `json:"answer"`
	Protocols []string `json:"protocols"`
}

// TxRequest is the body of POST /stake and POST /withdraw.
type TxRequest struct {
	StrategyID int    `json:"strategyId"`
	Amount     Amount `json:"amount"`
}

// TxResponse is returned by POST /stake and POST /withdraw.
type TxResponse struct {
	TxHash string `json:"txHash"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Amount is a decimal token amount given either as a JSON string or number.
// Numbers keep their literal text so no precision is lost.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}
