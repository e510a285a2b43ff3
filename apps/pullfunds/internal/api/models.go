package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Value is a request field that may arrive as a JSON string, number or
// boolean. Numbers keep their literal text, true becomes "true" and false
// is absent. MarshalJSON echoes the literal as it arrived.
type Value struct {
	Text   string
	Number bool
	raw    json.RawMessage
}

func (v *Value) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*v = Value{}
		return nil
	case bytes.Equal(data, []byte("true")):
		*v = Value{Text: "true", raw: json.RawMessage("true")}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Text: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string, number or boolean, got %s", data)
	}
	*v = Value{Text: n.String(), Number: true, raw: json.RawMessage(n.String())}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) > 0 {
		return v.raw, nil
	}
	return json.Marshal(v.Text)
}

// Present reports whether the field carries a usable value. Missing, null,
// empty strings and numeric zero all count as absent.
func (v Value) Present() bool {
	if v.Text == "" {
		return false
	}
	if v.Number {
		f, _, err := big.ParseFloat(v.Text, 10, 64, big.ToNearestEven)
		return err != nil || f.Sign() != 0
	}
	return true
}

// StoreUserRequest represents the request body for POST /store-user
type StoreUserRequest struct {
	Address Value `json:"address"`
}

// RunContractRequest represents the request body for POST /run-contract
type RunContractRequest struct {
	Token     Value `json:"token"`
	User      Value `json:"user"`
	Recipient Value `json:"recipient"`
	Amount    Value `json:"amount"`
}

// StoreUserResponse is returned when an address was persisted
type StoreUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address Value  `json:"address"`
}

// RunContractResponse is returned once the pullFunds transaction is mined
type RunContractResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Hash    string `json:"hash"`
}

// FailureResponse is the single failure shape for every business endpoint
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse represents the API response for GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
	Contract string `json:"contract"`
}
