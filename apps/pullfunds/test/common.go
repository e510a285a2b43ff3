package test

import (
	"os"
	"testing"
)

const (
	// BaseURLEnv points the suite at a running server, e.g. http://localhost:3000
	BaseURLEnv = "PULLFUNDS_BASE_URL"

	TestUserAddress = "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136"
)

// StoreUserRequest represents the request body for POST /store-user
type StoreUserRequest struct {
	Address string `json:"address"`
}

// RunContractRequest represents the request body for POST /run-contract
type RunContractRequest struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// Result is the union of the success and failure response shapes
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address"`
	Hash    string `json:"hash"`
	Error   string `json:"error"`
}

// HealthResponse represents the API response for GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Contract string `json:"contract"`
}

func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv(BaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", BaseURLEnv)
	}
	return url
}
