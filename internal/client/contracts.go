package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

/* ---------------------------------------------------------------------
   Data-transfer objects (DTOs)
   ---------------------------------------------------------------------
   These structs describe the JSON contract we exchange with the
   Contract/Offer service. We expose only the fields the billing
   deriver reads; adding a JSON tag later is backward-compatible.
   ------------------------------------------------------------------ */

type Contract struct {
	ID              uint            `json:"id"`
	Status          string          `json:"status"` // active, completed, terminated, disputed
	EscrowFunded    bool            `json:"escrowFunded"`
	HourlyRate      decimal.Decimal `json:"hourlyRate"`
	RemainingBudget decimal.Decimal `json:"remainingBudget"`
}

// IsActive reports whether the contract may still accrue billing.
func (c *Contract) IsActive() bool {
	return c.Status == "active"
}

/* ---------------------------------------------------------------------
   Client interface & HTTP implementation
   ------------------------------------------------------------------ */

type ContractClient interface {
	GetContract(ctx context.Context, contractID uint) (*Contract, error)
}

// httpContractClient is a thin wrapper over net/http that knows how to
// talk to the Contract/Offer service. It builds the request and
// unmarshals the response, nothing more.
type httpContractClient struct {
	baseURL string       // e.g. "http://contract-service:8080/api/internal"
	http    *http.Client // injected so we can swap in mocks/timeouts later
}

// NewContractHTTPClient is the public constructor used by the tracker
// service at boot time.
func NewContractHTTPClient(baseURL string) ContractClient {
	return &httpContractClient{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

/* ---------------------------------------------------------------------
   GetContract – GET /contracts/{id}
   ------------------------------------------------------------------ */

func (c *httpContractClient) GetContract(ctx context.Context, contractID uint) (*Contract, error) {
	url := fmt.Sprintf("%s/contracts/%d", c.baseURL, contractID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build contract request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("contract-service call failed: %w", err)
	}
	defer resp.Body.Close()

	// Non-2xx → bubble up the plain body for easier troubleshooting.
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("contract-service returned %s – body: %s", resp.Status, raw)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// The contract service responds with an envelope:
	// {"message": "...", "data": {"id": 6, "status": "active", ...}}
	type envelope struct {
		Data Contract `json:"data"`
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &env.Data, nil
}
