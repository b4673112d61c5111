package providers

import (
	"context"

	"github.com/provideplatform/bungee/state"
)

// LedgerStateProviderMemory serves states held in memory
const LedgerStateProviderMemory = "memory"

// LedgerStateProviderConnector fetches states from a ledger connector over http
const LedgerStateProviderConnector = "connector"

// LedgerStateProviderEVM captures states from asset contract logs on an EVM ledger
const LedgerStateProviderEVM = "evm"

// NetworkDetails describes how to reach the ledger a snapshot is captured from
type NetworkDetails struct {
	Participant      string                 `json:"participant"`
	ConnectorAPIPath *string                `json:"connector_api_path,omitempty"`
	RPCURL           *string                `json:"rpc_url,omitempty"`
	ContractAddress  *string                `json:"contract_address,omitempty"`
	Params           map[string]interface{} `json:"params,omitempty"`
}

// LedgerStateProvider provides a common interface to capture the states of a ledger
type LedgerStateProvider interface {
	// FetchStates returns the states with the given ids, or every known state when no ids are given
	FetchStates(ctx context.Context, stateIDs []string, details *NetworkDetails) (map[string]*state.State, error)
}
