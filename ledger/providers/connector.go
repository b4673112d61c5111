package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logger "github.com/kthomas/go-logger"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/state"
	"github.com/sethvargo/go-retry"
)

const connectorStatesPath = "api/v1/ledger/states"
const connectorInitialBackoff = 100 * time.Millisecond
const connectorMaxBackoff = 5 * time.Second

// ConnectorStatesRequest is the body posted to a ledger connector
type ConnectorStatesRequest struct {
	StateIDs []string               `json:"state_ids"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// ConnectorStatesResponse is the body returned by a ledger connector
type ConnectorStatesResponse struct {
	States []*state.State `json:"states"`
}

// ConnectorProvider fetches captured states from a ledger connector api
type ConnectorProvider struct {
	log     *logger.Logger
	client  *http.Client
	retries uint64
}

// InitConnectorProvider initializes a connector provider with the given per-request
// timeout and maximum number of retries; the configured logger is used when log is nil
func InitConnectorProvider(log *logger.Logger, timeout time.Duration, retries uint64) *ConnectorProvider {
	if log == nil {
		log = common.Log
	}
	return &ConnectorProvider{
		log:     log,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
	}
}

// FetchStates posts the requested state ids to the connector; transport failures and
// 5xx responses are retried with exponential backoff
func (p *ConnectorProvider) FetchStates(ctx context.Context, stateIDs []string, details *NetworkDetails) (map[string]*state.State, error) {
	if details == nil || details.ConnectorAPIPath == nil || *details.ConnectorAPIPath == "" {
		return nil, fmt.Errorf("failed to fetch states from connector; connector api path required")
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(*details.ConnectorAPIPath, "/"), connectorStatesPath)
	if stateIDs == nil {
		stateIDs = make([]string, 0)
	}
	payload, err := json.Marshal(&ConnectorStatesRequest{
		StateIDs: stateIDs,
		Params:   details.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal connector request; %s", err.Error())
	}

	backoff := retry.NewExponential(connectorInitialBackoff)
	backoff = retry.WithCappedDuration(connectorMaxBackoff, backoff)
	backoff = retry.WithMaxRetries(p.retries, backoff)

	var resp ConnectorStatesResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp = ConnectorStatesResponse{}
		status, body, err := p.post(ctx, url, payload)
		if err != nil {
			p.log.Debugf("retrying connector request to %s; %s", url, err.Error())
			return retry.RetryableError(err)
		}
		if status >= 500 {
			p.log.Debugf("retrying connector request to %s; status %d", url, status)
			return retry.RetryableError(fmt.Errorf("connector responded with status %d", status))
		}
		if status >= 300 {
			return fmt.Errorf("connector responded with status %d; %s", status, string(body))
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal connector response; %s", err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch states from connector %s; %s", url, err.Error())
	}

	states := map[string]*state.State{}
	for _, st := range resp.States {
		rebuilt, err := state.Rebuild(st)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch states from connector %s; %s", url, err.Error())
		}
		states[rebuilt.ID] = rebuilt
	}

	return states, nil
}

func (p *ConnectorProvider) post(ctx context.Context, url string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
