package deployments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/tidwall/gjson"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Registry looks contracts up over HTTP at <baseURL>/<eid>/<contractName>. The response is
// a JSON document with an "address" field, optionally nested under "data".
type Registry struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

func NewRegistry(baseURL string, logger log.Logger) *Registry {
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (r *Registry) Resolve(ctx context.Context, eid types.EID, contractName string) (string, error) {
	lookup := fmt.Sprintf("%s/%d/%s", r.baseURL, eid, url.PathEscape(contractName))
	r.logger.Debug(fmt.Sprintf("Looking up %s on eid %d at %s", contractName, eid, lookup))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return "", fmt.Errorf("unable to build registry request: %w", err)
	}
	rawResponse, err := r.client.Do(req)
	if err != nil {
		return "", &types.NetworkError{Op: "registry lookup", Err: err}
	}
	defer rawResponse.Body.Close()

	switch {
	case rawResponse.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: registry has no %s on eid %d", ErrNotDeployed, contractName, eid)
	case rawResponse.StatusCode >= http.StatusInternalServerError:
		return "", &types.NetworkError{Op: "registry lookup", Err: fmt.Errorf("status %d", rawResponse.StatusCode)}
	case rawResponse.StatusCode != http.StatusOK:
		return "", fmt.Errorf("registry lookup of %s on eid %d: unexpected status %d", contractName, eid, rawResponse.StatusCode)
	}

	body, err := io.ReadAll(rawResponse.Body)
	if err != nil {
		return "", &types.NetworkError{Op: "registry lookup", Err: err}
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("registry returned invalid json for %s on eid %d", contractName, eid)
	}

	addr := gjson.GetBytes(body, "address")
	if !addr.Exists() {
		addr = gjson.GetBytes(body, "data.address")
	}
	if addr.String() == "" {
		return "", fmt.Errorf("%w: registry entry for %s on eid %d has no address", ErrNotDeployed, contractName, eid)
	}

	r.logger.Info(fmt.Sprintf("Resolved %s on eid %d to %s", contractName, eid, addr.String()))
	return addr.String(), nil
}
