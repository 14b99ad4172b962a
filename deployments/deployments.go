// Package deployments resolves contract names to deployed addresses.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// ErrNotDeployed is returned when a resolver has no record of the contract.
var ErrNotDeployed = errors.New("contract not deployed")

var (
	_ types.AddressResolver = (*Directory)(nil)
	_ types.AddressResolver = (*Registry)(nil)
	_ types.AddressResolver = Static{}
	_ types.AddressResolver = Fallback{}
	_ types.AddressResolver = (*Cached)(nil)
)

// Directory reads hardhat-deploy artifacts laid out as <root>/<network>/<ContractName>.json.
type Directory struct {
	Root     string
	Networks map[types.EID]string
}

func (d *Directory) Resolve(_ context.Context, eid types.EID, contractName string) (string, error) {
	network, ok := d.Networks[eid]
	if !ok {
		return "", fmt.Errorf("%w: no deployments network for eid %d", ErrNotDeployed, eid)
	}
	path := filepath.Join(d.Root, network, contractName+".json")

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s not found", ErrNotDeployed, path)
	}
	if err != nil {
		return "", fmt.Errorf("unable to read deployment %s: %w", path, err)
	}

	addr := gjson.GetBytes(content, "address").String()
	if addr == "" {
		return "", fmt.Errorf("deployment %s has no address", path)
	}
	return addr, nil
}

// Static resolves from "<eid>/<contractName>" keys, as in the config file.
type Static map[string]string

func StaticKey(eid types.EID, contractName string) string {
	return strconv.FormatUint(uint64(eid), 10) + "/" + contractName
}

func (s Static) Resolve(_ context.Context, eid types.EID, contractName string) (string, error) {
	addr, ok := s[StaticKey(eid, contractName)]
	if !ok || strings.TrimSpace(addr) == "" {
		return "", fmt.Errorf("%w: no static address for %s", ErrNotDeployed, StaticKey(eid, contractName))
	}
	return addr, nil
}

// Fallback tries each resolver in order. A miss moves on to the next resolver; any other
// error stops the search.
type Fallback []types.AddressResolver

func (f Fallback) Resolve(ctx context.Context, eid types.EID, contractName string) (string, error) {
	var misses []error
	for _, r := range f {
		addr, err := r.Resolve(ctx, eid, contractName)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, ErrNotDeployed) {
			return "", err
		}
		misses = append(misses, err)
	}
	if len(misses) == 0 {
		return "", fmt.Errorf("%w: no resolver configured for %s on eid %d", ErrNotDeployed, contractName, eid)
	}
	return "", errors.Join(misses...)
}

// Cached remembers successful resolutions. Deployed addresses do not change during
// the life of a process.
type Cached struct {
	next  types.AddressResolver
	cache *lru.Cache[string, string]
}

func NewCached(next types.AddressResolver, size int) (*Cached, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Resolve(ctx context.Context, eid types.EID, contractName string) (string, error) {
	key := StaticKey(eid, contractName)
	if addr, ok := c.cache.Get(key); ok {
		return addr, nil
	}
	addr, err := c.next.Resolve(ctx, eid, contractName)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, addr)
	return addr, nil
}
