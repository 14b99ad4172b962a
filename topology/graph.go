// Package topology holds the declared graph of endpoints and the directed pathways between them.
package topology

import (
	"fmt"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Pathway is a directed configuration relationship from a local endpoint to a remote one.
type Pathway struct {
	From     types.Endpoint
	To       types.Endpoint
	Override *types.PathwayConfig
}

// Key identifies the ordered (from, to) pair.
func (p Pathway) Key() string {
	return PathwayKey(p.From.EID, p.To.EID)
}

func PathwayKey(from, to types.EID) string {
	return fmt.Sprintf("%d->%d", from, to)
}

// Graph is built once per reconciliation run and is not safe for concurrent mutation.
// Reading Pathways and ConfigLayers concurrently after construction is fine.
type Graph struct {
	defaults         *types.PathwayConfig
	endpoints        map[types.EID]types.Endpoint
	endpointDefaults map[types.EID]*types.PathwayConfig

	pathways []Pathway
	index    map[string]struct{}
}

func NewGraph(defaults *types.PathwayConfig) *Graph {
	return &Graph{
		defaults:         defaults,
		endpoints:        make(map[types.EID]types.Endpoint),
		endpointDefaults: make(map[types.EID]*types.PathwayConfig),
		index:            make(map[string]struct{}),
	}
}

// AddEndpoint registers an endpoint. Re-adding an identical endpoint is a no-op.
func (g *Graph) AddEndpoint(ep types.Endpoint) error {
	if existing, ok := g.endpoints[ep.EID]; ok {
		if existing.SameContract(ep) {
			return nil
		}
		return &types.DuplicateEndpointError{EID: ep.EID, Existing: existing, Incoming: ep}
	}
	g.endpoints[ep.EID] = ep
	return nil
}

// SetEndpointDefaults sets the config applied to every pathway originating at eid,
// between the global defaults and the pathway's own override.
func (g *Graph) SetEndpointDefaults(eid types.EID, cfg *types.PathwayConfig) error {
	if _, ok := g.endpoints[eid]; !ok {
		return &types.UnknownEndpointError{EID: eid}
	}
	g.endpointDefaults[eid] = cfg
	return nil
}

// AddPathway registers the directed pathway from -> to. It only checks graph consistency.
func (g *Graph) AddPathway(from, to types.EID, override *types.PathwayConfig) error {
	if from == to {
		return &types.SelfLoopError{EID: from}
	}
	fromEp, ok := g.endpoints[from]
	if !ok {
		return &types.UnknownEndpointError{EID: from}
	}
	toEp, ok := g.endpoints[to]
	if !ok {
		return &types.UnknownEndpointError{EID: to}
	}

	key := PathwayKey(from, to)
	if _, ok := g.index[key]; ok {
		return &types.DuplicatePathwayError{From: from, To: to}
	}
	g.index[key] = struct{}{}
	g.pathways = append(g.pathways, Pathway{From: fromEp, To: toEp, Override: override})
	return nil
}

// Pathways returns every registered pathway in insertion order.
func (g *Graph) Pathways() []Pathway {
	out := make([]Pathway, len(g.pathways))
	copy(out, g.pathways)
	return out
}

func (g *Graph) Endpoint(eid types.EID) (types.Endpoint, bool) {
	ep, ok := g.endpoints[eid]
	return ep, ok
}

// Endpoints returns the registered endpoints in no particular order.
func (g *Graph) Endpoints() []types.Endpoint {
	out := make([]types.Endpoint, 0, len(g.endpoints))
	for _, ep := range g.endpoints {
		out = append(out, ep)
	}
	return out
}

// ConfigLayers returns the config layers of a pathway from lowest to highest precedence.
func (g *Graph) ConfigLayers(p Pathway) []*types.PathwayConfig {
	return []*types.PathwayConfig{g.defaults, g.endpointDefaults[p.From.EID], p.Override}
}
