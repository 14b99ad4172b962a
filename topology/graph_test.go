package topology_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/topology"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func newEndpoint(eid types.EID) types.Endpoint {
	return types.Endpoint{EID: eid, ContractName: "MyOApp"}
}

func TestAddEndpointDuplicate(t *testing.T) {
	g := topology.NewGraph(nil)
	require.NoError(t, g.AddEndpoint(newEndpoint(1)))

	// identical identity is a no-op
	require.NoError(t, g.AddEndpoint(newEndpoint(1)))

	err := g.AddEndpoint(types.Endpoint{EID: 1, ContractName: "OtherOApp"})
	var dupErr *types.DuplicateEndpointError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, types.EID(1), dupErr.EID)
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestAddPathway(t *testing.T) {
	g := topology.NewGraph(nil)
	require.NoError(t, g.AddEndpoint(newEndpoint(1)))
	require.NoError(t, g.AddEndpoint(newEndpoint(2)))

	require.NoError(t, g.AddPathway(1, 2, nil))
	require.NoError(t, g.AddPathway(2, 1, nil), "reverse pathway is distinct")

	var dupErr *types.DuplicatePathwayError
	require.ErrorAs(t, g.AddPathway(1, 2, &types.PathwayConfig{}), &dupErr)

	var unknownErr *types.UnknownEndpointError
	require.ErrorAs(t, g.AddPathway(1, 3, nil), &unknownErr)
	require.Equal(t, types.EID(3), unknownErr.EID)
	require.ErrorAs(t, g.AddPathway(4, 1, nil), &unknownErr)
	require.Equal(t, types.EID(4), unknownErr.EID)

	require.Len(t, g.Pathways(), 2)
}

func TestSelfLoopRejected(t *testing.T) {
	g := topology.NewGraph(nil)
	require.NoError(t, g.AddEndpoint(newEndpoint(1)))

	size := uint32(10)
	overrides := []*types.PathwayConfig{
		nil,
		{},
		{SendConfig: &types.SendConfigDecl{ExecutorConfig: &types.ExecutorConfigDecl{MaxMessageSize: &size}}},
	}
	for _, o := range overrides {
		var loopErr *types.SelfLoopError
		require.ErrorAs(t, g.AddPathway(1, 1, o), &loopErr)
	}

	// a self loop on an unregistered endpoint is still a self loop
	var loopErr *types.SelfLoopError
	require.ErrorAs(t, g.AddPathway(9, 9, nil), &loopErr)
	require.Empty(t, g.Pathways())
}

func TestPathwaysInsertionOrder(t *testing.T) {
	g := topology.NewGraph(nil)
	for _, eid := range []types.EID{3, 1, 2} {
		require.NoError(t, g.AddEndpoint(newEndpoint(eid)))
	}
	require.NoError(t, g.AddPathway(3, 1, nil))
	require.NoError(t, g.AddPathway(1, 2, nil))
	require.NoError(t, g.AddPathway(2, 3, nil))

	var keys []string
	for _, p := range g.Pathways() {
		keys = append(keys, p.Key())
	}
	require.Equal(t, []string{"3->1", "1->2", "2->3"}, keys)
}

func TestConfigLayers(t *testing.T) {
	defaults := &types.PathwayConfig{}
	perContract := &types.PathwayConfig{}
	override := &types.PathwayConfig{}

	g := topology.NewGraph(defaults)
	require.NoError(t, g.AddEndpoint(newEndpoint(1)))
	require.NoError(t, g.AddEndpoint(newEndpoint(2)))
	require.NoError(t, g.SetEndpointDefaults(1, perContract))
	require.NoError(t, g.AddPathway(1, 2, override))
	require.NoError(t, g.AddPathway(2, 1, nil))

	p := g.Pathways()
	layers := g.ConfigLayers(p[0])
	require.Same(t, defaults, layers[0])
	require.Same(t, perContract, layers[1])
	require.Same(t, override, layers[2])

	layers = g.ConfigLayers(p[1])
	require.Nil(t, layers[1])
	require.Nil(t, layers[2])

	var unknownErr *types.UnknownEndpointError
	require.ErrorAs(t, g.SetEndpointDefaults(7, perContract), &unknownErr)
}

func TestBuildFromDeclaration(t *testing.T) {
	decl, err := topology.ParseDeclaration("testdata/topology.yaml")
	require.NoError(t, err)
	require.Len(t, decl.Contracts, 3)

	g, err := topology.Build(decl)
	require.NoError(t, err)

	pathways := g.Pathways()
	require.Len(t, pathways, 6)
	require.Equal(t, "40106->40161", pathways[0].Key())
	require.Equal(t, "0xC592c7bB3b664B9E093d62B8Efd429b1B2EF21D1", pathways[0].To.Address)

	uln := pathways[0].Override.SendConfig.UlnConfig
	require.NotNil(t, uln.RequiredDVNs, "explicit empty list is kept")
	require.Empty(t, uln.RequiredDVNs)
	require.Len(t, uln.OptionalDVNs, 2)
	require.Equal(t, uint64(42), *uln.Confirmations)

	require.Nil(t, pathways[1].Override)
}

func TestBuildCollectsErrors(t *testing.T) {
	decl := &topology.Declaration{
		Contracts: []topology.ContractDeclaration{
			{EID: 1, ContractName: "A"},
			{EID: 2, ContractName: "A"},
			{EID: 2, ContractName: "B"},
			{EID: 3},
		},
		Connections: []topology.Connection{
			{From: 1, To: 2},
			{From: 1, To: 1},
			{From: 1, To: 5},
			{From: 1, To: 2},
			{From: 2, To: 1},
		},
	}

	g, err := topology.Build(decl)
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrValidation)

	var dupEp *types.DuplicateEndpointError
	require.ErrorAs(t, err, &dupEp)
	var loop *types.SelfLoopError
	require.ErrorAs(t, err, &loop)
	var unknown *types.UnknownEndpointError
	require.ErrorAs(t, err, &unknown)
	var dupPath *types.DuplicatePathwayError
	require.ErrorAs(t, err, &dupPath)

	// valid pathways survive
	require.Len(t, g.Pathways(), 2)
}

func TestDecodeDeclarationRejectsUnknownKeys(t *testing.T) {
	_, err := topology.DecodeDeclaration(strings.NewReader(`
contracts:
  - eid: 1
    contractName: A
    colour: blue
`))
	require.Error(t, err)
}
