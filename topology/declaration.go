package topology

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Declaration is the static description a Graph is derived from on every run.
type Declaration struct {
	Defaults    *types.PathwayConfig  `yaml:"defaults,omitempty"`
	Contracts   []ContractDeclaration `yaml:"contracts"`
	Connections []Connection          `yaml:"connections"`
}

type ContractDeclaration struct {
	EID          types.EID            `yaml:"eid"`
	ContractName string               `yaml:"contractName"`
	Address      string               `yaml:"address,omitempty"`
	Config       *types.PathwayConfig `yaml:"config,omitempty"`
}

type Connection struct {
	From   types.EID            `yaml:"from"`
	To     types.EID            `yaml:"to"`
	Config *types.PathwayConfig `yaml:"config,omitempty"`
}

// ParseDeclaration reads a topology declaration file.
func ParseDeclaration(file string) (*Declaration, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	defer f.Close()

	return DecodeDeclaration(f)
}

// DecodeDeclaration decodes a YAML declaration, rejecting unknown keys.
func DecodeDeclaration(r io.Reader) (*Declaration, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var decl Declaration
	if err := dec.Decode(&decl); err != nil {
		return nil, fmt.Errorf("error unmarshalling topology: %w", err)
	}
	return &decl, nil
}

// Build derives a Graph from the declaration. Every structural error is collected; the
// returned graph always holds the valid subset so sibling pathways are unaffected.
func Build(decl *Declaration) (*Graph, error) {
	g := NewGraph(decl.Defaults)

	var errs []error
	for _, c := range decl.Contracts {
		if c.ContractName == "" && c.Address == "" {
			errs = append(errs, fmt.Errorf("contract for eid %d: contractName or address must be set: %w", c.EID, types.ErrValidation))
			continue
		}
		ep := types.Endpoint{EID: c.EID, ContractName: c.ContractName, Address: c.Address}
		if err := g.AddEndpoint(ep); err != nil {
			errs = append(errs, err)
			continue
		}
		if c.Config != nil {
			if err := g.SetEndpointDefaults(c.EID, c.Config); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, conn := range decl.Connections {
		if err := g.AddPathway(conn.From, conn.To, conn.Config); err != nil {
			errs = append(errs, err)
		}
	}

	return g, errors.Join(errs...)
}
