package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mahdiidarabi/ticketsig/internal/ledger"
	"github.com/mahdiidarabi/ticketsig/internal/parser"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

type domainConfig struct {
	Name              string      `json:"name"`
	Version           string      `json:"version"`
	ChainID           interface{} `json:"chain_id"`
	VerifyingContract string      `json:"verifying_contract"`
}

// config is the JSON configuration file.
type config struct {
	Domain            domainConfig `json:"domain"`
	Hash              string       `json:"hash"`
	Nonces            *bool        `json:"nonces"`
	AuthorizedCallers []string     `json:"authorized_callers"`
	FilterCapacity    uint         `json:"filter_capacity"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	var cfg config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *config) hasher() (eip712.Hasher, error) {
	h, ok := eip712.HasherByName(c.Hash)
	if !ok {
		return nil, fmt.Errorf("unknown hash %q", c.Hash)
	}
	return h, nil
}

func (c *config) builder() (*eip712.Builder, error) {
	h, err := c.hasher()
	if err != nil {
		return nil, err
	}
	chainID, err := parser.BigInt(c.Domain.ChainID)
	if err != nil {
		return nil, fmt.Errorf("invalid domain chain_id: %w", err)
	}
	contract, err := eip712.ParseAddress(c.Domain.VerifyingContract)
	if err != nil {
		return nil, fmt.Errorf("invalid domain verifying_contract: %w", err)
	}
	return eip712.NewBuilder(h, eip712.Domain{
		Name:              c.Domain.Name,
		Version:           c.Domain.Version,
		ChainID:           chainID,
		VerifyingContract: contract,
	})
}

func (c *config) guardOptions() ([]redeem.Option, error) {
	var opts []redeem.Option
	if c.Nonces != nil && !*c.Nonces {
		opts = append(opts, redeem.WithoutNonces())
	}
	if len(c.AuthorizedCallers) > 0 {
		callers := make([]eip712.Address, 0, len(c.AuthorizedCallers))
		for _, s := range c.AuthorizedCallers {
			a, err := eip712.ParseAddress(s)
			if err != nil {
				return nil, fmt.Errorf("invalid authorized caller %q: %w", s, err)
			}
			callers = append(callers, a)
		}
		opts = append(opts, redeem.WithAuthorizedCallers(callers...))
	}
	return opts, nil
}

// loadTickets mints every {"ticket_id", "owner"} entry of a JSON file into l.
func loadTickets(path string, l *ledger.Memory) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open tickets file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var items []map[string]interface{}
	if err := dec.Decode(&items); err != nil {
		return 0, fmt.Errorf("failed to parse tickets file: %w", err)
	}

	for i, item := range items {
		id, err := parser.BigInt(item[parser.FieldTicketID])
		if err != nil {
			return i, fmt.Errorf("ticket %d: invalid ticket_id: %w", i, err)
		}
		owner, err := parser.Address(item[parser.FieldOwner])
		if err != nil {
			return i, fmt.Errorf("ticket %d: invalid owner: %w", i, err)
		}
		if err := l.Mint(id, owner); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
