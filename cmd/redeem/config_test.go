package main

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ticketsig/internal/ledger"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"domain": {
			"name": "Ether Mail",
			"version": "1",
			"chain_id": 1,
			"verifying_contract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
		},
		"hash": "keccak256",
		"nonces": false,
		"authorized_callers": ["0x1111111111111111111111111111111111111111"],
		"filter_capacity": 4096
	}`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(4096), cfg.FilterCapacity)

	b, err := cfg.builder()
	require.NoError(t, err)
	// Domain separator of the EIP-712 "Ether Mail" example.
	assert.Equal(t, "0xf2cee375fa42b42143804025fc449deafd50cc031ca257e0b194a650a912090f",
		b.DomainSeparator().Hex())

	opts, err := cfg.guardOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(writeFile(t, "c.json", `{"domian": {}}`))
	assert.Error(t, err, "unknown fields are rejected")

	cfg, err := loadConfig(writeFile(t, "c.json", `{"domain": {"chain_id": 1, "verifying_contract": "0x00"}}`))
	require.NoError(t, err)
	_, err = cfg.builder()
	assert.ErrorIs(t, err, eip712.ErrInvalidAddress)

	cfg, err = loadConfig(writeFile(t, "c.json", `{"hash": "md5", "domain": {"chain_id": 1}}`))
	require.NoError(t, err)
	_, err = cfg.builder()
	assert.ErrorContains(t, err, "unknown hash")

	cfg, err = loadConfig(writeFile(t, "c.json", `{"authorized_callers": ["nope"]}`))
	require.NoError(t, err)
	_, err = cfg.guardOptions()
	assert.Error(t, err)
}

func TestLoadTickets(t *testing.T) {
	path := writeFile(t, "tickets.json", `[
		{"ticket_id": 1, "owner": "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"},
		{"ticket_id": "0x02", "owner": "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF"}
	]`)
	l := ledger.NewMemory()
	n, err := loadTickets(path, l)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	owner, err := l.OwnerOf(context.Background(), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, eip712.MustParseAddress("0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF"), owner)

	_, err = loadTickets(path, l)
	assert.Error(t, err, "duplicate mint")
}

func TestParseAndSetDebugLevels(t *testing.T) {
	assert.NoError(t, parseAndSetDebugLevels("debug"))
	assert.NoError(t, parseAndSetDebugLevels("rdmr=trace,stor=warn"))
	assert.Error(t, parseAndSetDebugLevels("loud"))
	assert.Error(t, parseAndSetDebugLevels("nope=debug"))
	assert.Error(t, parseAndSetDebugLevels("rdmr=loud"))
	assert.NoError(t, parseAndSetDebugLevels("info"))
}
