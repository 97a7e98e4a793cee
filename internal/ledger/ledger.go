// Package ledger is an in-memory ticket registry implementing redeem.Ledger.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

type ticket struct {
	owner eip712.Address
	used  bool
}

// Memory tracks ticket ownership and the used flag.
type Memory struct {
	mu      sync.RWMutex
	tickets map[string]*ticket
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{tickets: make(map[string]*ticket)}
}

func key(id *big.Int) string {
	return id.Text(16)
}

// Mint registers a new ticket. Minting an existing id fails.
func (m *Memory) Mint(id *big.Int, owner eip712.Address) error {
	if id == nil || id.Sign() < 0 {
		return fmt.Errorf("invalid ticket id %v", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(id)
	if _, ok := m.tickets[k]; ok {
		return fmt.Errorf("ticket %s already minted", id)
	}
	m.tickets[k] = &ticket{owner: owner}
	return nil
}

// Transfer moves an unused ticket to a new owner.
func (m *Memory) Transfer(id *big.Int, to eip712.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[key(id)]
	if !ok {
		return redeem.ErrTicketNotFound
	}
	if t.used {
		return redeem.ErrAlreadyUsed
	}
	t.owner = to
	return nil
}

// OwnerOf implements redeem.Ledger.
func (m *Memory) OwnerOf(_ context.Context, id *big.Int) (eip712.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[key(id)]
	if !ok {
		return eip712.Address{}, redeem.ErrTicketNotFound
	}
	return t.owner, nil
}

// MarkUsed implements redeem.Ledger.
func (m *Memory) MarkUsed(_ context.Context, id *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[key(id)]
	if !ok {
		return redeem.ErrTicketNotFound
	}
	if t.used {
		return redeem.ErrAlreadyUsed
	}
	t.used = true
	return nil
}

// Used implements redeem.Ledger.
func (m *Memory) Used(_ context.Context, id *big.Int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[key(id)]
	if !ok {
		return false, redeem.ErrTicketNotFound
	}
	return t.used, nil
}

// IsUsed reports whether the ticket has been redeemed.
func (m *Memory) IsUsed(id *big.Int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[key(id)]
	return ok && t.used
}
