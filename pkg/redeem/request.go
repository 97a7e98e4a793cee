package redeem

import (
	"fmt"
	"math/big"
	"time"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
	"github.com/mahdiidarabi/ticketsig/pkg/ecverify"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
)

// RedemptionType is the signed message.
var RedemptionType = eip712.StructType{
	Name: "Redemption",
	Fields: []eip712.Field{
		{Name: "ticketId", Type: "uint256"},
		{Name: "owner", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "metadataHash", Type: "bytes32"},
	},
}

// Request is a single redemption attempt.
type Request struct {
	TicketID     *big.Int
	Owner        eip712.Address
	Nonce        *big.Int
	Deadline     *big.Int // unix seconds
	MetadataHash eip712.Hash
	Signature    *ecverify.Signature

	// PublicKey is optional. When nil the key is recovered from the
	// signature's recovery id.
	PublicKey *curve.Point

	// Caller is only consulted when the guard has an allow-list.
	Caller eip712.Address
}

// Message is the signed part of a Request.
type Message struct {
	TicketID     *big.Int
	Owner        eip712.Address
	Nonce        *big.Int // nil is signed as zero
	Deadline     *big.Int
	MetadataHash eip712.Hash
}

// Message returns the signed fields of r.
func (r *Request) Message() Message {
	return Message{
		TicketID:     r.TicketID,
		Owner:        r.Owner,
		Nonce:        r.Nonce,
		Deadline:     r.Deadline,
		MetadataHash: r.MetadataHash,
	}
}

// Words encodes m in RedemptionType field order.
func (m Message) Words() ([]eip712.Word, error) {
	ticket, err := eip712.Uint256Word(m.TicketID)
	if err != nil {
		return nil, fmt.Errorf("ticket id: %w", err)
	}
	nonce, err := eip712.Uint256Word(nonceOrZero(m.Nonce))
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	deadline, err := eip712.Uint256Word(m.Deadline)
	if err != nil {
		return nil, fmt.Errorf("deadline: %w", err)
	}
	return []eip712.Word{
		ticket,
		eip712.AddressWord(m.Owner),
		nonce,
		deadline,
		eip712.Bytes32Word(m.MetadataHash),
	}, nil
}

// Digest returns the digest a signer must sign for m under b.
func (m Message) Digest(b *eip712.Builder) (eip712.Hash, error) {
	words, err := m.Words()
	if err != nil {
		return eip712.Hash{}, err
	}
	return b.TypedDigest(RedemptionType, words...)
}

func (r *Request) validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("nil request")
	case r.TicketID == nil:
		return fmt.Errorf("missing ticket id")
	case r.Deadline == nil:
		return fmt.Errorf("missing deadline")
	case r.Signature == nil || r.Signature.R == nil || r.Signature.S == nil:
		return fmt.Errorf("missing signature")
	}
	return nil
}

// State is a step of the redemption state machine.
type State int

const (
	StatePending State = iota
	StateVerified
	StateUsed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	case StateUsed:
		return "used"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Receipt describes a request that passed every check. For Redeem its state
// is StateUsed; for Check it is StateVerified.
type Receipt struct {
	TicketID   *big.Int
	Owner      eip712.Address
	Nonce      *big.Int
	Digest     eip712.Hash
	State      State
	RedeemedAt time.Time
}
