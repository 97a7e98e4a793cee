package parser

import (
	"fmt"

	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

// Field names understood in request files.
const (
	FieldTicketID     = "ticket_id"
	FieldOwner        = "owner"
	FieldNonce        = "nonce"
	FieldDeadline     = "deadline"
	FieldMetadataHash = "metadata_hash"
	FieldMetadata     = "metadata"
	FieldSignature    = "signature"
	FieldR            = "r"
	FieldS            = "s"
	FieldV            = "v"
	FieldPublicKey    = "public_key"
	FieldCaller       = "caller"
)

// Record is one decoded request row. Empty strings count as absent so CSV
// rows and JSON objects behave the same.
type Record map[string]interface{}

func (r Record) get(name string) (interface{}, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

func (r Record) require(name string) (interface{}, error) {
	v, ok := r.get(name)
	if !ok {
		return nil, fmt.Errorf("missing %s field", name)
	}
	return v, nil
}

// Request converts a record into a redemption request. When metadata_hash is
// absent, a plain metadata string is hashed with h. Nonce defaults to zero.
func Request(rec Record, h eip712.Hasher) (*redeem.Request, error) {
	req := &redeem.Request{}

	v, err := rec.require(FieldTicketID)
	if err != nil {
		return nil, err
	}
	if req.TicketID, err = BigInt(v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FieldTicketID, err)
	}

	if v, err = rec.require(FieldOwner); err != nil {
		return nil, err
	}
	if req.Owner, err = Address(v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FieldOwner, err)
	}

	if v, ok := rec.get(FieldNonce); ok {
		if req.Nonce, err = BigInt(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldNonce, err)
		}
	} else {
		req.Nonce, _ = BigInt(0)
	}

	if v, err = rec.require(FieldDeadline); err != nil {
		return nil, err
	}
	if req.Deadline, err = BigInt(v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FieldDeadline, err)
	}

	if v, ok := rec.get(FieldMetadataHash); ok {
		if req.MetadataHash, err = Hash(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldMetadataHash, err)
		}
	} else if v, ok := rec.get(FieldMetadata); ok {
		s, err := asString(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldMetadata, err)
		}
		req.MetadataHash = h.Sum([]byte(s))
	} else {
		return nil, fmt.Errorf("missing %s or %s field", FieldMetadataHash, FieldMetadata)
	}

	if v, ok := rec.get(FieldSignature); ok {
		if req.Signature, err = PackedSignature(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldSignature, err)
		}
	} else {
		r, err := rec.require(FieldR)
		if err != nil {
			return nil, fmt.Errorf("missing %s or r/s fields", FieldSignature)
		}
		s, err := rec.require(FieldS)
		if err != nil {
			return nil, fmt.Errorf("missing %s or r/s fields", FieldSignature)
		}
		v, _ := rec.get(FieldV)
		if req.Signature, err = SignatureRS(r, s, v); err != nil {
			return nil, err
		}
	}

	if v, ok := rec.get(FieldPublicKey); ok {
		if req.PublicKey, err = PublicKey(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldPublicKey, err)
		}
	}

	if v, ok := rec.get(FieldCaller); ok {
		if req.Caller, err = Address(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FieldCaller, err)
		}
	}

	return req, nil
}
