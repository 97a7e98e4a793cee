// Package ticketsig is the high level entry point for redeeming signed
// tickets in bulk.
//
// A Client reads redemption requests from a file, runs them through a
// redeem.Guard on a bounded pool of workers and reports one Outcome per
// request.
//
// # Quick Start
//
//	builder, _ := eip712.NewBuilder(nil, eip712.Domain{
//	    Name:              "TicketGate",
//	    Version:           "1",
//	    ChainID:           big.NewInt(1),
//	    VerifyingContract: contract,
//	})
//	guard, _ := redeem.New(builder, ledger, store.NewMemStore())
//
//	client := ticketsig.NewClient(guard)
//	result, err := client.RedeemFile(ctx, "requests.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("accepted %d, rejected %d\n", result.Accepted, result.Rejected)
//
// # Request files
//
// JSON files hold an array of objects, CSV files a header row followed by
// one request per line. Both use the same field names:
//
//	ticket_id, owner, nonce, deadline, metadata_hash (or metadata),
//	signature (65-byte hex) or r, s and optional v,
//	public_key (optional SEC1 hex), caller (optional)
//
// Numbers are decimal unless prefixed with 0x.
//
// # Custom Parsers
//
// Implement RequestParser to read requests from another source:
//
//	client := ticketsig.NewClient(guard).WithParser(&MyParser{})
package ticketsig
