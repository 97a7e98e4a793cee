package ticketsig

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

// Outcome is the result of one request in a batch. Exactly one of Receipt
// and Err is set.
type Outcome struct {
	Index   int
	Request *redeem.Request
	Receipt *redeem.Receipt
	Err     error
}

// Reason returns the rejection reason, or "" for accepted requests.
func (o Outcome) Reason() redeem.Reason {
	r, _ := redeem.ReasonOf(o.Err)
	return r
}

// BatchResult collects the outcomes of a batch in input order.
type BatchResult struct {
	Outcomes []Outcome
	Accepted int
	Rejected int
}

// Client provides a high-level API for batch redemption.
type Client struct {
	guard   *redeem.Guard
	parser  RequestParser
	workers int
}

// NewClient creates a client around guard. Requests are read as JSON and
// processed with one worker per CPU unless configured otherwise.
func NewClient(guard *redeem.Guard) *Client {
	return &Client{
		guard:  guard,
		parser: &JSONParser{Hasher: guard.Builder().Hasher()},
	}
}

// WithParser sets a custom request parser.
func (c *Client) WithParser(parser RequestParser) *Client {
	c.parser = parser
	return c
}

// WithWorkers sets the number of parallel workers (0 = auto-detect based on
// CPU cores).
func (c *Client) WithWorkers(n int) *Client {
	c.workers = n
	return c
}

func (c *Client) numWorkers() int {
	if c.workers <= 0 {
		return runtime.NumCPU()
	}
	return c.workers
}

// RedeemFile redeems every request in a file.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to the request file.
//
// Returns:
//   - The per-request outcomes, or an error if the file cannot be parsed or
//     an infrastructure failure aborts the batch.
func (c *Client) RedeemFile(ctx context.Context, source string) (*BatchResult, error) {
	requests, err := c.parser.ParseRequests(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse requests: %w", err)
	}
	return c.RedeemBatch(ctx, requests)
}

// CheckFile is RedeemFile without committing anything.
func (c *Client) CheckFile(ctx context.Context, source string) (*BatchResult, error) {
	requests, err := c.parser.ParseRequests(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse requests: %w", err)
	}
	return c.CheckBatch(ctx, requests)
}

// RedeemBatch redeems in-memory requests concurrently. Rejections are
// reported per request; the first non-rejection error cancels the rest of
// the batch and is returned.
func (c *Client) RedeemBatch(ctx context.Context, requests []*redeem.Request) (*BatchResult, error) {
	return c.run(ctx, requests, c.guard.Redeem)
}

// CheckBatch runs every check on in-memory requests without committing.
func (c *Client) CheckBatch(ctx context.Context, requests []*redeem.Request) (*BatchResult, error) {
	return c.run(ctx, requests, c.guard.Check)
}

type processFunc func(context.Context, *redeem.Request) (*redeem.Receipt, error)

func (c *Client) run(ctx context.Context, requests []*redeem.Request, process processFunc) (*BatchResult, error) {
	workers := c.numWorkers()
	log.Debugf("Processing %d requests with %d workers", len(requests), workers)

	outcomes := make([]Outcome, len(requests))
	var accepted, rejected int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			receipt, err := process(gctx, req)
			outcomes[i] = Outcome{Index: i, Request: req, Receipt: receipt, Err: err}
			switch {
			case err == nil:
				atomic.AddInt64(&accepted, 1)
			case redeem.IsRejection(err):
				atomic.AddInt64(&rejected, 1)
			default:
				return fmt.Errorf("request %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Errorf("Batch aborted: %v", err)
		}
		return nil, err
	}

	result := &BatchResult{
		Outcomes: outcomes,
		Accepted: int(accepted),
		Rejected: int(rejected),
	}
	log.Infof("Processed %d requests: %d accepted, %d rejected",
		len(requests), result.Accepted, result.Rejected)
	return result, nil
}
