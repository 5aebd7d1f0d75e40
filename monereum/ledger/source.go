package ledger

import "context"

// EventSource read side of the ledger, such as a node RPC client or MemoryLedger
type EventSource interface {
	// Height latest block whose events are final
	Height(ctx context.Context) (uint64, error)
	// Events of kind in blocks [from, to], in log order
	Events(ctx context.Context, kind Kind, from, to uint64) ([]RawEvent, error)
}
