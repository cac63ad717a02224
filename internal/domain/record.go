package domain

// Instruction is one instruction extracted from a transaction, either from
// the primary message or from an inner (CPI) instruction list. Both are
// scanned uniformly by the decoder; Index preserves the flattened order.
type Instruction struct {
	ProgramID string
	Index     int
	Data      []byte
}

// RawRecord is one fetched ledger record: transaction-level metadata plus the
// ordered instruction payloads that may carry program events. Immutable once
// fetched.
type RawRecord struct {
	Signature    string
	Slot         int64
	BlockTime    *int64 // Unix seconds; nil when the node has no timestamp
	FeeLamports  uint64
	Failed       bool
	Instructions []Instruction
}

// EventContext ties a decoded event back to its originating record.
type EventContext struct {
	Signature  string
	Slot       int64
	BlockTime  int64 // Unix seconds
	EventIndex int
}
