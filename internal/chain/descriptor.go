package chain

import "time"

// Descriptor is the immutable chain description for a single ingestion run.
// It is produced by an external chain-registry lookup; the ingestion core
// only ever consumes a constructed Descriptor.
type Descriptor struct {
	ChainID       string
	RegistryName  string
	APIEndpoints  []string
	BatchSize     int
	StepSize      int
	BlockInterval time.Duration
}
