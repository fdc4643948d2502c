package types

import (
	"math/big"
)

// QuoteMetadata captures how far one resolution has moved from the signed
// starting terms, for off-path monitoring of auction behavior.
type QuoteMetadata struct {
	OrderHash string    `json:"order_hash"`
	Kind      OrderType `json:"kind"`

	// Amounts at the signed start versus at the quoted context.
	InputStart    *big.Int `json:"input_start"`
	InputResolved *big.Int `json:"input_resolved"`

	// Summed over all outputs of the order.
	OutputStart    *big.Int `json:"output_start"`
	OutputResolved *big.Int `json:"output_resolved"`

	// ImprovementBps is how many basis points the maker's terms improved
	// against the start (input shrinking or outputs growing).
	ImprovementBps int64 `json:"improvement_bps"`

	// Quoting context
	Timestamp   int64  `json:"timestamp"`
	BlockNumber uint64 `json:"block_number"`
}

// QuoteMetadataCollection aggregates quote metadata across many resolutions.
type QuoteMetadataCollection struct {
	TotalQuotes       int     `json:"total_quotes"`
	ImprovedQuotes    int     `json:"improved_quotes"`
	ImprovedRate      float64 `json:"improved_rate"`
	AvgImprovementBps float64 `json:"avg_improvement_bps"`

	Entries []QuoteMetadata `json:"entries"`
}

// AggregateQuoteMetadata combines individual quote entries.
func AggregateQuoteMetadata(entries []QuoteMetadata) QuoteMetadataCollection {
	collection := QuoteMetadataCollection{
		Entries: entries,
	}

	total := len(entries)
	improved := 0
	var bpsSum int64

	for _, e := range entries {
		if e.ImprovementBps > 0 {
			improved++
		}
		bpsSum += e.ImprovementBps
	}

	collection.TotalQuotes = total
	collection.ImprovedQuotes = improved
	if total > 0 {
		collection.ImprovedRate = float64(improved) / float64(total)
		collection.AvgImprovementBps = float64(bpsSum) / float64(total)
	}

	return collection
}
