package core

import "fmt"

// SequenceValidator enforces per-partition source ordering. Command
// partitions are strict: an unexpected sequence is an error. Price feed
// partitions are advisory: feeds publish continuously, so stale
// observations are skipped and gaps merely counted.
// Not thread-safe — only the deterministic core touches it.
type SequenceValidator struct {
	cursors map[string]int64 // partition -> next expected sequence
	metrics *SequenceMetrics
}

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{
		cursors: make(map[string]int64),
		metrics: NewSequenceMetrics(),
	}
}

// ValidateSequence checks strict ordering for a command partition and
// advances the cursor on match.
func (sv *SequenceValidator) ValidateSequence(
	partition string,
	sourceSequence int64,
	idempotencyKey string,
	isDuplicate bool,
) error {
	expected := sv.cursors[partition]

	switch {
	case sourceSequence == expected:
		sv.cursors[partition] = expected + 1
		return nil

	case sourceSequence < expected:
		if isDuplicate {
			// Redelivery of an already-processed event.
			return nil
		}
		sv.metrics.RecordOutOfOrder(partition)
		return fmt.Errorf("out-of-order event: partition=%s, expected=%d, got=%d",
			partition, expected, sourceSequence)

	default:
		sv.metrics.RecordGap(partition, expected, sourceSequence)
		return fmt.Errorf("sequence gap: partition=%s, expected=%d, got=%d",
			partition, expected, sourceSequence)
	}
}

// ValidateFeedSequence applies the tolerant feed rules: stale updates
// are accepted as no-ops, gaps are recorded but not rejected.
func (sv *SequenceValidator) ValidateFeedSequence(feedID string, feedSequence int64) error {
	partition := "feed:" + feedID
	expected := sv.cursors[partition]

	if feedSequence <= expected {
		return nil
	}
	if feedSequence > expected+1 {
		sv.metrics.RecordFeedGap(feedID, expected, feedSequence)
	}

	sv.cursors[partition] = feedSequence + 1
	return nil
}

// GetExpectedSequence returns the next expected sequence for a partition.
func (sv *SequenceValidator) GetExpectedSequence(partition string) int64 {
	return sv.cursors[partition]
}

// SetExpectedSequence initializes a partition cursor during recovery.
func (sv *SequenceValidator) SetExpectedSequence(partition string, seq int64) {
	sv.cursors[partition] = seq
}

// RestorePartition sets a partition cursor from a snapshot.
func (sv *SequenceValidator) RestorePartition(partition string, seq int64) {
	sv.cursors[partition] = seq
}

// GetAllPartitions copies all partition cursors for snapshot creation.
func (sv *SequenceValidator) GetAllPartitions() map[string]int64 {
	result := make(map[string]int64, len(sv.cursors))
	for k, v := range sv.cursors {
		result[k] = v
	}
	return result
}

// SequenceMetrics counts ordering anomalies per partition. Core
// goroutine only.
type SequenceMetrics struct {
	gaps       map[string]int64
	outOfOrder map[string]int64
	feedGaps   map[string]int64
}

func NewSequenceMetrics() *SequenceMetrics {
	return &SequenceMetrics{
		gaps:       make(map[string]int64),
		outOfOrder: make(map[string]int64),
		feedGaps:   make(map[string]int64),
	}
}

func (m *SequenceMetrics) RecordGap(partition string, expected, got int64) {
	m.gaps[partition]++
}

func (m *SequenceMetrics) RecordOutOfOrder(partition string) {
	m.outOfOrder[partition]++
}

func (m *SequenceMetrics) RecordFeedGap(feedID string, expected, got int64) {
	m.feedGaps[feedID]++
}

func (m *SequenceMetrics) GetGaps(partition string) int64 {
	return m.gaps[partition]
}

func (m *SequenceMetrics) GetOutOfOrder(partition string) int64 {
	return m.outOfOrder[partition]
}

func (m *SequenceMetrics) GetFeedGaps(feedID string) int64 {
	return m.feedGaps[feedID]
}
