package l402

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SpendingRecord is a single payment event. Failed attempts are kept with
// Success=false and an empty preimage; they never count toward totals.
type SpendingRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Domain     string    `json:"domain"`
	Path       string    `json:"path"`
	AmountSats int64     `json:"amount_sats"`
	Preimage   string    `json:"preimage"`
	Macaroon   string    `json:"macaroon"`
	Success    bool      `json:"success"`
}

// SpendingLog is an append-only, in-memory record of payments for
// introspection and auditing. It is safe for concurrent use.
//
// Timestamps are assigned under the log's lock at append time, so records
// are totally ordered and never mutated afterwards.
type SpendingLog struct {
	mu      sync.RWMutex
	records []SpendingRecord
	now     func() time.Time
}

// NewSpendingLog returns an empty log.
func NewSpendingLog() *SpendingLog {
	return &SpendingLog{now: time.Now}
}

// Record appends a payment event. The record's Timestamp is overwritten
// with the append time.
func (l *SpendingLog) Record(rec SpendingRecord) error {
	if rec.AmountSats <= 0 {
		return fmt.Errorf("l402: spending record amount must be positive, got %d", rec.AmountSats)
	}
	if rec.Domain == "" {
		return errors.New("l402: spending record domain must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	rec.Timestamp = l.now()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of all records in append order.
func (l *SpendingLog) Records() []SpendingRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]SpendingRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records, including failed attempts.
func (l *SpendingLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// TotalSpent returns the sats spent across all successful payments.
func (l *SpendingLog) TotalSpent() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, r := range l.records {
		if r.Success {
			total += r.AmountSats
		}
	}
	return total
}

// SpentLastHour returns the sats spent in the sliding 1-hour window.
func (l *SpendingLog) SpentLastHour() int64 {
	return l.totalSince(l.clock().Add(-time.Hour))
}

// SpentLastDay returns the sats spent in the sliding 24-hour window.
func (l *SpendingLog) SpentLastDay() int64 {
	return l.totalSince(l.clock().Add(-24 * time.Hour))
}

// ByDomain returns the sats spent per domain across successful payments.
func (l *SpendingLog) ByDomain() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	totals := make(map[string]int64)
	for _, r := range l.records {
		if r.Success {
			totals[r.Domain] += r.AmountSats
		}
	}
	return totals
}

// JSON serializes all records, including failed attempts.
func (l *SpendingLog) JSON() ([]byte, error) {
	return json.MarshalIndent(l.Records(), "", "  ")
}

// totalSince sums successful spend at or after the cutoff.
func (l *SpendingLog) totalSince(cutoff time.Time) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, r := range l.records {
		if r.Success && !r.Timestamp.Before(cutoff) {
			total += r.AmountSats
		}
	}
	return total
}

func (l *SpendingLog) clock() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.now()
}
