package service

import (
	"sort"
	"strings"
	"time"

	"wallet_console/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// TransferLog keeps the transfers submitted during this process lifetime. Entries expire after
// the configured TTL and are never written to disk.
type TransferLog struct {
	records *cache.Cache
}

// NewTransferLog creates a transfer log. Non-positive durations fall back to one hour of
// retention and a ten minute cleanup interval.
func NewTransferLog(ttl, cleanupInterval time.Duration) *TransferLog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &TransferLog{records: cache.New(ttl, cleanupInterval)}
}

// Add stores a record under its transaction id.
func (l *TransferLog) Add(rec entity.TransferRecord) {
	l.records.SetDefault(strings.ToLower(rec.TransactionID), rec)
}

// ForAccount returns the unexpired records of account, newest first.
func (l *TransferLog) ForAccount(account string) []entity.TransferRecord {
	items := l.records.Items()
	out := make([]entity.TransferRecord, 0, len(items))
	for _, item := range items {
		rec, ok := item.Object.(entity.TransferRecord)
		if !ok || !strings.EqualFold(rec.Account, account) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// Len reports the number of unexpired records.
func (l *TransferLog) Len() int {
	return l.records.ItemCount()
}
