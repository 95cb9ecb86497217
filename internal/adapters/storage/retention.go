// Package storage provides the durable StorageBackend adapters (local file
// and remote SQL), the storage preference store and the export encoders.
package storage

import (
	"strings"
	"time"
)

const (
	// DefaultRetentionDays is the horizon past which records are pruned
	DefaultRetentionDays = 30
	day                  = 24 * time.Hour
)

// retentionWindow converts a day count into a duration, falling back to the default
func retentionWindow(days int) time.Duration {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return time.Duration(days) * day
}

// locationKey is the case-insensitive lookup key of a location
func locationKey(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

// queryCutoff returns the oldest storedAt a query may return. A non-positive
// sinceDays means "the whole retention window".
func queryCutoff(now time.Time, retention time.Duration, sinceDays int) time.Time {
	cutoff := now.Add(-retention)
	if sinceDays > 0 {
		if since := now.Add(-time.Duration(sinceDays) * day); since.After(cutoff) {
			cutoff = since
		}
	}
	return cutoff
}
