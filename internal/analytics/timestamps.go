package analytics

import "time"

// MonthKey buckets a timestamp into its UTC calendar month.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
