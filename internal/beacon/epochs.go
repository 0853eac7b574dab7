// Package beacon provides epoch/time arithmetic for the beacon chain.
package beacon

import "time"

// Chain constants. Genesis is Dec 1, 2020 12:00:23 UTC; each epoch spans
// 32 slots of 12 seconds.
const (
	GenesisTimestamp int64 = 1606824023
	SlotsPerEpoch    int64 = 32
	SecondsPerSlot   int64 = 12
	SecondsPerEpoch  int64 = SlotsPerEpoch * SecondsPerSlot
	EpochsPerDay     int64 = 225
)

// Fusaka hard fork cutover used by the death tracker.
const (
	FusakaEpoch    int64 = 411392
	FusakaDateTime       = "2025-12-03T21:49:11"
)

// EpochAt returns the epoch index containing the given instant.
func EpochAt(t time.Time) int64 {
	return (t.Unix() - GenesisTimestamp) / SecondsPerEpoch
}

// EndOfDayEpoch returns the epoch at 23:59:59 UTC of the calendar day
// containing d.
func EndOfDayEpoch(d time.Time) int64 {
	y, m, day := d.UTC().Date()
	endOfDay := time.Date(y, m, day, 23, 59, 59, 0, time.UTC)
	return EpochAt(endOfDay)
}

// EpochTime returns the wall-clock instant at which the epoch begins.
func EpochTime(epoch int64) time.Time {
	return time.Unix(EpochTimestamp(epoch), 0).UTC()
}

// EpochTimestamp returns the Unix timestamp at which the epoch begins.
func EpochTimestamp(epoch int64) int64 {
	return GenesisTimestamp + epoch*SecondsPerEpoch
}
