// Package metrics records how long each contacted host took to acknowledge
// a phase.
//
// Completion times are kept in an HDR histogram, so percentiles stay
// accurate for any cluster size without storing individual samples.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... wait for a host's acknowledgement ...
//	m.RecordAck(time.Since(start))
//
//	snap := m.Snapshot()
//	fmt.Printf("acked=%d p50=%v max=%v spread=%v\n",
//	    snap.Acked, snap.P50, snap.Max, snap.Spread())
//
// # Thread Safety
//
// Counters are atomic and the histogram is guarded by a mutex; all methods
// are safe for concurrent use.
package metrics
