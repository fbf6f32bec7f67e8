// Package coordinator drives one benchmark phase across the cluster.
//
// For every phase the coordinator works out which hosts take part (the
// fill targets for setup, the load generators for an experiment), opens
// one TCP connection per host concurrently, sends the command line and
// then blocks until every contacted host has written its acknowledgement
// byte. Returning from RunSetup or RunExperiment without an error means
// every contacted worker has finished its external process.
//
// # Basic Usage
//
//	c := coordinator.New(coordinator.DefaultConfig(), topo)
//	if _, err := c.RunSetup(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	report, err := c.RunExperiment(ctx, 8)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report)
//
// # Failures
//
// A host that cannot be reached, or that closes its connection without
// acknowledging, aborts the phase. The returned error is a *HostError that
// names the host; the remaining connections are closed. There is no
// default timeout, so a worker that never answers blocks the phase until
// the caller's context is cancelled or Config.AckTimeout elapses.
package coordinator
