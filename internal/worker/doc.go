// Package worker implements the per-host benchmark service.
//
// A Server accepts TCP connections, reads exactly one command line per
// connection, runs the external load generator synchronously when this
// host has a role in the requested phase, and then writes a single
// acknowledgement byte before closing the connection.
//
// # Basic Usage
//
//	cfg := worker.DefaultConfig()
//	cfg.Index = 2
//	srv, err := worker.New(cfg, topo, &loadgen.ExecRunner{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Every connection is handled in its own goroutine, so the accept loop
// never waits on a running invocation. With SerializeRuns set, overlapping
// invocations on the same host queue behind a single-slot lock instead of
// racing each other.
//
// # Shutdown
//
// Cancelling the context closes the listener and every open connection,
// and kills running external processes. An invocation cut short this way
// is never acknowledged. Serve returns after in-flight handlers have
// finished.
package worker
