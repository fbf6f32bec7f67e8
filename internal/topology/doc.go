// Package topology describes the fixed, ordered set of benchmark hosts.
//
// Every participant (coordinator and workers) loads the same host list. The
// position of a host in that list is its identity: role assignment and the
// list of cache servers a load generator targets are both computed from
// index arithmetic, never exchanged over the wire.
//
// # Roles
//
// For an experiment of size N (N >= 0):
//   - indices [N/2, N) run the load generator (RoleGenerator)
//   - the first N/2 hosts serve as cache targets (ServerSubset)
//
// For the fill phase (SetupSize, -1):
//   - indices [0, size/2) fill their own local cache (RoleFillTarget)
//
// Everything else is RoleIdle.
//
// # Basic Usage
//
//	topo, err := topology.New([]string{"10.0.1.1", "10.0.1.2", "10.0.1.3", "10.0.1.4"}, 11211)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	topo.ServerList(4)       // "10.0.1.1:11211,10.0.1.2:11211"
//	topo.GeneratorIndices(4) // [2, 4)
//
// # Thread Safety
//
// A Topology is immutable after New and may be shared across goroutines.
package topology
