package topology

import (
	"errors"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, hosts ...string) *Topology {
	t.Helper()
	topo, err := New(hosts, DefaultCachePort)
	if err != nil {
		t.Fatalf("failed to create topology: %v", err)
	}
	return topo
}

func TestNewTopology(t *testing.T) {
	topo := mustNew(t, "A", "B", "C", "D")

	if topo.Size() != 4 {
		t.Errorf("expected size 4, got %d", topo.Size())
	}
	if topo.CachePort() != DefaultCachePort {
		t.Errorf("expected cache port %d, got %d", DefaultCachePort, topo.CachePort())
	}
}

func TestNewTopologyInvalid(t *testing.T) {
	tests := []struct {
		name  string
		hosts []string
		port  int
	}{
		{"duplicate host", []string{"A", "A"}, 11211},
		{"empty host", []string{"A", " "}, 11211},
		{"zero port", []string{"A"}, 0},
		{"port too large", []string{"A"}, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.hosts, tt.port); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHostsIsCopy(t *testing.T) {
	topo := mustNew(t, "A", "B")

	hosts := topo.Hosts()
	hosts[0] = "Z"

	if h, _ := topo.HostAt(0); h != "A" {
		t.Errorf("topology mutated through Hosts(): got %s", h)
	}
}

func TestHostAt(t *testing.T) {
	topo := mustNew(t, "A", "B")

	h, err := topo.HostAt(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != "B" {
		t.Errorf("expected B, got %s", h)
	}

	for _, idx := range []int{2, 10, -1} {
		if _, err := topo.HostAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("HostAt(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}

func TestFourHostScenario(t *testing.T) {
	topo := mustNew(t, "A", "B", "C", "D")

	gen := topo.GeneratorIndices(4)
	if !reflect.DeepEqual(gen.Indices(), []int{2, 3}) {
		t.Errorf("expected generators [2 3], got %v", gen.Indices())
	}

	if got := topo.ServerSubset(4); !reflect.DeepEqual(got, []string{"A:11211", "B:11211"}) {
		t.Errorf("unexpected server subset: %v", got)
	}
	if got := topo.ServerList(4); got != "A:11211,B:11211" {
		t.Errorf("expected \"A:11211,B:11211\", got %q", got)
	}
}

func TestTwoHostSetupScenario(t *testing.T) {
	topo := mustNew(t, "A", "B")

	fill := topo.FillTargetIndices()
	if !reflect.DeepEqual(fill.Indices(), []int{0}) {
		t.Errorf("expected fill targets [0], got %v", fill.Indices())
	}

	ep, err := topo.CacheEndpoint(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep != "A:11211" {
		t.Errorf("expected A:11211, got %s", ep)
	}

	if got := topo.Targets(SetupSize); got != fill {
		t.Errorf("expected setup targets %v, got %v", fill, got)
	}
}

func TestSmallExperimentSizes(t *testing.T) {
	topo := mustNew(t, "A", "B", "C", "D")

	for _, size := range []int{0, 1} {
		if got := topo.ServerSubset(size); len(got) != 0 {
			t.Errorf("ServerSubset(%d): expected empty, got %v", size, got)
		}
		if got := topo.GeneratorIndices(size); got.Len() != 0 {
			t.Errorf("GeneratorIndices(%d): expected empty, got %v", size, got)
		}
		if got := topo.Targets(size); got.Len() != 0 {
			t.Errorf("Targets(%d): expected empty, got %v", size, got)
		}
	}
}

func TestEmptyCluster(t *testing.T) {
	topo := mustNew(t)

	if got := topo.ServerSubset(4); len(got) != 0 {
		t.Errorf("expected empty subset, got %v", got)
	}
	if got := topo.GeneratorIndices(4); got.Len() != 0 {
		t.Errorf("expected no generators, got %v", got)
	}
	if got := topo.FillTargetIndices(); got.Len() != 0 {
		t.Errorf("expected no fill targets, got %v", got)
	}
}

func TestSizeLargerThanCluster(t *testing.T) {
	topo := mustNew(t, "A", "B", "C", "D")

	if got := topo.GeneratorIndices(16); got != (IndexRange{Start: 4, End: 4}) {
		t.Errorf("expected clamped empty range, got %v", got)
	}
	if got := topo.ServerSubset(16); len(got) != 4 {
		t.Errorf("expected all 4 hosts as servers, got %v", got)
	}
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		index, size, cluster int
		expected             Role
	}{
		{0, SetupSize, 4, RoleFillTarget},
		{1, SetupSize, 4, RoleFillTarget},
		{2, SetupSize, 4, RoleIdle},
		{0, 4, 4, RoleIdle},
		{2, 4, 4, RoleGenerator},
		{3, 4, 4, RoleGenerator},
		{3, 2, 4, RoleIdle},
		{1, 2, 4, RoleGenerator},
		{0, 1, 4, RoleIdle},
		{0, 0, 4, RoleIdle},
		{5, 4, 4, RoleIdle},
		{-1, 4, 4, RoleIdle},
		{0, -5, 4, RoleIdle},
	}

	for _, tt := range tests {
		if got := RoleOf(tt.index, tt.size, tt.cluster); got != tt.expected {
			t.Errorf("RoleOf(%d, %d, %d) = %s, want %s", tt.index, tt.size, tt.cluster, got, tt.expected)
		}
	}
}

func TestRoleString(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{RoleIdle, "Idle"},
		{RoleFillTarget, "FillTarget"},
		{RoleGenerator, "Generator"},
		{Role(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.role.String(); got != tt.expected {
			t.Errorf("Role(%d).String() = %s, want %s", tt.role, got, tt.expected)
		}
	}
}

func TestResolve(t *testing.T) {
	topo := mustNew(t, "10.0.0.1", "10.0.0.2", "10.0.0.3")

	idx, err := topo.Resolve([]string{"127.0.0.1", "10.0.0.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}

	if _, err := topo.Resolve([]string{"192.168.1.1"}); !errors.Is(err, ErrHostNotFound) {
		t.Errorf("expected ErrHostNotFound, got %v", err)
	}
}
