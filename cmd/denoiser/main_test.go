package main

import (
	"testing"

	"github.com/isingmesh/denoiser"
)

func TestParseGrid(t *testing.T) {
	got, err := parseGrid("2x3")
	if err != nil {
		t.Fatalf("parseGrid returned error: %v", err)
	}
	if got != 3 {
		t.Fatalf("parseGrid(\"2x3\") = %d; want 3", got)
	}
}

func TestParseGrid_RejectsMalformed(t *testing.T) {
	cases := []string{"2", "2xy", "x3", "0x0"}
	for _, c := range cases {
		if _, err := parseGrid(c); err == nil {
			t.Errorf("parseGrid(%q) succeeded; want error", c)
		}
	}
}

func TestDistributedEndpoints(t *testing.T) {
	peers := "0=host0:9000,1=host1:9000,2=host2:9000,3=host3:9000,4=localhost:9000"
	endpoints, err := distributedEndpoints(peers, 4, 4)
	if err != nil {
		t.Fatalf("distributedEndpoints returned error: %v", err)
	}
	if endpoints[4] != "localhost:9000" {
		t.Fatalf("endpoints[4] = %q; want %q", endpoints[4], "localhost:9000")
	}
	if endpoints[0] != "host0:9000" {
		t.Fatalf("endpoints[0] = %q; want %q", endpoints[0], "host0:9000")
	}
}

func TestDistributedEndpoints_RequiresCoordinatorAddr(t *testing.T) {
	if _, err := distributedEndpoints("", 4, 4); err == nil {
		t.Fatal("expected error for empty --peers")
	}
}

func TestDistributedEndpoints_RejectsMissingWorkerRank(t *testing.T) {
	// rank 2 is absent: every worker rank must have an address.
	peers := "0=host0:9000,1=host1:9000,3=host3:9000,4=localhost:9000"
	if _, err := distributedEndpoints(peers, 4, 4); err == nil {
		t.Fatal("expected error for missing worker rank")
	}
}

func TestDistributedEndpoints_RejectsMissingCoordinatorRank(t *testing.T) {
	peers := "0=host0:9000,1=host1:9000,2=host2:9000,3=host3:9000"
	if _, err := distributedEndpoints(peers, 4, 4); err == nil {
		t.Fatal("expected error for missing coordinator rank")
	}
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{denoiser.ErrInvalidConfig, 1},
		{denoiser.ErrInvalidTopology, 2},
		{denoiser.ErrTransport, 3},
		{denoiser.ErrImageIO, 4},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("exitCodeFor(%v) = %d; want %d", c.err, got, c.want)
		}
	}
}

func TestRun_RejectsWrongArgumentCount(t *testing.T) {
	if code := run([]string{"in.txt", "out.txt"}); code != 1 {
		t.Fatalf("run with missing args returned %d; want 1", code)
	}
}

func TestRun_RejectsUnrecognizedMode(t *testing.T) {
	code := run([]string{"--mode", "bogus", "in.txt", "out.txt", "1.0", "0.1"})
	if code != 1 {
		t.Fatalf("run with unrecognized --mode returned %d; want 1", code)
	}
}

func TestRun_RejectsNonNumericBeta(t *testing.T) {
	code := run([]string{"in.txt", "out.txt", "not-a-number", "0.1"})
	if code != 1 {
		t.Fatalf("run with non-numeric beta returned %d; want 1", code)
	}
}
