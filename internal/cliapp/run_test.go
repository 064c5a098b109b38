package cliapp

import (
	"bytes"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/metanorma/fractor/internal/config"
	"github.com/metanorma/fractor/internal/grpcsource"
	"github.com/metanorma/fractor/pkg/fractor"
)

// TestDialWorkSourcePollsRemotePeer starts a real grpcsource.Server on a
// loopback TCP listener and confirms dialWorkSource's callback round-trips
// Work through it, exercising spec.md §3's WorkCallbacks over the actual
// gRPC transport rather than an in-process stub.
func TestDialWorkSourcePollsRemotePeer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	grpcsource.RegisterServer(srv, grpcsource.NewProducerServer(func(class string, maxItems int) []fractor.Work {
		assert.Equal(t, "echo", class)
		return []fractor.Work{fractor.NewWork("remote-1", "hello")}
	}))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	cfg := config.Default()
	cfg.Pools = []config.PoolConfig{{WorkerClass: "echo", NumWorkers: 1}}
	cfg.WorkSource = config.WorkSourceConfig{Enabled: true, Address: lis.Addr().String(), MaxItems: 4}

	conn, cb, err := dialWorkSource(cfg)
	require.NoError(t, err)
	defer conn.Close()

	got := cb()
	require.Len(t, got, 1)
	assert.Equal(t, "remote-1", got[0].ID())
	assert.Equal(t, "hello", got[0].Input())
}

// TestExecuteCommandWithCacheSharesComputation registers a worker that
// counts real invocations, then runs five Work items with identical input
// through a cache-enabled pool. Per spec.md §4.8 / §8 scenario 5, the
// underlying compute must run once per distinct fingerprint no matter how
// many Work items share it.
func TestExecuteCommandWithCacheSharesComputation(t *testing.T) {
	var calls int32
	fractor.Register("counting", func() fractor.Worker {
		return fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return w.Input(), nil
		})
	})

	path := writeConfigFile(t, "pools:\n  - worker_class: counting\n    num_workers: 1\n"+
		"metrics:\n  enabled: false\ncache:\n  enabled: true\n  max_entries: 10\n")

	cmd := BuildCLI()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"execute", path, "-i", `[7, 7, 7, 7, 7]`})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "completed=5")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "cache should collapse repeated input to one real computation")
}
