package grpcsource

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/metanorma/fractor/pkg/fractor"
)

func dialBufconn(t *testing.T, produce Producer) (*grpc.ClientConn, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterServer(srv, NewProducerServer(produce))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	return conn, func() {
		_ = conn.Close()
		srv.Stop()
	}
}

func TestSourceCallbackRoundTrip(t *testing.T) {
	produced := []fractor.Work{
		fractor.NewWork("w1", map[string]interface{}{"n": float64(1)}),
		fractor.NewWork("w2", "payload").WithTimeout(250 * time.Millisecond),
	}

	conn, cleanup := dialBufconn(t, func(workerClass string, maxItems int) []fractor.Work {
		assert.Equal(t, "squares", workerClass)
		assert.Equal(t, 5, maxItems)
		return produced
	})
	defer cleanup()

	src := NewSource(conn, "squares", 5, time.Second)
	got := src.Callback()()

	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].ID())
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, got[0].Input())
	assert.Equal(t, "w2", got[1].ID())
	assert.Equal(t, "payload", got[1].Input())
	assert.Equal(t, 250*time.Millisecond, got[1].Timeout())
}

func TestSourceCallbackEmptyPoll(t *testing.T) {
	conn, cleanup := dialBufconn(t, func(string, int) []fractor.Work { return nil })
	defer cleanup()

	src := NewSource(conn, "idle", 1, 0)
	got := src.Callback()()
	assert.Empty(t, got)
}

func TestSourceCallbackSwallowsDialFailure(t *testing.T) {
	// An already-closed connection makes Invoke fail; Callback must return
	// an empty slice rather than panicking or propagating the error.
	conn, cleanup := dialBufconn(t, func(string, int) []fractor.Work { return nil })
	cleanup()
	_ = conn

	src := NewSource(conn, "idle", 1, 50*time.Millisecond)
	assert.NotPanics(t, func() {
		got := src.Callback()()
		assert.Empty(t, got)
	})
}
