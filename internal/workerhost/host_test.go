package workerhost

import (
	"context"
	"testing"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedWorker(t *testing.T, w fractor.Worker) *WrappedWorker {
	t.Helper()
	wh := New("w1", w, 4)
	wh.Start()
	msg := <-wh.Outbound()
	require.Equal(t, MsgInitialize, msg.Kind)
	return wh
}

func TestWrappedWorkerExecutesSuccessfully(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		return w.Input(), nil
	}))
	defer wh.Close()

	require.True(t, wh.Send(fractor.NewWork("1", 42)))
	msg := <-wh.Outbound()
	assert.Equal(t, MsgResult, msg.Kind)
	assert.True(t, msg.Result.Success())
	assert.Equal(t, 42, msg.Result.Result())
}

func TestWrappedWorkerReportsPlainError(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		return nil, assertErr("boom")
	}))
	defer wh.Close()

	require.True(t, wh.Send(fractor.NewWork("1", nil)))
	msg := <-wh.Outbound()
	assert.Equal(t, MsgError, msg.Kind)
	assert.False(t, msg.Result.Success())
	assert.Equal(t, "boom", msg.Result.ErrorMessage())
}

func TestWrappedWorkerRecoversFromPanic(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		panic("kaboom")
	}))
	defer wh.Close()

	require.True(t, wh.Send(fractor.NewWork("1", nil)))
	msg := <-wh.Outbound()
	assert.Equal(t, MsgError, msg.Kind)
	assert.Contains(t, msg.Result.ErrorMessage(), "kaboom")
}

func TestWrappedWorkerClassifiesTimeout(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return "late", nil
	}))
	defer wh.Close()

	work := fractor.NewWork("1", nil).WithTimeout(5 * time.Millisecond)
	require.True(t, wh.Send(work))
	msg := <-wh.Outbound()
	assert.Equal(t, MsgError, msg.Kind)
	assert.Equal(t, fractor.CategoryTimeout, msg.Result.Category())
}

func TestWrappedWorkerContextAwareCancellation(t *testing.T) {
	cancelled := make(chan struct{}, 1)
	w := contextAwareWorker(func(ctx context.Context, work fractor.Work) (interface{}, error) {
		<-ctx.Done()
		cancelled <- struct{}{}
		return nil, ctx.Err()
	})
	wh := startedWorker(t, w)
	defer wh.Close()

	work := fractor.NewWork("1", nil).WithTimeout(5 * time.Millisecond)
	require.True(t, wh.Send(work))
	msg := <-wh.Outbound()
	assert.Equal(t, MsgError, msg.Kind)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("ProcessContext was never cancelled")
	}
}

func TestWrappedWorkerShutdown(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		return nil, nil
	}))

	require.True(t, wh.SendShutdown())
	msg := <-wh.Outbound()
	assert.Equal(t, MsgShutdown, msg.Kind)
	assert.Eventually(t, wh.Closed, time.Second, time.Millisecond)

	assert.False(t, wh.Send(fractor.NewWork("2", nil)))
}

func TestWrappedWorkerCloseIsIdempotent(t *testing.T) {
	wh := startedWorker(t, fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
		return nil, nil
	}))
	wh.Close()
	wh.Close()
	assert.True(t, wh.Closed())
}

type contextAwareWorker func(ctx context.Context, work fractor.Work) (interface{}, error)

func (f contextAwareWorker) Process(w fractor.Work) (interface{}, error) {
	return f(context.Background(), w)
}

func (f contextAwareWorker) ProcessContext(ctx context.Context, w fractor.Work) (interface{}, error) {
	return f(ctx, w)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
