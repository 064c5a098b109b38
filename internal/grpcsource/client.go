// ============================================================================
// Fractor gRPC work source - client stub
// ============================================================================
//
// Package: internal/grpcsource
// File: client.go
// Function: Thin client stub for the WorkSource service (what
// protoc-gen-go-grpc would emit for a one-method service), plus Source,
// which adapts it into a supervisor.WorkCallback.
//
// ============================================================================

package grpcsource

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metanorma/fractor/pkg/fractor"
)

// Client is a WorkSource client over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing grpc.ClientConn (or any ClientConnInterface,
// useful for tests against an in-memory bufconn listener).
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Poll invokes the remote Poll RPC.
func (c *Client) Poll(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodPoll, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Source polls a remote WorkSource peer for new Work, once per invocation,
// and adapts the result into the []fractor.Work shape a
// supervisor.WorkCallback returns (spec.md §3 WorkCallbacks).
//
// Each item the peer returns is a structpb.Struct with fields "id" (string,
// required), "input" (any JSON-representable value), and optionally
// "timeout_ms" (number). Anything else is skipped rather than failing the
// whole poll, since one malformed item should not starve every worker of the
// rest of the batch.
type Source struct {
	client      *Client
	workerClass string
	maxItems    int32
	pollTimeout time.Duration
}

// NewSource builds a Source. workerClass is advertised to the peer so it can
// route work by pool; maxItems bounds how much work a single poll may return.
// pollTimeout, if positive, bounds each individual Poll RPC.
func NewSource(cc grpc.ClientConnInterface, workerClass string, maxItems int, pollTimeout time.Duration) *Source {
	return &Source{
		client:      NewClient(cc),
		workerClass: workerClass,
		maxItems:    int32(maxItems),
		pollTimeout: pollTimeout,
	}
}

// Callback returns a function suitable for supervisor.Config.WorkCallbacks.
// Poll errors are swallowed into an empty result: a transient RPC failure
// should not crash the dispatch loop, and a nullary WorkCallback has no
// channel to report one through (the supervisor simply tries again on its
// next poll).
func (s *Source) Callback() func() []fractor.Work {
	return func() []fractor.Work {
		ctx := context.Background()
		var cancel context.CancelFunc
		if s.pollTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.pollTimeout)
			defer cancel()
		}

		req, err := structpb.NewStruct(map[string]interface{}{
			"worker_class": s.workerClass,
			"max_items":    float64(s.maxItems),
		})
		if err != nil {
			return nil
		}

		list, err := s.client.Poll(ctx, req)
		if err != nil {
			return nil
		}
		return decodeWork(list)
	}
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func decodeWork(list *structpb.ListValue) []fractor.Work {
	if list == nil {
		return nil
	}
	out := make([]fractor.Work, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		st := v.GetStructValue()
		if st == nil {
			continue
		}
		fields := st.GetFields()
		idVal, ok := fields["id"]
		if !ok {
			continue
		}
		id := idVal.GetStringValue()
		if id == "" {
			continue
		}
		var input interface{}
		if inputVal, ok := fields["input"]; ok {
			input = inputVal.AsInterface()
		}
		w := fractor.NewWork(id, input)
		if tmsVal, ok := fields["timeout_ms"]; ok {
			w = w.WithTimeout(millisToDuration(tmsVal.GetNumberValue()))
		}
		out = append(out, w)
	}
	return out
}

// EncodeWork is the server-side counterpart to decodeWork, used by a Server
// implementation to translate []fractor.Work into the wire list format.
func EncodeWork(items []fractor.Work) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(items))
	for _, w := range items {
		fields := map[string]interface{}{"id": w.ID()}
		if w.Input() != nil {
			fields["input"] = w.Input()
		}
		if w.HasTimeout() {
			fields["timeout_ms"] = float64(w.Timeout().Milliseconds())
		}
		st, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("grpcsource: encode work %q: %w", w.ID(), err)
		}
		values = append(values, structpb.NewStructValue(st))
	}
	return &structpb.ListValue{Values: values}, nil
}
