// ============================================================================
// Fractor gRPC work source - server adapter
// ============================================================================
//
// Package: internal/grpcsource
// File: server.go
// Function: Adapts a local work producer into a grpcsource.Server, for
// processes that want to expose their own pending Work to remote Fractor
// supervisors running in continuous mode.
//
// ============================================================================

package grpcsource

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metanorma/fractor/pkg/fractor"
)

// Producer supplies up to maxItems Work items per call. Implementations are
// typically backed by a WorkQueue's DequeueBatch or an application-level
// generator; a Producer is never required to return exactly maxItems.
type Producer func(workerClass string, maxItems int) []fractor.Work

// producerServer implements Server by delegating to a Producer.
type producerServer struct {
	produce Producer
}

// NewProducerServer wraps produce as a grpcsource.Server ready for
// RegisterServer.
func NewProducerServer(produce Producer) Server {
	return &producerServer{produce: produce}
}

func (s *producerServer) Poll(_ context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	fields := req.GetFields()
	workerClass := fields["worker_class"].GetStringValue()
	maxItems := int(fields["max_items"].GetNumberValue())
	if maxItems <= 0 {
		maxItems = 1
	}

	items := s.produce(workerClass, maxItems)
	return EncodeWork(items)
}
