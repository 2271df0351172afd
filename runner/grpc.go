package runner

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"web/rentmap/cluster"
	"web/rentmap/viewport"
)

const (
	codecName   = "json"
	serviceName = "rentmap.SessionService"
)

// jsonCodec carries the runner's Go types over gRPC without generated
// protobuf messages. Clients select it with grpc.CallContentSubtype.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// SessionService is the method set shared by SessionRunner and Client.
type SessionService interface {
	CreateSession(ctx context.Context, strategy string) (View, error)
	Dispatch(ctx context.Context, id string, ev viewport.Event) (View, error)
	Get(ctx context.Context, id string) (View, error)
	Close(ctx context.Context, id string) error
	List(ctx context.Context) ([]SessionInfo, error)
	Restore(ctx context.Context, id string) (View, error)
	Pins(ctx context.Context) (cluster.PinSet, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
}

type CreateRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

type SessionRequest struct {
	ID string `json:"id"`
}

type DispatchRequest struct {
	ID    string         `json:"id"`
	Event viewport.Event `json:"event"`
}

type Empty struct{}

type ListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type SnapshotsResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

type PinsResponse struct {
	Pins cluster.PinSet `json:"pins"`
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

// unary adapts a typed call into a grpc method handler.
func unary[Req any](method string, call func(ctx context.Context, svc SessionService, req *Req) (interface{}, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "failed to decode request: %v", err)
		}
		svc := srv.(SessionService)
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			resp, err := call(ctx, svc, req.(*Req))
			if err != nil {
				return nil, toStatus(err)
			}
			return resp, nil
		}
		if interceptor == nil {
			return handler(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		return interceptor(ctx, req, info, handler)
	}
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SessionService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Create",
			Handler: unary("Create", func(ctx context.Context, svc SessionService, req *CreateRequest) (interface{}, error) {
				v, err := svc.CreateSession(ctx, req.Strategy)
				return &v, err
			}),
		},
		{
			MethodName: "Dispatch",
			Handler: unary("Dispatch", func(ctx context.Context, svc SessionService, req *DispatchRequest) (interface{}, error) {
				v, err := svc.Dispatch(ctx, req.ID, req.Event)
				return &v, err
			}),
		},
		{
			MethodName: "Get",
			Handler: unary("Get", func(ctx context.Context, svc SessionService, req *SessionRequest) (interface{}, error) {
				v, err := svc.Get(ctx, req.ID)
				return &v, err
			}),
		},
		{
			MethodName: "Close",
			Handler: unary("Close", func(ctx context.Context, svc SessionService, req *SessionRequest) (interface{}, error) {
				return &Empty{}, svc.Close(ctx, req.ID)
			}),
		},
		{
			MethodName: "List",
			Handler: unary("List", func(ctx context.Context, svc SessionService, req *Empty) (interface{}, error) {
				sessions, err := svc.List(ctx)
				return &ListResponse{Sessions: sessions}, err
			}),
		},
		{
			MethodName: "Restore",
			Handler: unary("Restore", func(ctx context.Context, svc SessionService, req *SessionRequest) (interface{}, error) {
				v, err := svc.Restore(ctx, req.ID)
				return &v, err
			}),
		},
		{
			MethodName: "Pins",
			Handler: unary("Pins", func(ctx context.Context, svc SessionService, req *Empty) (interface{}, error) {
				pins, err := svc.Pins(ctx)
				return &PinsResponse{Pins: pins}, err
			}),
		},
		{
			MethodName: "ListSnapshots",
			Handler: unary("ListSnapshots", func(ctx context.Context, svc SessionService, req *Empty) (interface{}, error) {
				snaps, err := svc.ListSnapshots(ctx)
				return &SnapshotsResponse{Snapshots: snaps}, err
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentmap/session",
}

// RegisterSessionService exposes svc on s.
func RegisterSessionService(s *grpc.Server, svc SessionService) {
	s.RegisterService(&sessionServiceDesc, svc)
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case IsInvalidArgument(err), errors.Is(err, cluster.ErrInvalidPin):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
