// Package healthv1 declares geointel.health.v1.HealthService, the readiness probe used by
// load balancers, orchestrators and `geointel health`.
package healthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"geointel/api/codec"
)

const (
	ServiceName               = "geointel.health.v1.HealthService"
	HealthCheckFullMethodName = "/" + ServiceName + "/HealthCheck"
)

// ServingStatus is the readiness verdict.
type ServingStatus string

const (
	ServingStatusServing    ServingStatus = "SERVING"
	ServingStatusNotServing ServingStatus = "NOT_SERVING"
)

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status ServingStatus `json:"status"`
	// Checks maps each dependency (store, alert_policy) to "ok" or its failure message.
	Checks map[string]string `json:"checks,omitempty"`
}

// GetStatus returns the status, or "" for a nil response.
func (r *HealthCheckResponse) GetStatus() ServingStatus {
	if r == nil {
		return ""
	}
	return r.Status
}

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
	mustEmbedUnimplementedHealthServiceServer()
}

// UnimplementedHealthServiceServer returns Unimplemented for every RPC.
type UnimplementedHealthServiceServer struct{}

func (UnimplementedHealthServiceServer) HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}
func (UnimplementedHealthServiceServer) mustEmbedUnimplementedHealthServiceServer() {}

// RegisterHealthServiceServer registers srv on s.
func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}

func healthCheckHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HealthServiceServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthCheckFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HealthServiceServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// HealthService_ServiceDesc is the grpc.ServiceDesc for HealthService.
var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods:     []grpc.MethodDesc{{MethodName: "HealthCheck", Handler: healthCheckHandler}},
	Streams:     []grpc.StreamDesc{},
	Metadata:    "geointel/health/v1/health.json",
}

// HealthServiceClient is the client API for HealthService.
type HealthServiceClient interface {
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
}

type healthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHealthServiceClient(cc grpc.ClientConnInterface) HealthServiceClient {
	return &healthServiceClient{cc: cc}
}

func (c *healthServiceClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	if err := c.cc.Invoke(ctx, HealthCheckFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
