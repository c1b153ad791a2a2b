// Package intelv1 declares the geointel.intel.v1.IntelService gRPC service: message types,
// the server interface, its service descriptor and a client. Messages use the JSON codec.
package intelv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"geointel/api/codec"
)

const ServiceName = "geointel.intel.v1.IntelService"

const (
	IngestEventsFullMethodName      = "/" + ServiceName + "/IngestEvents"
	ImportCSVFullMethodName         = "/" + ServiceName + "/ImportCSV"
	GenerateSyntheticFullMethodName = "/" + ServiceName + "/GenerateSynthetic"
	ListEventsFullMethodName        = "/" + ServiceName + "/ListEvents"
	GetFilterOptionsFullMethodName  = "/" + ServiceName + "/GetFilterOptions"
	AnalyzeFullMethodName           = "/" + ServiceName + "/Analyze"
	ExportFullMethodName            = "/" + ServiceName + "/Export"
)

// IntelServiceServer is the server API for IntelService.
// Implementations must embed UnimplementedIntelServiceServer.
type IntelServiceServer interface {
	IngestEvents(context.Context, *IngestEventsRequest) (*IngestEventsResponse, error)
	ImportCSV(context.Context, *ImportCSVRequest) (*ImportCSVResponse, error)
	GenerateSynthetic(context.Context, *GenerateSyntheticRequest) (*GenerateSyntheticResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	GetFilterOptions(context.Context, *GetFilterOptionsRequest) (*GetFilterOptionsResponse, error)
	Analyze(context.Context, *AnalyzeRequest) (*AnalyzeResponse, error)
	Export(context.Context, *ExportRequest) (*ExportResponse, error)
	mustEmbedUnimplementedIntelServiceServer()
}

// UnimplementedIntelServiceServer returns Unimplemented for every RPC.
type UnimplementedIntelServiceServer struct{}

func (UnimplementedIntelServiceServer) IngestEvents(context.Context, *IngestEventsRequest) (*IngestEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IngestEvents not implemented")
}
func (UnimplementedIntelServiceServer) ImportCSV(context.Context, *ImportCSVRequest) (*ImportCSVResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ImportCSV not implemented")
}
func (UnimplementedIntelServiceServer) GenerateSynthetic(context.Context, *GenerateSyntheticRequest) (*GenerateSyntheticResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateSynthetic not implemented")
}
func (UnimplementedIntelServiceServer) ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEvents not implemented")
}
func (UnimplementedIntelServiceServer) GetFilterOptions(context.Context, *GetFilterOptionsRequest) (*GetFilterOptionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFilterOptions not implemented")
}
func (UnimplementedIntelServiceServer) Analyze(context.Context, *AnalyzeRequest) (*AnalyzeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Analyze not implemented")
}
func (UnimplementedIntelServiceServer) Export(context.Context, *ExportRequest) (*ExportResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Export not implemented")
}
func (UnimplementedIntelServiceServer) mustEmbedUnimplementedIntelServiceServer() {}

// RegisterIntelServiceServer registers srv on s.
func RegisterIntelServiceServer(s grpc.ServiceRegistrar, srv IntelServiceServer) {
	s.RegisterService(&IntelService_ServiceDesc, srv)
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(IntelServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IntelServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IntelServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// IntelService_ServiceDesc is the grpc.ServiceDesc for IntelService.
var IntelService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IngestEvents", Handler: unary(IngestEventsFullMethodName, IntelServiceServer.IngestEvents)},
		{MethodName: "ImportCSV", Handler: unary(ImportCSVFullMethodName, IntelServiceServer.ImportCSV)},
		{MethodName: "GenerateSynthetic", Handler: unary(GenerateSyntheticFullMethodName, IntelServiceServer.GenerateSynthetic)},
		{MethodName: "ListEvents", Handler: unary(ListEventsFullMethodName, IntelServiceServer.ListEvents)},
		{MethodName: "GetFilterOptions", Handler: unary(GetFilterOptionsFullMethodName, IntelServiceServer.GetFilterOptions)},
		{MethodName: "Analyze", Handler: unary(AnalyzeFullMethodName, IntelServiceServer.Analyze)},
		{MethodName: "Export", Handler: unary(ExportFullMethodName, IntelServiceServer.Export)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "geointel/intel/v1/intel.json",
}

// IntelServiceClient is the client API for IntelService.
type IntelServiceClient interface {
	IngestEvents(ctx context.Context, in *IngestEventsRequest, opts ...grpc.CallOption) (*IngestEventsResponse, error)
	ImportCSV(ctx context.Context, in *ImportCSVRequest, opts ...grpc.CallOption) (*ImportCSVResponse, error)
	GenerateSynthetic(ctx context.Context, in *GenerateSyntheticRequest, opts ...grpc.CallOption) (*GenerateSyntheticResponse, error)
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
	GetFilterOptions(ctx context.Context, in *GetFilterOptionsRequest, opts ...grpc.CallOption) (*GetFilterOptionsResponse, error)
	Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeResponse, error)
	Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error)
}

type intelServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIntelServiceClient returns a client that sends every call with the JSON codec.
func NewIntelServiceClient(cc grpc.ClientConnInterface) IntelServiceClient {
	return &intelServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *intelServiceClient) IngestEvents(ctx context.Context, in *IngestEventsRequest, opts ...grpc.CallOption) (*IngestEventsResponse, error) {
	return invoke[IngestEventsResponse](ctx, c.cc, IngestEventsFullMethodName, in, opts)
}

func (c *intelServiceClient) ImportCSV(ctx context.Context, in *ImportCSVRequest, opts ...grpc.CallOption) (*ImportCSVResponse, error) {
	return invoke[ImportCSVResponse](ctx, c.cc, ImportCSVFullMethodName, in, opts)
}

func (c *intelServiceClient) GenerateSynthetic(ctx context.Context, in *GenerateSyntheticRequest, opts ...grpc.CallOption) (*GenerateSyntheticResponse, error) {
	return invoke[GenerateSyntheticResponse](ctx, c.cc, GenerateSyntheticFullMethodName, in, opts)
}

func (c *intelServiceClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, ListEventsFullMethodName, in, opts)
}

func (c *intelServiceClient) GetFilterOptions(ctx context.Context, in *GetFilterOptionsRequest, opts ...grpc.CallOption) (*GetFilterOptionsResponse, error) {
	return invoke[GetFilterOptionsResponse](ctx, c.cc, GetFilterOptionsFullMethodName, in, opts)
}

func (c *intelServiceClient) Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeResponse, error) {
	return invoke[AnalyzeResponse](ctx, c.cc, AnalyzeFullMethodName, in, opts)
}

func (c *intelServiceClient) Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error) {
	return invoke[ExportResponse](ctx, c.cc, ExportFullMethodName, in, opts)
}
