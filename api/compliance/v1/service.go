package compliancev1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "grpc.ComplianceRpc"

// Full method names
const (
	ComplianceRPC_IsReady_FullMethodName              = "/grpc.ComplianceRpc/isReady"
	ComplianceRPC_SubmitFlightPlan_FullMethodName     = "/grpc.ComplianceRpc/submitFlightPlan"
	ComplianceRPC_RequestFlightRelease_FullMethodName = "/grpc.ComplianceRpc/requestFlightRelease"
)

// ComplianceRPCServer is the server API for the ComplianceRpc service
type ComplianceRPCServer interface {
	// Common Interfaces
	IsReady(context.Context, *QueryIsReady) (*ReadyResponse, error)
	SubmitFlightPlan(context.Context, *FlightPlanRequest) (*FlightPlanResponse, error)
	RequestFlightRelease(context.Context, *FlightReleaseRequest) (*FlightReleaseResponse, error)
}

// RegisterComplianceRPCServer registers srv on s
func RegisterComplianceRPCServer(s grpc.ServiceRegistrar, srv ComplianceRPCServer) {
	s.RegisterService(&ComplianceRPC_ServiceDesc, srv)
}

func _ComplianceRPC_IsReady_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryIsReady)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComplianceRPCServer).IsReady(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ComplianceRPC_IsReady_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ComplianceRPCServer).IsReady(ctx, req.(*QueryIsReady))
	}
	return interceptor(ctx, in, info, handler)
}

func _ComplianceRPC_SubmitFlightPlan_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FlightPlanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComplianceRPCServer).SubmitFlightPlan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ComplianceRPC_SubmitFlightPlan_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ComplianceRPCServer).SubmitFlightPlan(ctx, req.(*FlightPlanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ComplianceRPC_RequestFlightRelease_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FlightReleaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComplianceRPCServer).RequestFlightRelease(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ComplianceRPC_RequestFlightRelease_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ComplianceRPCServer).RequestFlightRelease(ctx, req.(*FlightReleaseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ComplianceRPC_ServiceDesc is the grpc.ServiceDesc for the ComplianceRpc service
var ComplianceRPC_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ComplianceRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "isReady",
			Handler:    _ComplianceRPC_IsReady_Handler,
		},
		{
			MethodName: "submitFlightPlan",
			Handler:    _ComplianceRPC_SubmitFlightPlan_Handler,
		},
		{
			MethodName: "requestFlightRelease",
			Handler:    _ComplianceRPC_RequestFlightRelease_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grpc.proto",
}

// ComplianceRPCClient is the client API for the ComplianceRpc service
type ComplianceRPCClient interface {
	IsReady(ctx context.Context, in *QueryIsReady, opts ...grpc.CallOption) (*ReadyResponse, error)
	SubmitFlightPlan(ctx context.Context, in *FlightPlanRequest, opts ...grpc.CallOption) (*FlightPlanResponse, error)
	RequestFlightRelease(ctx context.Context, in *FlightReleaseRequest, opts ...grpc.CallOption) (*FlightReleaseResponse, error)
}

type complianceRPCClient struct {
	cc grpc.ClientConnInterface
}

// NewComplianceRPCClient returns a client that sends every call with the
// json content-subtype.
func NewComplianceRPCClient(cc grpc.ClientConnInterface) ComplianceRPCClient {
	return &complianceRPCClient{cc: cc}
}

func (c *complianceRPCClient) IsReady(ctx context.Context, in *QueryIsReady, opts ...grpc.CallOption) (*ReadyResponse, error) {
	out := new(ReadyResponse)
	if err := c.cc.Invoke(ctx, ComplianceRPC_IsReady_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *complianceRPCClient) SubmitFlightPlan(ctx context.Context, in *FlightPlanRequest, opts ...grpc.CallOption) (*FlightPlanResponse, error) {
	out := new(FlightPlanResponse)
	if err := c.cc.Invoke(ctx, ComplianceRPC_SubmitFlightPlan_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *complianceRPCClient) RequestFlightRelease(ctx context.Context, in *FlightReleaseRequest, opts ...grpc.CallOption) (*FlightReleaseResponse, error) {
	out := new(FlightReleaseResponse)
	if err := c.cc.Invoke(ctx, ComplianceRPC_RequestFlightRelease_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
