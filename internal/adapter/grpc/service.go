package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the report service
const ServiceName = "pnl.v1.ReportService"

const getReportMethod = "/" + ServiceName + "/GetReport"

// ReportServiceServer is the server API for the report service.
// Requests and responses are protobuf Structs so that clients need no
// generated stubs.
type ReportServiceServer interface {
	GetReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ReportServiceDesc describes the report service for grpc.Server registration
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetReport",
			Handler:    getReportHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pnl/v1/report.proto",
}

// RegisterReportServiceServer registers srv on s
func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServiceServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

func getReportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getReportMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).GetReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ReportServiceClient is the client API for the report service
type ReportServiceClient interface {
	GetReport(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type reportServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewReportServiceClient creates a client on an established connection
func NewReportServiceClient(cc grpc.ClientConnInterface) ReportServiceClient {
	return &reportServiceClient{cc: cc}
}

func (c *reportServiceClient) GetReport(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getReportMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
