package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "invoices.v1.InvoiceService"

// Full method names.
const (
	ProcessEventMethod  = "/" + ServiceName + "/ProcessEvent"
	GetInvoiceMethod    = "/" + ServiceName + "/GetInvoice"
	QueryInvoicesMethod = "/" + ServiceName + "/QueryInvoices"
)

// InvoiceServiceServer is the server API. Requests and responses are JSON-shaped
// structs so the service needs no generated message types.
type InvoiceServiceServer interface {
	// ProcessEvent takes an S3 notification event and returns {"results": [payload...]}.
	ProcessEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetInvoice takes {"id": "..."} and returns {"record": {...}}.
	GetInvoice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// QueryInvoices takes one of invoice_number, supplier or from/to and returns
	// {"records": [...], "count": n}.
	QueryInvoices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(InvoiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(InvoiceServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InvoiceServiceDesc describes the service for grpc.Server.RegisterService.
var InvoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessEvent", Handler: unaryHandler(ProcessEventMethod, InvoiceServiceServer.ProcessEvent)},
		{MethodName: "GetInvoice", Handler: unaryHandler(GetInvoiceMethod, InvoiceServiceServer.GetInvoice)},
		{MethodName: "QueryInvoices", Handler: unaryHandler(QueryInvoicesMethod, InvoiceServiceServer.QueryInvoices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoices/v1/invoices.proto",
}

func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceServiceDesc, srv)
}

// InvoiceClient calls the service over an existing connection.
type InvoiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceClient(cc grpc.ClientConnInterface) *InvoiceClient {
	return &InvoiceClient{cc: cc}
}

func (c *InvoiceClient) ProcessEvent(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ProcessEventMethod, in, opts...)
}

func (c *InvoiceClient) GetInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetInvoiceMethod, in, opts...)
}

func (c *InvoiceClient) QueryInvoices(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, QueryInvoicesMethod, in, opts...)
}

func (c *InvoiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
