package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// OrderImportServiceDesc описывает сервис вручную: сообщения: google.protobuf.Struct,
// поэтому генерация кода не нужна.
var OrderImportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderImportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComposeOrder", Handler: unaryHandler(MethodComposeOrder, OrderImportServer.ComposeOrder)},
		{MethodName: "ProcessBatch", Handler: unaryHandler(MethodProcessBatch, OrderImportServer.ProcessBatch)},
		{MethodName: "ProcessBatchReport", Handler: unaryHandler(MethodProcessBatchReport, OrderImportServer.ProcessBatchReport)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "customermgmt/v1/order_import.proto",
}

// RegisterOrderImportServer регистрирует сервис на gRPC-сервере.
func RegisterOrderImportServer(s grpc.ServiceRegistrar, srv OrderImportServer) {
	s.RegisterService(&OrderImportServiceDesc, srv)
}

type structMethod func(OrderImportServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, method structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(OrderImportServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(OrderImportServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client: клиент OrderImportService поверх произвольного соединения.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient создаёт клиента.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ComposeOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodComposeOrder, in, opts...)
}

func (c *Client) ProcessBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessBatch, in, opts...)
}

func (c *Client) ProcessBatchReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessBatchReport, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
