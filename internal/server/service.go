package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// 手寫的服務描述，等同 protoc-gen-go-grpc 的輸出

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RotationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: unaryHandler("Resolve", newMessage[wrapperspb.StringValue], RotationServer.Resolve)},
		{MethodName: "Schedule", Handler: unaryHandler("Schedule", newMessage[structpb.Struct], RotationServer.Schedule)},
		{MethodName: "PassTurn", Handler: unaryHandler("PassTurn", newMessage[emptypb.Empty], RotationServer.PassTurn)},
		{MethodName: "SkipDay", Handler: unaryHandler("SkipDay", newMessage[emptypb.Empty], RotationServer.SkipDay)},
		{MethodName: "SetOverride", Handler: unaryHandler("SetOverride", newMessage[structpb.Struct], RotationServer.SetOverride)},
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func newMessage[T any]() *T {
	return new(T)
}

func unaryHandler[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(RotationServer, context.Context, Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RotationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(RotationServer), ctx, req.(Req))
		})
	}
}
