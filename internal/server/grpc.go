package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

const invoiceServiceName = "gstinvoices.v1.InvoiceService"

// InvoiceServiceServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type InvoiceServiceServer interface {
	ExtractInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CorrectLineItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(InvoiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InvoiceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + invoiceServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InvoiceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InvoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: invoiceServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractInvoice", Handler: unaryHandler("ExtractInvoice", InvoiceServiceServer.ExtractInvoice)},
		{MethodName: "SubmitInvoice", Handler: unaryHandler("SubmitInvoice", InvoiceServiceServer.SubmitInvoice)},
		{MethodName: "GetInvoice", Handler: unaryHandler("GetInvoice", InvoiceServiceServer.GetInvoice)},
		{MethodName: "CorrectLineItem", Handler: unaryHandler("CorrectLineItem", InvoiceServiceServer.CorrectLineItem)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gstinvoices/v1/invoices.proto",
}

func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceServiceDesc, srv)
}

// InvoiceServiceClient calls InvoiceService over a client connection.
type InvoiceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceServiceClient(cc grpc.ClientConnInterface) *InvoiceServiceClient {
	return &InvoiceServiceClient{cc: cc}
}

func (c *InvoiceServiceClient) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+invoiceServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) ExtractInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ExtractInvoice", in, opts...)
}

func (c *InvoiceServiceClient) SubmitInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "SubmitInvoice", in, opts...)
}

func (c *InvoiceServiceClient) GetInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetInvoice", in, opts...)
}

func (c *InvoiceServiceClient) CorrectLineItem(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "CorrectLineItem", in, opts...)
}

// InvoiceServer implements InvoiceServiceServer over the invoice service.
type InvoiceServer struct {
	svc    InvoiceService
	logger *slog.Logger
}

func NewInvoiceServer(svc InvoiceService, logger *slog.Logger) *InvoiceServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceServer{svc: svc, logger: logger}
}

func (s *InvoiceServer) ExtractInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in documentRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, common.GRPCStatus(err)
	}
	result, err := s.svc.ProcessNow(ctx, in.document())
	if err != nil {
		s.logger.Error("grpc.extract.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.GRPCStatus(err)
	}
	return s.reply(result)
}

func (s *InvoiceServer) SubmitInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in documentRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, common.GRPCStatus(err)
	}
	rec, err := s.svc.Upload(ctx, in.document())
	if err != nil {
		s.logger.Error("grpc.submit.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.GRPCStatus(err)
	}
	return s.reply(rec)
}

func (s *InvoiceServer) GetInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in idRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, common.GRPCStatus(err)
	}
	id, err := parseID(in.ID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return s.reply(rec)
}

// CorrectLineItem applies an edit to one line when index is set, and a supply
// type change when is_inter_state is set. At least one is required.
func (s *InvoiceServer) CorrectLineItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in correctionRequest
	if err := decodeStruct(req, &in); err != nil {
		return nil, common.GRPCStatus(err)
	}
	id, err := parseID(in.ID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	if in.Index == nil && in.IsInterState == nil {
		return nil, common.InvalidArgumentError("index or is_inter_state is required")
	}
	if in.IsInterState != nil {
		if _, err := s.svc.SetInterState(ctx, id, *in.IsInterState); err != nil {
			return nil, common.GRPCStatus(err)
		}
	}
	if in.Index == nil {
		rec, err := s.svc.Get(ctx, id)
		if err != nil {
			return nil, common.GRPCStatus(err)
		}
		return s.reply(rec)
	}
	rec, err := s.svc.CorrectLineItem(ctx, id, *in.Index, in.Edit)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return s.reply(rec)
}

func (s *InvoiceServer) reply(v any) (*structpb.Struct, error) {
	out, err := encodeStruct(v)
	if err != nil {
		s.logger.Error("grpc.encode.failed", "error", err)
		return nil, common.GRPCStatus(common.NewAppError(common.CodeInternal, "encode response", err))
	}
	return out, nil
}

// UnaryLoggingInterceptor tags each call with a request id (taken from the
// x-request-id metadata when present) and logs its outcome.
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, reqID := common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{"method", info.FullMethod, "req_id", reqID, "elapsed_ms", time.Since(start).Milliseconds()}
		if err != nil {
			logger.Warn("grpc.call.failed", append(attrs, "code", status.Code(err).String(), "error", err)...)
		} else {
			logger.Info("grpc.call.ok", attrs...)
		}
		return resp, err
	}
}
