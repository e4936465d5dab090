package proto

import (
	"context"
	"errors"
	"fmt"
	"net"

	"EdgeTpuDetServer/engine"
	"EdgeTpuDetServer/logger"
	"EdgeTpuDetServer/monitor"
	"EdgeTpuDetServer/pipeline"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "edgetpu.DetectService"

// DetectServiceServer is the server API for edgetpu.DetectService. Messages
// are protobuf well-known types, so there are no generated stubs.
type DetectServiceServer interface {
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEngine(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type Server struct {
	Pipeline *pipeline.Pipeline
}

func (s *Server) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID := req.GetFields()["item_id"].GetStringValue()
	if itemID == "" {
		monitor.ObserveRequest(monitor.TransportGRPC, errors.New("empty item_id"))
		return nil, status.Error(codes.InvalidArgument, "item_id cannot be empty")
	}
	res, err := s.Pipeline.Run(ctx, itemID)
	monitor.ObserveRequest(monitor.TransportGRPC, err)
	if err != nil {
		logger.Log().Error("grpc detect failed", zap.String("item_id", itemID), zap.Error(err))
		return nil, toStatus(err)
	}

	dets := make([]any, 0, len(res.Detections))
	for _, d := range res.Detections {
		dets = append(dets, map[string]any{
			"id":    d.ID,
			"label": d.Label,
			"score": float64(d.Score),
			"bbox": map[string]any{
				"xmin": d.BBox.Xmin,
				"ymin": d.BBox.Ymin,
				"xmax": d.BBox.Xmax,
				"ymax": d.BBox.Ymax,
			},
		})
	}
	timings := make([]any, len(res.TimingsMs))
	for i, ms := range res.TimingsMs {
		timings[i] = ms
	}
	out, err := structpb.NewStruct(map[string]any{
		"request_id":  res.RequestID,
		"item_id":     res.ItemID,
		"output_path": res.OutputPath,
		"timings_ms":  timings,
		"detections":  dets,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) CheckEngine(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cfg := s.Pipeline.Detector().CheckConfig()
	out, err := structpb.NewStruct(map[string]any{
		"model_path": cfg.ModelPath,
		"device":     cfg.Device,
		"delegate":   cfg.Delegate,
		"threshold":  float64(cfg.Threshold),
		"width":      cfg.Width,
		"height":     cfg.Height,
		"channels":   cfg.Channels,
		"labels":     len(s.Pipeline.Labels()),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, pipeline.ErrInvalidItem), errors.Is(err, pipeline.ErrInvalidImage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, pipeline.ErrStopped), errors.Is(err, engine.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func _DetectService_Detect_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DetectServiceServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Detect"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DetectServiceServer).Detect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DetectService_CheckEngine_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DetectServiceServer).CheckEngine(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CheckEngine"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DetectServiceServer).CheckEngine(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var DetectServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Detect", Handler: _DetectService_Detect_Handler},
		{MethodName: "CheckEngine", Handler: _DetectService_CheckEngine_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "edgetpu/detect.proto",
}

func RegisterDetectServiceServer(s grpc.ServiceRegistrar, srv DetectServiceServer) {
	s.RegisterService(&DetectServiceDesc, srv)
}

// DetectServiceClient calls edgetpu.DetectService over an existing connection.
type DetectServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDetectServiceClient(cc grpc.ClientConnInterface) *DetectServiceClient {
	return &DetectServiceClient{cc: cc}
}

func (c *DetectServiceClient) Detect(ctx context.Context, itemID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"item_id": itemID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Detect", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DetectServiceClient) CheckEngine(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/CheckEngine", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// StartGRPCServer serves DetectService on port in the background.
func StartGRPCServer(port int, p *pipeline.Pipeline) (*grpc.Server, error) {
	addr := fmt.Sprintf(":%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", addr, err)
	}
	s := grpc.NewServer()
	RegisterDetectServiceServer(s, &Server{Pipeline: p})
	go func() {
		logger.Log().Info("gRPC server listening", zap.String("addr", addr))
		if err := s.Serve(lis); err != nil {
			logger.Log().Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return s, nil
}
