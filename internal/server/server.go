// ============================================================================
// Lunch Rotation gRPC 服務
// ============================================================================
//
// Package: internal/server
// 文件: server.go
// 功能: 以 gRPC 暴露查詢與輪值行動，供 `lunchrota --server` 遠端使用
//
// 服務名稱: lunchrota.v1.Rotation
//
// 訊息格式:
//   不使用 protoc 產生的程式碼，全部以 protobuf well-known types 表示：
//   - Resolve(StringValue date)           → StringValue person
//   - Schedule(Struct{from, days})        → ListValue of Struct{date, person, forced, carried, cycle}
//   - PassTurn(Empty)                     → StringValue 今天新的負責人
//   - SkipDay(Empty)                      → StringValue 下一個工作日的負責人
//   - SetOverride(Struct{date, person})   → Empty
//
// 錯誤對應:
//   - 未知人員 / 日期格式錯誤 → InvalidArgument
//   - 空名單                 → FailedPrecondition
//   - 寫入失敗（PersistError）→ 視為成功，只記錄警告
//
// ============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/agenda"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/rotation"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var log = slog.Default()

// ServiceName gRPC 服務全名
const ServiceName = "lunchrota.v1.Rotation"

const (
	// DefaultScheduleDays Schedule 未指定天數時的預設值
	DefaultScheduleDays = 10
	// MaxScheduleDays 單次模擬的天數上限（約兩年的工作日）
	MaxScheduleDays = 520
)

// Agenda 伺服器需要的議程操作（由 agenda.Service 實作）
type Agenda interface {
	Today() time.Time
	Resolve(date time.Time) (string, error)
	Schedule(from time.Time, days int) ([]types.ScheduleEntry, error)
	PassTurn() (string, error)
	SkipDay() (string, error)
	SetOverride(date time.Time, person string) error
}

// RotationServer lunchrota.v1.Rotation 的伺服器端介面
type RotationServer interface {
	Resolve(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Schedule(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	PassTurn(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	SkipDay(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	SetOverride(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// Server implements RotationServer on top of an Agenda.
type Server struct {
	agenda Agenda
}

// NewServer creates a new gRPC server instance.
func NewServer(a Agenda) *Server {
	return &Server{agenda: a}
}

// NewGRPCServer 建立已註冊 Rotation 服務並帶有日誌攔截器的 grpc.Server
func NewGRPCServer(a Agenda, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor))
	gs := grpc.NewServer(opts...)
	Register(gs, NewServer(a))
	return gs
}

// Register 將實作註冊到 gRPC 伺服器
func Register(r grpc.ServiceRegistrar, srv RotationServer) {
	r.RegisterService(&serviceDesc, srv)
}

// Resolve 查詢單日負責人，空字串代表今天
func (s *Server) Resolve(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	date, err := s.parseDate(req.GetValue())
	if err != nil {
		return nil, err
	}
	who, err := s.agenda.Resolve(date)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(who), nil
}

// Schedule 模擬排程：from 省略時為今天，days 省略時為 DefaultScheduleDays
func (s *Server) Schedule(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	fields := req.GetFields()

	from, err := s.parseDate(fields["from"].GetStringValue())
	if err != nil {
		return nil, err
	}
	days, err := scheduleDays(fields["days"])
	if err != nil {
		return nil, err
	}

	entries, err := s.agenda.Schedule(from, days)
	if err != nil {
		return nil, toStatus(err)
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(entries))}
	for _, e := range entries {
		list.Values = append(list.Values, structpb.NewStructValue(encodeEntry(e)))
	}
	return list, nil
}

// scheduleDays 驗證天數：必須是 [0, MaxScheduleDays] 內的整數
func scheduleDays(v *structpb.Value) (int, error) {
	if v == nil {
		return DefaultScheduleDays, nil
	}
	n := v.GetNumberValue()
	if math.IsNaN(n) || n < 0 || n > MaxScheduleDays || n != math.Trunc(n) {
		return 0, status.Errorf(codes.InvalidArgument, "days must be an integer between 0 and %d, got %v", MaxScheduleDays, n)
	}
	return int(n), nil
}

// PassTurn 今天的負責人放棄，回傳新的負責人
func (s *Server) PassTurn(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	who, err := s.agenda.PassTurn()
	if err = tolerate(err); err != nil {
		return nil, err
	}
	return wrapperspb.String(who), nil
}

// SkipDay 今天不排人，回傳下一個工作日的負責人
func (s *Server) SkipDay(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	who, err := s.agenda.SkipDay()
	if err = tolerate(err); err != nil {
		return nil, err
	}
	return wrapperspb.String(who), nil
}

// SetOverride 指定某日負責人
func (s *Server) SetOverride(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()

	person := fields["person"].GetStringValue()
	if person == "" {
		return nil, status.Error(codes.InvalidArgument, "person is required")
	}
	date, err := s.parseDate(fields["date"].GetStringValue())
	if err != nil {
		return nil, err
	}

	if err := tolerate(s.agenda.SetOverride(date, person)); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// Helpers

func (s *Server) parseDate(value string) (time.Time, error) {
	if value == "" {
		return s.agenda.Today(), nil
	}
	date, err := calendar.ParseISO(value)
	if err != nil {
		return time.Time{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return date, nil
}

// tolerate 寫入失敗不影響回應，只記錄警告
func tolerate(err error) error {
	if err == nil {
		return nil
	}
	if agenda.IsPersistError(err) {
		log.Warn("Action applied but state not saved", "error", err)
		return nil
	}
	return toStatus(err)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, agenda.ErrUnknownPerson),
		errors.Is(err, agenda.ErrInvalidWeekday),
		errors.Is(err, agenda.ErrBlankName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, rotation.ErrInvalidRoster),
		errors.Is(err, agenda.ErrTooFewPeople),
		errors.Is(err, agenda.ErrLastPerson):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func encodeEntry(e types.ScheduleEntry) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"date":    structpb.NewStringValue(e.ISO()),
		"person":  structpb.NewStringValue(e.Person),
		"forced":  structpb.NewBoolValue(e.Forced),
		"carried": structpb.NewBoolValue(e.Carried),
		"cycle":   structpb.NewNumberValue(float64(e.Cycle)),
	}}
}

func decodeEntry(s *structpb.Struct) (types.ScheduleEntry, error) {
	fields := s.GetFields()
	date, err := calendar.ParseISO(fields["date"].GetStringValue())
	if err != nil {
		return types.ScheduleEntry{}, fmt.Errorf("schedule entry: %w", err)
	}
	return types.ScheduleEntry{
		Date:    date,
		Person:  fields["person"].GetStringValue(),
		Forced:  fields["forced"].GetBoolValue(),
		Carried: fields["carried"].GetBoolValue(),
		Cycle:   int(fields["cycle"].GetNumberValue()),
	}, nil
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		log.Warn("RPC failed", "method", info.FullMethod, "code", status.Code(err), "duration", time.Since(start))
	} else {
		log.Debug("RPC served", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}
