package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client lunchrota.v1.Rotation 的客戶端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial 建立到 addr 的非加密連線（呼叫者負責 Close）
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

// Resolve 查詢單日負責人；零值日期代表伺服器端的今天
func (c *Client) Resolve(ctx context.Context, date time.Time) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("Resolve"), wrapperspb.String(isoOrEmpty(date)), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Schedule 遠端模擬排程
func (c *Client) Schedule(ctx context.Context, from time.Time, days int) ([]types.ScheduleEntry, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"from": structpb.NewStringValue(isoOrEmpty(from)),
		"days": structpb.NewNumberValue(float64(days)),
	}}
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("Schedule"), in, out); err != nil {
		return nil, err
	}

	entries := make([]types.ScheduleEntry, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		e, err := decodeEntry(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PassTurn 遠端放棄今天
func (c *Client) PassTurn(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("PassTurn"), &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// SkipDay 遠端跳過今天
func (c *Client) SkipDay(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("SkipDay"), &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// SetOverride 遠端指定某日負責人
func (c *Client) SetOverride(ctx context.Context, date time.Time, person string) error {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"date":   structpb.NewStringValue(isoOrEmpty(date)),
		"person": structpb.NewStringValue(person),
	}}
	return c.cc.Invoke(ctx, fullMethod("SetOverride"), in, new(emptypb.Empty))
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return calendar.FormatISO(t)
}
