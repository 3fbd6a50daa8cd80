package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	modelServiceName = "nni.ModelService"
	predictMethod    = "/" + modelServiceName + "/Predict"
	maxMessageSize   = 10 * 1024 * 1024
)

// GRPCModel calls a remote model server. Requests and responses are google.protobuf.Struct
// messages: {"columns": [...], "rows": [[...], ...]} in, {"predictions": [...]} out.
type GRPCModel struct {
	conn    *grpc.ClientConn
	Timeout time.Duration
}

func DialModel(address string, opts ...grpc.DialOption) (*GRPCModel, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	return NewGRPCModel(conn), nil
}

func NewGRPCModel(conn *grpc.ClientConn) *GRPCModel {
	return &GRPCModel{conn: conn, Timeout: 15 * time.Minute}
}

func (m *GRPCModel) Close() error {
	return m.conn.Close()
}

func (m *GRPCModel) Predict(ctx context.Context, table Table) ([]float64, error) {
	if _, ok := ctx.Deadline(); !ok && m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	req, err := encodeTable(table)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := m.conn.Invoke(ctx, predictMethod, req, resp); err != nil {
		return nil, fmt.Errorf("error calling Predict: %w", err)
	}

	values := resp.GetFields()["predictions"].GetListValue().GetValues()
	preds := make([]float64, len(values))
	for i, v := range values {
		preds[i] = v.GetNumberValue()
	}
	return preds, nil
}

func encodeTable(table Table) (*structpb.Struct, error) {
	columns := make([]*structpb.Value, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = structpb.NewStringValue(c)
	}

	rows := make([]*structpb.Value, table.Rows())
	for i := range rows {
		row := mat.Row(nil, i, table.Data)
		if len(row) != len(table.Columns) {
			return nil, &errs.ShapeError{Rows: len(rows), Cols: len(row), Reason: fmt.Sprintf("%d column names", len(table.Columns))}
		}
		cells := make([]*structpb.Value, len(row))
		for j, v := range row {
			cells[j] = structpb.NewNumberValue(v)
		}
		rows[i] = structpb.NewListValue(&structpb.ListValue{Values: cells})
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"columns": structpb.NewListValue(&structpb.ListValue{Values: columns}),
		"rows":    structpb.NewListValue(&structpb.ListValue{Values: rows}),
	}}, nil
}

func decodeTable(in *structpb.Struct) (Table, error) {
	columnValues := in.GetFields()["columns"].GetListValue().GetValues()
	columns := make([]string, len(columnValues))
	for i, v := range columnValues {
		columns[i] = v.GetStringValue()
	}

	rowValues := in.GetFields()["rows"].GetListValue().GetValues()
	if len(rowValues) == 0 {
		return Table{Columns: columns}, nil
	}
	if len(columns) == 0 {
		return Table{}, errs.Validationf("request has rows but no columns")
	}
	data := make([]float64, 0, len(rowValues)*len(columns))
	for i, rv := range rowValues {
		cells := rv.GetListValue().GetValues()
		if len(cells) != len(columns) {
			return Table{}, &errs.ShapeError{Rows: len(rowValues), Cols: len(columns), Reason: fmt.Sprintf("row %d has %d values", i, len(cells))}
		}
		for _, c := range cells {
			data = append(data, c.GetNumberValue())
		}
	}
	return Table{Columns: columns, Data: mat.NewDense(len(rowValues), len(columns), data)}, nil
}

type modelServer interface {
	predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type modelService struct {
	model RegressionModel
}

func (s *modelService) predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	table, err := decodeTable(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	preds, err := s.model.Predict(ctx, table)
	if err != nil {
		log.WithError(err).Warn("[Model] prediction failed")
		if errors.Is(err, errs.ErrValidation) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	values := make([]*structpb.Value, len(preds))
	for i, p := range preds {
		values[i] = structpb.NewNumberValue(p)
	}
	log.WithField("rows", table.Rows()).Debug("[Model] served prediction")
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"predictions": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}

func predictHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(modelServer).predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(modelServer).predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var modelServiceDesc = grpc.ServiceDesc{
	ServiceName: modelServiceName,
	HandlerType: (*modelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nni/model.proto",
}

// RegisterModelServer serves model on s under nni.ModelService/Predict.
func RegisterModelServer(s grpc.ServiceRegistrar, model RegressionModel) {
	s.RegisterService(&modelServiceDesc, &modelService{model: model})
}

// NewModelServer returns a gRPC server sized for feature tables with model registered on it.
func NewModelServer(model RegressionModel, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	}, opts...)
	server := grpc.NewServer(opts...)
	RegisterModelServer(server, model)
	return server
}
