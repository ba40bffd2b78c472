package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/offerledger/pnl-backend/internal/domain"
	"github.com/offerledger/pnl-backend/internal/usecase/pnl"
	"github.com/offerledger/pnl-backend/internal/usecase/report"
)

// ReportGenerator produces a fresh report on demand
type ReportGenerator interface {
	Generate(ctx context.Context) (*report.Result, error)
}

// Server implements the ReportService gRPC server
type Server struct {
	ReportService ReportGenerator
	Logger        logrus.FieldLogger
}

// NewServer creates a new gRPC server instance
func NewServer(reportService ReportGenerator, logger logrus.FieldLogger) *Server {
	return &Server{
		ReportService: reportService,
		Logger:        logger.WithField("component", "grpc_server"),
	}
}

type reportResponse struct {
	ReportID    string           `json:"reportId"`
	GeneratedAt string           `json:"generatedAt"`
	KeyRate     string           `json:"keyRate"`
	RateSource  string           `json:"rateSource"`
	Report      *domain.Report   `json:"report"`
	TopItems    []pnl.RankedItem `json:"topItems,omitempty"`
}

// GetReport handles the GetReport RPC.
// Request fields:
//
//	limit (number, optional): return the N items with the largest absolute
//	realized profit in topItems
func (s *Server) GetReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := parseLimit(req)
	if err != nil {
		return nil, err
	}

	result, err := s.ReportService.Generate(ctx)
	if err != nil {
		s.Logger.WithError(err).Error("report generation failed")
		return nil, mapError(err)
	}

	resp := reportResponse{
		ReportID:    result.ID.String(),
		GeneratedAt: result.GeneratedAt.UTC().Format(time.RFC3339Nano),
		KeyRate:     result.KeyRate.String(),
		RateSource:  string(result.RateSource),
		Report:      result.Report,
	}
	if limit > 0 {
		resp.TopItems = pnl.RankItems(result.Report.PerItem, limit)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode report: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(body, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode report: %v", err)
	}
	return out, nil
}

func parseLimit(req *structpb.Struct) (int, error) {
	v, ok := req.GetFields()["limit"]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "limit must be a number")
	}
	if n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "limit must be a non-negative integer, got %v", n.NumberValue)
	}
	return int(n.NumberValue), nil
}

// mapError maps domain errors to gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrFatalInput):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrInvalidOptions):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
