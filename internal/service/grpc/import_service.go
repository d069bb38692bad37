package grpcsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	"github.com/vladislavdragonenkov/customer-management/internal/service/orders"
)

const (
	// ServiceName: полное имя gRPC-сервиса импорта.
	ServiceName = "customermgmt.v1.OrderImportService"

	MethodComposeOrder       = "/" + ServiceName + "/ComposeOrder"
	MethodProcessBatch       = "/" + ServiceName + "/ProcessBatch"
	MethodProcessBatchReport = "/" + ServiceName + "/ProcessBatchReport"

	// TrailerErrorCode: trailer с кодом бизнес-ошибки.
	TrailerErrorCode = "x-error-code"
)

// OrderImporter: операции импорта, которые выставляет gRPC-сервис.
type OrderImporter interface {
	ComposeOrder(ctx context.Context, sub domain.OrderSubmission) (domain.Order, error)
	ProcessBatch(ctx context.Context, batch []domain.OrderSubmission) ([]domain.Order, error)
	ProcessBatchReport(ctx context.Context, batch []domain.OrderSubmission) (orders.BatchReport, error)
}

// OrderImportServer: серверная сторона customermgmt.v1.OrderImportService.
// Сообщения передаются как google.protobuf.Struct в той же форме, что и HTTP JSON.
type OrderImportServer interface {
	ComposeOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessBatchReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ImportService реализует OrderImportServer поверх сервиса заказов.
type ImportService struct {
	orders OrderImporter
	logger *log.Entry
}

// NewImportService конструирует сервис с зависимостями.
func NewImportService(importer OrderImporter, logger *log.Entry) *ImportService {
	if logger == nil {
		logger = log.WithField("component", "grpc-import-service")
	}
	return &ImportService{orders: importer, logger: logger}
}

// batchEnvelope: форма запроса и ответа пакетных методов.
type batchEnvelope[T any] struct {
	Orders []T `json:"orders"`
}

// ComposeOrder собирает один заказ. Запрос: заявка заказа, ответ: сохранённый заказ.
func (s *ImportService) ComposeOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sub domain.OrderSubmission
	if err := decodeStruct(req, &sub); err != nil {
		return nil, err
	}

	order, err := s.orders.ComposeOrder(ctx, sub)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeStruct(order)
}

// ProcessBatch импортирует батч целиком или не импортирует ничего.
func (s *ImportService) ProcessBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var batch batchEnvelope[domain.OrderSubmission]
	if err := decodeStruct(req, &batch); err != nil {
		return nil, err
	}

	created, err := s.orders.ProcessBatch(ctx, batch.Orders)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeStruct(batchEnvelope[domain.Order]{Orders: created})
}

// ProcessBatchReport импортирует заявки независимо и возвращает отчёт.
func (s *ImportService) ProcessBatchReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var batch batchEnvelope[domain.OrderSubmission]
	if err := decodeStruct(req, &batch); err != nil {
		return nil, err
	}

	report, err := s.orders.ProcessBatchReport(ctx, batch.Orders)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeStruct(report)
}

// toStatus переводит ошибку сервиса в gRPC status. Код бизнес-ошибки
// дополнительно уходит в trailer.
func (s *ImportService) toStatus(ctx context.Context, err error) error {
	derr, ok := domain.AsError(err)
	if !ok {
		s.logger.WithError(err).Error("import failed with internal error")
		return status.Error(codes.Internal, "internal error")
	}

	_ = grpc.SetTrailer(ctx, metadata.Pairs(TrailerErrorCode, derr.Code))
	return status.Error(CodeForKind(derr.Kind), fmt.Sprintf("%s: %s", derr.Code, derr.Message))
}

// CodeForKind сопоставляет вид бизнес-ошибки с gRPC-кодом.
func CodeForKind(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindValidation, domain.KindDuplicateInBatch:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindConflict:
		return codes.AlreadyExists
	case domain.KindInvariantViolation:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func decodeStruct(req *structpb.Struct, dst any) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// LoggingInterceptor пишет метод, код ответа и длительность каждого unary-вызова.
func LoggingInterceptor(logger *log.Entry) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = log.WithField("component", "grpc")
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.WithFields(log.Fields{
			"method":      info.FullMethod,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if status.Code(err) == codes.Internal {
			entry.Warn("grpc call failed")
		} else {
			entry.Debug("grpc call served")
		}
		return resp, err
	}
}

var _ OrderImportServer = (*ImportService)(nil)
