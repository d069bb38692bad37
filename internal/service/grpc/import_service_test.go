package grpcsvc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/customer-management/internal/service/grpc"
	"github.com/vladislavdragonenkov/customer-management/internal/service/catalog"
	"github.com/vladislavdragonenkov/customer-management/internal/service/orders"
	"github.com/vladislavdragonenkov/customer-management/internal/storage/memory"
)

const bufSize = 1024 * 1024

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// newTestClient поднимает сервер на bufconn и возвращает клиента.
func newTestClient(t *testing.T, importer grpcsvc.OrderImporter) *grpcsvc.Client {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	logger := loggerForTests()
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcsvc.LoggingInterceptor(logger)))
	grpcsvc.RegisterOrderImportServer(server, grpcsvc.NewImportService(importer, logger))

	go func() {
		_ = server.Serve(listener)
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return grpcsvc.NewClient(conn)
}

func orderStruct(t *testing.T, number int, email string, qty float64) map[string]any {
	t.Helper()
	return map[string]any{
		"number": float64(number),
		"date":   "2024-06-01",
		"customer": map[string]any{
			"first_name":    "Ana",
			"last_name":     "Silva",
			"email":         email,
			"date_of_birth": "1990-01-01",
			"addresses": []any{map[string]any{
				"zip_code": "01001", "street": "Rua A", "number": float64(1), "neighborhood": "Centro",
				"complement": "-", "city": "Sao Paulo", "state": "SP", "country": "BR",
			}},
		},
		"items": []any{map[string]any{
			"product":    map[string]any{"code": "P1", "name": "Pen"},
			"quantity":   qty,
			"unit_value": "10.00",
		}},
	}
}

func mustStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	require.NoError(t, err)
	return s
}

func batchStruct(t *testing.T, orders ...map[string]any) *structpb.Struct {
	t.Helper()
	list := make([]any, 0, len(orders))
	for _, o := range orders {
		list = append(list, o)
	}
	return mustStruct(t, map[string]any{"orders": list})
}

type fixture struct {
	client *grpcsvc.Client
	store  *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := memory.NewStore()
	logger := loggerForTests()
	ctx := context.Background()

	_, err := catalog.NewCustomerService(store, logger).Register(ctx, domain.CustomerSubmission{
		FirstName:   "Ana",
		LastName:    "Silva",
		Email:       "a@x.com",
		DateOfBirth: domain.NewDate(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)),
		Addresses: []domain.AddressSubmission{{
			ZipCode: "01001", Street: "Rua A", Number: 1, Neighborhood: "Centro",
			Complement: "-", City: "Sao Paulo", State: "SP", Country: "BR",
		}},
	})
	require.NoError(t, err)
	_, err = catalog.NewProductService(store, logger).Register(ctx, domain.ProductSubmission{Code: "P1", Name: "Pen"})
	require.NoError(t, err)

	return fixture{
		client: newTestClient(t, orders.NewService(store, orders.WithLogger(logger))),
		store:  store,
	}
}

func TestImportService_ComposeOrder(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.ComposeOrder(context.Background(), mustStruct(t, orderStruct(t, 1001, "a@x.com", 2)))
	require.NoError(t, err)

	fields := resp.GetFields()
	require.Equal(t, float64(1001), fields["number"].GetNumberValue())
	total, err := decimal.NewFromString(fields["total_value"].GetStringValue())
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("20.00")))
}

func TestImportService_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.ComposeOrder(ctx, mustStruct(t, orderStruct(t, 1, "a@x.com", 1)))
	require.NoError(t, err)

	tests := []struct {
		name      string
		call      func(opts ...grpc.CallOption) error
		code      codes.Code
		errorCode string
	}{
		{
			name: "unknown customer",
			call: func(opts ...grpc.CallOption) error {
				_, err := f.client.ComposeOrder(ctx, mustStruct(t, orderStruct(t, 2, "ghost@x.com", 1)), opts...)
				return err
			},
			code:      codes.NotFound,
			errorCode: domain.ErrCustomerNotFound.Code,
		},
		{
			name: "persisted number",
			call: func(opts ...grpc.CallOption) error {
				_, err := f.client.ComposeOrder(ctx, mustStruct(t, orderStruct(t, 1, "a@x.com", 1)), opts...)
				return err
			},
			code:      codes.AlreadyExists,
			errorCode: domain.ErrDuplicateOrderNumber.Code,
		},
		{
			name: "duplicate number in batch",
			call: func(opts ...grpc.CallOption) error {
				req := batchStruct(t, orderStruct(t, 5, "a@x.com", 1), orderStruct(t, 5, "a@x.com", 1))
				_, err := f.client.ProcessBatch(ctx, req, opts...)
				return err
			},
			code:      codes.InvalidArgument,
			errorCode: domain.ErrDuplicateOrderNumberInBatch.Code,
		},
		{
			name: "zero quantity",
			call: func(opts ...grpc.CallOption) error {
				_, err := f.client.ComposeOrder(ctx, mustStruct(t, orderStruct(t, 3, "a@x.com", 0)), opts...)
				return err
			},
			code:      codes.InvalidArgument,
			errorCode: domain.ErrItemInvalid.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trailer metadata.MD
			err := tt.call(grpc.Trailer(&trailer))
			require.Error(t, err)
			require.Equal(t, tt.code, status.Code(err), err.Error())
			require.Equal(t, []string{tt.errorCode}, trailer.Get(grpcsvc.TrailerErrorCode))
		})
	}

	_, _, persisted := f.store.Counts()
	require.Equal(t, 1, persisted)
}

func TestImportService_ProcessBatch(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.ProcessBatch(context.Background(),
		batchStruct(t, orderStruct(t, 10, "a@x.com", 1), orderStruct(t, 11, "a@x.com", 3)))
	require.NoError(t, err)

	created := resp.GetFields()["orders"].GetListValue().GetValues()
	require.Len(t, created, 2)
	require.Equal(t, float64(11), created[1].GetStructValue().GetFields()["number"].GetNumberValue())
}

func TestImportService_ProcessBatchReport(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.ProcessBatchReport(context.Background(),
		batchStruct(t, orderStruct(t, 20, "a@x.com", 1), orderStruct(t, 21, "a@x.com", 0)))
	require.NoError(t, err)

	fields := resp.GetFields()
	require.Equal(t, float64(1), fields["success_count"].GetNumberValue())
	require.Equal(t, float64(1), fields["failure_count"].GetNumberValue())

	failure := fields["failures"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	require.Equal(t, float64(1), failure["index"].GetNumberValue())
	require.Equal(t, domain.ErrItemInvalid.Code,
		failure["reason"].GetStructValue().GetFields()["code"].GetStringValue())
}

func TestImportService_InvalidPayload(t *testing.T) {
	f := newFixture(t)

	req := mustStruct(t, map[string]any{"orders": "not-a-list"})
	_, err := f.client.ProcessBatch(context.Background(), req)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// brokenImporter имитирует сбой хранилища.
type brokenImporter struct{}

var errDown = errors.New("connection refused")

func (brokenImporter) ComposeOrder(context.Context, domain.OrderSubmission) (domain.Order, error) {
	return domain.Order{}, errDown
}

func (brokenImporter) ProcessBatch(context.Context, []domain.OrderSubmission) ([]domain.Order, error) {
	return nil, errDown
}

func (brokenImporter) ProcessBatchReport(context.Context, []domain.OrderSubmission) (orders.BatchReport, error) {
	return orders.BatchReport{}, errDown
}

func TestImportService_InternalErrorHidesDetails(t *testing.T) {
	client := newTestClient(t, brokenImporter{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.ComposeOrder(ctx, mustStruct(t, orderStruct(t, 1, "a@x.com", 1)))

	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Internal, st.Code())
	require.NotContains(t, st.Message(), errDown.Error())
}

func TestCodeForKind(t *testing.T) {
	tests := map[domain.ErrorKind]codes.Code{
		domain.KindValidation:         codes.InvalidArgument,
		domain.KindDuplicateInBatch:   codes.InvalidArgument,
		domain.KindNotFound:           codes.NotFound,
		domain.KindConflict:           codes.AlreadyExists,
		domain.KindInvariantViolation: codes.FailedPrecondition,
		domain.ErrorKind("UNKNOWN"):   codes.Internal,
	}
	for kind, want := range tests {
		if got := grpcsvc.CodeForKind(kind); got != want {
			t.Fatalf("CodeForKind(%s) = %s, want %s", kind, got, want)
		}
	}
}
