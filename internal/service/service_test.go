package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/storage/sqlite"
	"github.com/mmynk/tripsplit/pkg/api"
	"github.com/mmynk/tripsplit/pkg/api/apiconnect"
)

// testUserHeader names the header the test interceptor reads the caller's user ID from.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that sets the user ID from testUserHeader.
// Requests without the header stay unauthenticated.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if user := req.Header().Get(testUserHeader); user != "" {
				ctx = middleware.WithUser(ctx, user, "")
			}
			return next(ctx, req)
		}
	}
}

type testEnv struct {
	trips    apiconnect.TripServiceClient
	expenses apiconnect.ExpenseServiceClient
	auth     apiconnect.AuthServiceClient
	store    *sqlite.SQLiteStore
	registry *prometheus.Registry
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(registry)
	interceptors := connect.WithInterceptors(testAuthInterceptor(), metrics.Interceptor())

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewTripServiceHandler(NewTripService(store, metrics), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(store), interceptors))
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, nil), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		trips:    apiconnect.NewTripServiceClient(http.DefaultClient, server.URL),
		expenses: apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		auth:     apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		store:    store,
		registry: registry,
	}
}

// as builds a request issued by user.
func as[T any](user string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, user)
	return req
}

func (e *testEnv) createTrip(t *testing.T, creator string, members ...string) *api.Trip {
	t.Helper()
	resp, err := e.trips.CreateTrip(context.Background(), as(creator, &api.CreateTripRequest{
		Name:    "Test trip",
		Members: members,
	}))
	require.NoError(t, err, "CreateTrip failed")
	return resp.Msg.Trip
}

func (e *testEnv) createExpense(t *testing.T, user string, req *api.CreateExpenseRequest) *api.Expense {
	t.Helper()
	resp, err := e.expenses.CreateExpense(context.Background(), as(user, req))
	require.NoError(t, err, "CreateExpense failed")
	return resp.Msg.Expense
}

func (e *testEnv) debts(t *testing.T, user, tripID string) *api.GetTripDebtsResponse {
	t.Helper()
	resp, err := e.trips.GetTripDebts(context.Background(), as(user, &api.GetTripDebtsRequest{TripID: tripID}))
	require.NoError(t, err, "GetTripDebts failed")
	return resp.Msg
}

func requireCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, connect.CodeOf(err), "unexpected error: %v", err)
}
