package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

type stubSessions struct {
	listErr error
}

var stubCreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func (s stubSessions) ListAccounts(ctx context.Context) ([]services.AccountDetails, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []services.AccountDetails{
		{ID: "u1", Email: "a@b.com", CreatedAt: stubCreatedAt, UpdatedAt: stubCreatedAt},
	}, nil
}

func (stubSessions) Authenticate(ctx context.Context, token string) (*services.AccountSummary, error) {
	switch token {
	case "good":
		return &services.AccountSummary{ID: "u1", Email: "a@b.com"}, nil
	case "old":
		return nil, common.NewError(common.ErrorAuthentication, "Token expired")
	default:
		return nil, common.NewError(common.ErrorAuthentication, "Invalid token")
	}
}

func newTestServer() *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, stubSessions{}, func(context.Context) error { return nil })
}

func withToken(token string) context.Context {
	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestInterceptor_HealthIsPublic(t *testing.T) {
	s := newTestServer()

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called or bad resp: %v", resp)
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer()

	info := &grpc.UnaryServerInfo{FullMethod: ListAccountsMethod}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_RejectedToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: ListAccountsMethod}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	for token, msg := range map[string]string{"old": "Token expired", "junk": "Invalid token"} {
		_, err := s.accessTokenInterceptor(withToken(token), nil, info, h)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("%s: expected Unauthenticated, got %v", token, status.Code(err))
		}
		if got := status.Convert(err).Message(); got != msg {
			t.Fatalf("%s: expected %q, got %q", token, msg, got)
		}
	}
}

func TestInterceptor_ValidTokenSetsAccount(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: ListAccountsMethod}

	var got *services.AccountSummary
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got, _ = AccountFromContext(ctx)
		return nil, nil
	}

	if _, err := s.accessTokenInterceptor(withToken("good"), nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("account not propagated: %+v", got)
	}
}
