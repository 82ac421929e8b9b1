package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

const (
	AccountsServiceName = "sessionkeeper.v1.Accounts"

	WhoAmIMethod       = "/" + AccountsServiceName + "/WhoAmI"
	ListAccountsMethod = "/" + AccountsServiceName + "/List"
)

// AccountLister lists registered accounts.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]services.AccountDetails, error)
}

// accountsServer is served without generated stubs: requests and replies
// use the protobuf well-known types.
type accountsServer interface {
	WhoAmI(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	List(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
}

type accountsHandler struct {
	accounts AccountLister
}

// WhoAmI returns the account resolved from the caller's access token.
func (h *accountsHandler) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, ok := AccountFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	out, err := structpb.NewStruct(map[string]any{"id": a.ID, "email": a.Email})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// List returns every account with its timestamps in RFC 3339.
func (h *accountsHandler) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := h.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, common.MessageOf(err))
	}

	items := make([]any, 0, len(list))
	for _, a := range list {
		items = append(items, map[string]any{
			"id":        a.ID,
			"email":     a.Email,
			"createdAt": a.CreatedAt.UTC().Format(time.RFC3339),
			"updatedAt": a.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(accountsServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(accountsServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listAccountsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(accountsServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListAccountsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(accountsServer).List(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var accountsServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountsServiceName,
	HandlerType: (*accountsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
		{MethodName: "List", Handler: listAccountsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sessionkeeper/v1/accounts",
}
