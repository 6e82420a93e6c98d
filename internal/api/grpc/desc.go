package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const apiPackage = "shelfkeeper.api.v1"

// unaryMethod builds a MethodDesc for a handler method expression such as
// (*LoanHandler).Borrow, running it through the server's unary interceptor.
func unaryMethod[H any, Req any, Resp any](serviceName, name string, call func(H, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(H)
			if interceptor == nil {
				return call(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(h, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serviceDesc(name string, methods []grpc.MethodDesc, streams ...grpc.StreamDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: name,
		HandlerType: (*any)(nil),
		Methods:     methods,
		Streams:     streams,
		Metadata:    "shelfkeeper/v1/library.proto",
	}
}

// Handlers bundles every API handler for registration.
type Handlers struct {
	Loan       *LoanHandler
	Catalog    *CatalogHandler
	Review     *ReviewHandler
	Membership *MembershipHandler
	Settings   *SettingsHandler
	Auth       *AuthHandler
	Change     *ChangeHandler
}

// Register attaches the library API to s.
func Register(s grpc.ServiceRegistrar, h Handlers) {
	s.RegisterService(loanServiceDesc, h.Loan)
	s.RegisterService(catalogServiceDesc, h.Catalog)
	s.RegisterService(reviewServiceDesc, h.Review)
	s.RegisterService(membershipServiceDesc, h.Membership)
	s.RegisterService(settingsServiceDesc, h.Settings)
	s.RegisterService(authServiceDesc, h.Auth)
	s.RegisterService(changeServiceDesc, h.Change)
}
