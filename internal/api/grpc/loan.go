package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

type LoanHandler struct {
	loanSvc         service.LoanService
	availabilitySvc service.AvailabilityService
}

func NewLoanHandler(loanSvc service.LoanService, availabilitySvc service.AvailabilityService) *LoanHandler {
	return &LoanHandler{loanSvc: loanSvc, availabilitySvc: availabilitySvc}
}

const loanServiceName = apiPackage + ".LoanService"

var loanServiceDesc = serviceDesc(loanServiceName, []grpc.MethodDesc{
	unaryMethod(loanServiceName, "Borrow", (*LoanHandler).Borrow),
	unaryMethod(loanServiceName, "Confirm", (*LoanHandler).Confirm),
	unaryMethod(loanServiceName, "Renew", (*LoanHandler).Renew),
	unaryMethod(loanServiceName, "RequestReturn", (*LoanHandler).RequestReturn),
	unaryMethod(loanServiceName, "ApproveReturn", (*LoanHandler).ApproveReturn),
	unaryMethod(loanServiceName, "RejectReturn", (*LoanHandler).RejectReturn),
	unaryMethod(loanServiceName, "ForceReturn", (*LoanHandler).ForceReturn),
	unaryMethod(loanServiceName, "DirectReturn", (*LoanHandler).DirectReturn),
	unaryMethod(loanServiceName, "CancelPending", (*LoanHandler).CancelPending),
	unaryMethod(loanServiceName, "DeskBorrow", (*LoanHandler).DeskBorrow),
	unaryMethod(loanServiceName, "DeskReturn", (*LoanHandler).DeskReturn),
	unaryMethod(loanServiceName, "GetLoan", (*LoanHandler).GetLoan),
	unaryMethod(loanServiceName, "ListLoansByUser", (*LoanHandler).ListLoansByUser),
	unaryMethod(loanServiceName, "ListOpenLoans", (*LoanHandler).ListOpenLoans),
	unaryMethod(loanServiceName, "ListReturnRequests", (*LoanHandler).ListReturnRequests),
	unaryMethod(loanServiceName, "ReconcileBook", (*LoanHandler).ReconcileBook),
})

func (h *LoanHandler) Borrow(ctx context.Context, req *BorrowRequest) (*LoanResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.BorrowModeSelfService
	}
	res, err := h.loanSvc.Borrow(ctx, actor, userID, req.BookID, mode)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return mapLoanResult(res), nil
}

// loanOp runs a lifecycle operation that takes a loan or request id.
func (h *LoanHandler) loanOp(ctx context.Context, id string, op func(context.Context, domain.Actor, string) (*service.LoanResult, error)) (*LoanResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := op(ctx, actor, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return mapLoanResult(res), nil
}

func (h *LoanHandler) Confirm(ctx context.Context, req *LoanIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.LoanID, h.loanSvc.Confirm)
}

func (h *LoanHandler) Renew(ctx context.Context, req *LoanIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.LoanID, h.loanSvc.Renew)
}

func (h *LoanHandler) ApproveReturn(ctx context.Context, req *RequestIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.RequestID, h.loanSvc.ApproveReturn)
}

func (h *LoanHandler) ForceReturn(ctx context.Context, req *LoanIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.LoanID, h.loanSvc.ForceReturn)
}

func (h *LoanHandler) DirectReturn(ctx context.Context, req *LoanIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.LoanID, h.loanSvc.DirectReturn)
}

func (h *LoanHandler) CancelPending(ctx context.Context, req *LoanIDRequest) (*LoanResponse, error) {
	return h.loanOp(ctx, req.LoanID, h.loanSvc.CancelPending)
}

func (h *LoanHandler) RequestReturn(ctx context.Context, req *LoanIDRequest) (*ReturnRequestResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rr, err := h.loanSvc.RequestReturn(ctx, actor, req.LoanID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ReturnRequestResponse{Request: rr}, nil
}

func (h *LoanHandler) RejectReturn(ctx context.Context, req *RequestIDRequest) (*SuccessResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.loanSvc.RejectReturn(ctx, actor, req.RequestID); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SuccessResponse{Success: true}, nil
}

func (h *LoanHandler) DeskBorrow(ctx context.Context, req *DeskRequest) (*LoanResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.loanSvc.DeskBorrow(ctx, actor, req.CardNumber, req.ISBN)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return mapLoanResult(res), nil
}

func (h *LoanHandler) DeskReturn(ctx context.Context, req *DeskRequest) (*LoanResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.loanSvc.DeskReturn(ctx, actor, req.CardNumber, req.ISBN)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return mapLoanResult(res), nil
}

func (h *LoanHandler) GetLoan(ctx context.Context, req *LoanIDRequest) (*LoanViewResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	v, err := h.loanSvc.GetLoan(ctx, actor, req.LoanID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &LoanViewResponse{Loan: mapLoanView(*v)}, nil
}

func (h *LoanHandler) ListLoansByUser(ctx context.Context, req *ListLoansByUserRequest) (*ListLoansResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	views, err := h.loanSvc.ListLoansByUser(ctx, actor, userID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListLoansResponse{Loans: mapLoanViews(views)}, nil
}

func (h *LoanHandler) ListOpenLoans(ctx context.Context, req *ListOpenLoansRequest) (*ListLoansResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	views, err := h.loanSvc.ListOpenLoans(ctx, actor, req.Search)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListLoansResponse{Loans: mapLoanViews(views)}, nil
}

func (h *LoanHandler) ListReturnRequests(ctx context.Context, _ *Empty) (*ListReturnRequestsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	reqs, err := h.loanSvc.ListReturnRequests(ctx, actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListReturnRequestsResponse{Requests: reqs}, nil
}

func (h *LoanHandler) ReconcileBook(ctx context.Context, req *BookIDRequest) (*ReconcileResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := h.availabilitySvc.ReconcileBook(ctx, actor, req.BookID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ReconcileResponse{
		BookID:      rec.BookID,
		TotalCopies: rec.TotalCopies,
		OpenLoans:   rec.OpenLoans,
		Before:      rec.Before,
		After:       rec.After,
		Corrected:   rec.Corrected(),
	}, nil
}
