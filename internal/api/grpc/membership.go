package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/service"
)

type MembershipHandler struct {
	membershipSvc service.MembershipService
}

func NewMembershipHandler(membershipSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc}
}

const membershipServiceName = apiPackage + ".MembershipService"

var membershipServiceDesc = serviceDesc(membershipServiceName, []grpc.MethodDesc{
	unaryMethod(membershipServiceName, "SubmitMembershipRequest", (*MembershipHandler).SubmitMembershipRequest),
	unaryMethod(membershipServiceName, "ListMembershipRequests", (*MembershipHandler).ListMembershipRequests),
	unaryMethod(membershipServiceName, "ApproveMembershipRequest", (*MembershipHandler).ApproveMembershipRequest),
	unaryMethod(membershipServiceName, "RejectMembershipRequest", (*MembershipHandler).RejectMembershipRequest),
	unaryMethod(membershipServiceName, "GetUser", (*MembershipHandler).GetUser),
	unaryMethod(membershipServiceName, "ListUsers", (*MembershipHandler).ListUsers),
	unaryMethod(membershipServiceName, "LookupByCard", (*MembershipHandler).LookupByCard),
	unaryMethod(membershipServiceName, "UpdateUser", (*MembershipHandler).UpdateUser),
	unaryMethod(membershipServiceName, "DeleteUser", (*MembershipHandler).DeleteUser),
})

func (h *MembershipHandler) SubmitMembershipRequest(ctx context.Context, req *service.MembershipApplication) (*MembershipRequestResponse, error) {
	mr, err := h.membershipSvc.SubmitMembershipRequest(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MembershipRequestResponse{Request: mr}, nil
}

func (h *MembershipHandler) ListMembershipRequests(ctx context.Context, _ *Empty) (*ListMembershipRequestsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	reqs, err := h.membershipSvc.ListMembershipRequests(ctx, actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListMembershipRequestsResponse{Requests: reqs}, nil
}

func (h *MembershipHandler) ApproveMembershipRequest(ctx context.Context, req *RequestIDRequest) (*UserResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := h.membershipSvc.ApproveMembershipRequest(ctx, actor, req.RequestID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &UserResponse{User: user}, nil
}

func (h *MembershipHandler) RejectMembershipRequest(ctx context.Context, req *RequestIDRequest) (*SuccessResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.membershipSvc.RejectMembershipRequest(ctx, actor, req.RequestID); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SuccessResponse{Success: true}, nil
}

func (h *MembershipHandler) GetUser(ctx context.Context, req *UserIDRequest) (*UserResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	user, err := h.membershipSvc.GetUser(ctx, actor, userID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &UserResponse{User: user}, nil
}

func (h *MembershipHandler) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.membershipSvc.ListUsers(ctx, actor, req.Search)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListUsersResponse{Users: users}, nil
}

func (h *MembershipHandler) LookupByCard(ctx context.Context, req *CardRequest) (*UserResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := h.membershipSvc.LookupByCard(ctx, actor, req.CardNumber)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &UserResponse{User: user}, nil
}

func (h *MembershipHandler) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*UserResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	user, err := h.membershipSvc.UpdateUser(ctx, actor, service.UserUpdate{
		ID:         userID,
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		CardNumber: req.CardNumber,
		Role:       req.Role,
		IsLocked:   req.IsLocked,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &UserResponse{User: user}, nil
}

func (h *MembershipHandler) DeleteUser(ctx context.Context, req *UserIDRequest) (*SuccessResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.membershipSvc.DeleteUser(ctx, actor, req.UserID); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SuccessResponse{Success: true}, nil
}
