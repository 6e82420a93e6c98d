package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/service"
)

type ReviewHandler struct {
	reviewSvc service.ReviewService
}

func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

const reviewServiceName = apiPackage + ".ReviewService"

var reviewServiceDesc = serviceDesc(reviewServiceName, []grpc.MethodDesc{
	unaryMethod(reviewServiceName, "AddReview", (*ReviewHandler).AddReview),
	unaryMethod(reviewServiceName, "UpdateReview", (*ReviewHandler).UpdateReview),
	unaryMethod(reviewServiceName, "ListBookReviews", (*ReviewHandler).ListBookReviews),
	unaryMethod(reviewServiceName, "ListUserReviews", (*ReviewHandler).ListUserReviews),
})

func (h *ReviewHandler) AddReview(ctx context.Context, req *AddReviewRequest) (*ReviewResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	review, err := h.reviewSvc.AddReview(ctx, actor, service.ReviewInput{BookID: req.BookID, Text: req.Text, Rating: req.Rating})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ReviewResponse{Review: review}, nil
}

func (h *ReviewHandler) UpdateReview(ctx context.Context, req *UpdateReviewRequest) (*ReviewResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	review, err := h.reviewSvc.UpdateReview(ctx, actor, req.ReviewID, req.Text, req.Rating)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ReviewResponse{Review: review}, nil
}

func (h *ReviewHandler) ListBookReviews(ctx context.Context, req *BookIDRequest) (*ListReviewsResponse, error) {
	reviews, err := h.reviewSvc.ListByBook(ctx, req.BookID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListReviewsResponse{Reviews: reviews}, nil
}

// ListUserReviews defaults to the caller's own reviews when no user is named.
func (h *ReviewHandler) ListUserReviews(ctx context.Context, req *UserIDRequest) (*ListReviewsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	reviews, err := h.reviewSvc.ListByUser(ctx, actor, userID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListReviewsResponse{Reviews: reviews}, nil
}
