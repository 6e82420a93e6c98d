package grpc

import (
	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/service"
)

// ChangeHandler streams change notifications so clients can re-read what changed.
type ChangeHandler struct {
	hub *events.Hub
}

func NewChangeHandler(hub *events.Hub) *ChangeHandler {
	return &ChangeHandler{hub: hub}
}

const changeServiceName = apiPackage + ".ChangeService"

var changeServiceDesc = serviceDesc(changeServiceName, nil, grpc.StreamDesc{
	StreamName:    "WatchChanges",
	ServerStreams: true,
	Handler: func(srv any, stream grpc.ServerStream) error {
		req := new(WatchChangesRequest)
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		return srv.(*ChangeHandler).WatchChanges(req, stream)
	},
})

// adminOnly collections are hidden from patrons.
var adminOnly = map[domain.Collection]bool{
	domain.CollectionUsers:              true,
	domain.CollectionMembershipRequests: true,
}

func (h *ChangeHandler) WatchChanges(req *WatchChangesRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return err
	}

	collections := req.Collections
	if !actor.IsAdmin() {
		if len(collections) == 0 {
			collections = []domain.Collection{
				domain.CollectionBooks, domain.CollectionLoans,
				domain.CollectionReturnRequests, domain.CollectionSettings,
				domain.CollectionReviews,
			}
		}
		allowed := collections[:0:0]
		for _, c := range collections {
			if !adminOnly[c] {
				allowed = append(allowed, c)
			}
		}
		collections = allowed
		if len(collections) == 0 {
			return toStatus(ctx, service.ErrForbidden)
		}
	}

	sub := h.hub.Subscribe(collections...)
	defer sub.Close()
	logger.InfoContext(ctx, "change watch started", "user_id", actor.UserID, "collections", collections)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}
