package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/service"
)

type SettingsHandler struct {
	settingsSvc service.SettingsService
}

func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

const settingsServiceName = apiPackage + ".SettingsService"

var settingsServiceDesc = serviceDesc(settingsServiceName, []grpc.MethodDesc{
	unaryMethod(settingsServiceName, "GetSettings", (*SettingsHandler).GetSettings),
	unaryMethod(settingsServiceName, "UpdateSettings", (*SettingsHandler).UpdateSettings),
})

func (h *SettingsHandler) GetSettings(ctx context.Context, _ *Empty) (*SettingsMessage, error) {
	s, err := h.settingsSvc.GetSettings(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SettingsMessage{Settings: s}, nil
}

func (h *SettingsHandler) UpdateSettings(ctx context.Context, req *SettingsMessage) (*SettingsMessage, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s, err := h.settingsSvc.UpdateSettings(ctx, actor, req.Settings)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SettingsMessage{Settings: *s}, nil
}
