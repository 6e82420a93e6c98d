package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/email"
)

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendMembershipApproved(ctx context.Context, user *domain.User, appName string) error {
	args := m.Called(ctx, user, appName)
	return args.Error(0)
}

func (m *MockEmailService) SendMembershipRejected(ctx context.Context, req *domain.MembershipRequest, appName string) error {
	args := m.Called(ctx, req, appName)
	return args.Error(0)
}

func (m *MockEmailService) SendOverdueReminder(ctx context.Context, user *domain.User, loan *domain.Loan, due time.Time, appName string) error {
	args := m.Called(ctx, user, loan, due, appName)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
