package service

import (
	"context"
	"fmt"
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/email"
)

type emailService struct {
	sender email.Sender
}

func NewEmailService(sender email.Sender) EmailService {
	return &emailService{sender: sender}
}

func (s *emailService) SendMembershipApproved(ctx context.Context, user *domain.User, appName string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour membership request for %s has been approved. You can now sign in with %s.", user.Name, appName, user.Email)
	if user.CardNumber != "" {
		body += fmt.Sprintf("\n\nYour library card number is %s.", user.CardNumber)
	}
	body += fmt.Sprintf("\n\nBest regards,\nThe %s Team", appName)
	err := s.sender.Send(ctx, email.Message{
		To:      user.Email,
		ToName:  user.Name,
		Subject: fmt.Sprintf("Welcome to %s", appName),
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send membership approval: %w", err)
	}
	return nil
}

func (s *emailService) SendMembershipRejected(ctx context.Context, req *domain.MembershipRequest, appName string) error {
	body := fmt.Sprintf("Hello %s,\n\nUnfortunately your membership request for %s was not approved.\n\nBest regards,\nThe %s Team", req.FullName, appName, appName)
	err := s.sender.Send(ctx, email.Message{
		To:      req.Email,
		ToName:  req.FullName,
		Subject: fmt.Sprintf("Membership Request - %s", appName),
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send membership rejection: %w", err)
	}
	return nil
}

func (s *emailService) SendOverdueReminder(ctx context.Context, user *domain.User, loan *domain.Loan, due time.Time, appName string) error {
	body := fmt.Sprintf("Hello %s,\n\n%q was due back on %s. Please return it or contact the library.\n\nBest regards,\nThe %s Team",
		user.Name, loan.BookTitle, due.Format("2006-01-02"), appName)
	err := s.sender.Send(ctx, email.Message{
		To:      user.Email,
		ToName:  user.Name,
		Subject: fmt.Sprintf("Overdue: %s", loan.BookTitle),
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send overdue reminder: %w", err)
	}
	return nil
}
