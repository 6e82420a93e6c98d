package jobs

import (
	"context"
	"fmt"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
)

// ReconcileAvailability recomputes available copies from open loans for every book
func (jr *JobRunner) ReconcileAvailability() error {
	return jr.runWithRecovery("ReconcileAvailability", func(ctx context.Context) error {
		recs, err := jr.services.Availability.ReconcileAll(ctx, domain.SystemActor)
		corrected := 0
		for _, r := range recs {
			if r.Corrected() {
				corrected++
				logger.Debug("Corrected availability", "book_id", r.BookID, "before", r.Before, "after", r.After)
			}
		}
		logger.Info("Availability reconciled", "books", len(recs), "corrected", corrected)
		return err
	})
}

// SendOverdueReminders emails every borrower holding an overdue loan
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) error {
		views, err := jr.services.Loan.ListOpenLoans(ctx, domain.SystemActor, "")
		if err != nil {
			return fmt.Errorf("list open loans: %w", err)
		}
		settings, err := jr.services.Settings.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		sent, failed := 0, 0
		for _, v := range views {
			if !v.Overdue || v.Borrower == nil || v.Borrower.Email == "" {
				continue
			}
			loan := v.Loan
			if err := jr.services.Email.SendOverdueReminder(ctx, v.Borrower, &loan, v.DueDate, settings.AppName); err != nil {
				logger.Warn("Failed to send overdue reminder", "loan_id", loan.ID, "user_id", loan.UserID, "error", err)
				failed++
				continue
			}
			sent++
		}
		logger.Info("Overdue reminders sent", "sent", sent, "failed", failed)
		if failed > 0 && sent == 0 {
			return fmt.Errorf("all %d overdue reminders failed", failed)
		}
		return nil
	})
}
