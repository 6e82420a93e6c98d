package jobs

import (
	"context"

	"shelfkeeper-backend/internal/logger"
)

// PurgeStaleMembershipRequests drops registrations nobody acted on within the configured TTL
func (jr *JobRunner) PurgeStaleMembershipRequests() error {
	return jr.runWithRecovery("PurgeStaleMembershipRequests", func(ctx context.Context) error {
		n, err := jr.services.Membership.PurgeStaleRequests(ctx, jr.config.MembershipRequestTTL())
		if err != nil {
			return err
		}
		logger.Info("Purged stale membership requests", "count", n, "ttl_days", jr.config.Library.MembershipRequestTTLDays)
		return nil
	})
}
