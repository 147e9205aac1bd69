package jobs

import (
	"context"
	"fmt"
	"time"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/utils"
)

// refundGracePeriod is how long a refund may stay PENDING before it is reported.
const refundGracePeriod = 15 * time.Minute

// ExpirePendingBookings cancels PENDING bookings whose payment window has closed
func (jr *JobRunner) ExpirePendingBookings() {
	jr.runWithRecovery("ExpirePendingBookings", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		count, err := jr.services.Booking.CancelExpired(ctx)
		if err != nil {
			logger.Error("Failed to expire pending bookings", "error", err)
			return
		}
		logger.Info("Expired pending bookings", "count", count)
	})
}

// SendOverdueReminders notifies customers whose ACTIVE booking has passed its end date
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		bookings, err := jr.services.Booking.ListOverdue(ctx)
		if err != nil {
			logger.Error("Failed to list overdue bookings", "error", err)
			return
		}

		now := jr.services.Clock.Now()
		today := utils.DateOf(now, jr.config.Location())
		for _, b := range bookings {
			days := utils.DaysBetween(b.EndDate, today)
			if jr.services.Notifier != nil {
				jr.services.Notifier.Notify(ctx, domain.BookingEvent{
					Type:       domain.BookingEventOverdue,
					BookingID:  b.ID,
					UserID:     b.UserID,
					Status:     b.Status,
					Reason:     fmt.Sprintf("%d day(s) overdue", days),
					OccurredAt: now,
				})
			}
			logger.Debug("Sent overdue reminder",
				"booking_id", b.ID,
				"user_id", b.UserID,
				"end_date", b.EndDate.Format(utils.DateLayout),
				"days_overdue", days)
		}

		logger.Info("Sent overdue reminders", "count", len(bookings))
	})
}

// ReportFailedRefunds logs refunds that were never credited so that finance
// can reconcile them by hand. A PENDING refund older than the grace period
// was interrupted between recording and crediting.
func (jr *JobRunner) ReportFailedRefunds() {
	jr.runWithRecovery("ReportFailedRefunds", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		stalledBefore := jr.services.Clock.Now().Add(-refundGracePeriod)
		returns, err := jr.services.Bookings.ListUnsettledRefunds(ctx, stalledBefore)
		if err != nil {
			logger.Error("Failed to list unsettled refunds", "error", err)
			return
		}

		var total int64
		for _, rt := range returns {
			total += rt.RefundAmount
			logger.Warn("Refund needs reconciliation",
				"booking_id", rt.BookingID,
				"return_id", rt.ID,
				"refund_status", rt.RefundStatus,
				"amount", rt.RefundAmount,
				"since", rt.UpdatedAt)
		}
		logger.Info("Unsettled refund report", "count", len(returns), "total_amount", total)
	})
}
