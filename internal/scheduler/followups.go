package scheduler

import (
	"context"

	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
)

// runFollowUps delivers a small batch of due check-ins per tick. Every row
// is marked sent no matter what happens, so a broken address or SMTP outage
// can never make the same mail fire twice.
func (e *Executor) runFollowUps(ctx context.Context) {
	if e.repo == nil {
		return
	}
	due, err := e.repo.DueFollowUps(ctx, e.now(), followUpBatch)
	if err != nil {
		e.log.Error("load due follow-ups", err)
		return
	}

	for _, fu := range due {
		delivered := false
		if fu.ContactEmail != "" && e.mail != nil {
			sctx, cancel := context.WithTimeout(ctx, followUpTimeout)
			err := e.mail.SendFollowUp(sctx, followUpEmail(fu, e.baseURL))
			cancel()
			if err != nil {
				e.log.Warn("follow-up delivery failed",
					logging.BriefID(fu.BriefID),
					logging.Error(err))
			} else {
				delivered = true
			}
		}

		if err := e.repo.MarkFollowUpSent(ctx, fu.ID, e.now()); err != nil {
			e.log.Error("mark follow-up sent", err, logging.BriefID(fu.BriefID))
			continue
		}
		e.appendEvent(ctx, events.FollowUpSent{
			Base:       events.Base{Ts: e.now(), BID: fu.BriefID},
			Kind:       fu.Type,
			TrackingID: fu.TrackingID,
			Delivered:  delivered,
		})
	}
}

// followUpEmail shapes the outgoing mail for one follow-up row.
func followUpEmail(fu models.FollowUp, baseURL string) mailer.FollowUpEmail {
	subject := "How is the music working out at " + fu.VenueName + "?"
	intro := "It has been a week since your new music program went live at " + fu.VenueName +
		". How is it landing with your guests? If any daypart feels off, we can fine-tune it."
	if fu.Type == models.FollowUp30Day {
		subject = "A month of music at " + fu.VenueName
		intro = "Your music program at " + fu.VenueName + " has been running for a month now. " +
			"This is usually a good moment to refresh a few playlists so regulars keep hearing something new."
	}
	return mailer.FollowUpEmail{
		To:          fu.ContactEmail,
		Subject:     subject,
		ContactName: fu.ContactName,
		VenueName:   fu.VenueName,
		Intro:       intro,
		PixelURL:    baseURL + "/follow-up/track/" + fu.TrackingID,
	}
}
