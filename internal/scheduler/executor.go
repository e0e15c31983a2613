// Package scheduler runs the durable side of the pipeline on a one-minute
// heartbeat: playlist switches at venue-local times, overdue catch-ups,
// follow-up mail and the keepalive self-ping. A tick never returns an error;
// everything is logged and retried on the next beat.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
)

const (
	tickInterval = time.Minute

	// dueWindowMinutes tolerates timer drift around the exact start minute.
	dueWindowMinutes = 1

	maxRetries      = 3
	followUpBatch   = 5
	followUpTimeout = 30 * time.Second
)

// Executor drives schedule entries and follow-ups off the database clock.
type Executor struct {
	repo domain.Repository
	syb  *syb.Client
	mail mailer.Sender
	bus  events.Store
	log  *logging.ComponentLogger

	baseURL   string
	defaultTZ string
	now       func() time.Time

	mu        sync.Mutex
	locations map[string]*time.Location
}

func NewExecutor(repo domain.Repository, sybClient *syb.Client, mail mailer.Sender,
	bus events.Store, logger *logging.Logger, baseURL, defaultTZ string) *Executor {
	return &Executor{
		repo:      repo,
		syb:       sybClient,
		mail:      mail,
		bus:       bus,
		log:       logger.WithComponent("scheduler"),
		baseURL:   baseURL,
		defaultTZ: defaultTZ,
		now:       time.Now,
		locations: make(map[string]*time.Location),
	}
}

// Run blocks until the context ends, ticking once a minute. The first tick
// fires immediately so restarts catch up without waiting.
func (e *Executor) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick processes one heartbeat. Panics are contained so a bad row cannot
// kill the loop.
func (e *Executor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tick panicked", fmt.Errorf("%v", r))
		}
	}()

	e.runAssignments(ctx)
	e.runFollowUps(ctx)
}

// runAssignments assigns every entry whose venue-local start minute has
// arrived. Overdue entries from earlier in the local day collapse to the
// latest start per zone, so a restart lands each zone on the playlist it
// should be on now instead of replaying the morning.
func (e *Executor) runAssignments(ctx context.Context) {
	if e.repo == nil || e.syb == nil {
		return
	}
	entries, err := e.repo.ActiveEntries(ctx)
	if err != nil {
		e.log.Error("load active entries", err)
		return
	}

	type candidate struct {
		entry   models.ScheduleEntry
		minutes int
		catchUp bool
	}
	latest := make(map[string]candidate)

	for _, entry := range entries {
		loc := e.location(entry.Timezone)
		local := e.now().In(loc)

		if !entry.MatchesDay(local.Weekday()) {
			continue
		}
		if assignedOn(entry.LastAssignedAt, local, loc) {
			continue
		}
		startMin, ok := clockMinutes(entry.StartTime)
		if !ok {
			e.log.Warn("entry has invalid start time", logging.Field{Key: "entry_id", Value: entry.ID})
			continue
		}
		nowMin := local.Hour()*60 + local.Minute()
		if startMin > nowMin+dueWindowMinutes {
			continue // not yet due today
		}

		c := candidate{entry: entry, minutes: startMin, catchUp: nowMin-startMin > dueWindowMinutes}
		if best, ok := latest[entry.ZoneID]; !ok || c.minutes > best.minutes {
			latest[entry.ZoneID] = c
		}
	}

	for _, c := range latest {
		e.assign(ctx, c.entry, c.catchUp)
	}
}

func (e *Executor) assign(ctx context.Context, entry models.ScheduleEntry, catchUp bool) {
	err := e.syb.AssignSource(ctx, []string{entry.ZoneID}, entry.PlaylistSybID)
	if err == nil {
		if err := e.repo.MarkAssigned(ctx, entry.ID, e.now()); err != nil {
			e.log.Error("mark entry assigned", err, logging.Field{Key: "entry_id", Value: entry.ID})
			return
		}
		e.appendEvent(ctx, events.ScheduleAssigned{
			Base:         events.Base{Ts: e.now(), BID: entry.BriefID},
			ZoneID:       entry.ZoneID,
			ScheduleName: entry.PlaylistName,
			CatchUp:      catchUp,
		})
		e.log.Info("playlist assigned",
			logging.BriefID(entry.BriefID),
			logging.Zone(entry.ZoneName),
			logging.Field{Key: "playlist", Value: entry.PlaylistName},
			logging.Field{Key: "catch_up", Value: catchUp})
		return
	}

	retries, recErr := e.repo.RecordFailure(ctx, entry.ID, maxRetries)
	if recErr != nil {
		e.log.Error("record assignment failure", recErr, logging.Field{Key: "entry_id", Value: entry.ID})
		return
	}
	e.log.Warn("playlist assignment failed",
		logging.Zone(entry.ZoneName),
		logging.Error(err),
		logging.Field{Key: "retries", Value: retries})

	if retries >= maxRetries {
		e.appendEvent(ctx, events.ScheduleError{
			Base:    events.Base{Ts: e.now(), BID: entry.BriefID},
			ZoneID:  entry.ZoneID,
			Retries: retries,
			Reason:  err.Error(),
		})
	}
}

// assignedOn reports whether the entry already ran on the given local day.
func assignedOn(lastAssigned *time.Time, local time.Time, loc *time.Location) bool {
	if lastAssigned == nil {
		return false
	}
	la := lastAssigned.In(loc)
	return la.Year() == local.Year() && la.YearDay() == local.YearDay()
}

func clockMinutes(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// location resolves an IANA name with caching, falling back to the default
// timezone and finally UTC.
func (e *Executor) location(name string) *time.Location {
	if name == "" {
		name = e.defaultTZ
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if loc, ok := e.locations[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		e.log.Warn("unknown timezone, using default", logging.Field{Key: "tz", Value: name})
		loc, err = time.LoadLocation(e.defaultTZ)
		if err != nil {
			loc = time.UTC
		}
	}
	e.locations[name] = loc
	return loc
}

func (e *Executor) appendEvent(ctx context.Context, ev events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Append(ctx, ev); err != nil {
		e.log.Warn("append pipeline event", logging.Error(err))
	}
}
