package domain

import (
	"context"
	"time"
)

// UnitOfWork scopes the approval POST to one database transaction: consume
// the token, upsert zone mappings, materialize schedule entries, promote the
// brief and bump the venue's approved count, all or nothing.
//
// Typical usage:
//
//	uow, err := factory.Begin(ctx)
//	if err != nil { ... }
//	defer uow.Rollback()
//	// ... repo calls through uow ...
//	if err := uow.Commit(); err != nil { ... }
type UnitOfWork interface {
	Commit() error
	Rollback() error

	// ConsumeToken sets used_at if and only if it is still NULL; the
	// boolean reports whether this caller won the race.
	ConsumeToken(ctx context.Context, token string, at time.Time) (bool, error)

	BriefRepository
	VenueRepository
	ZoneMappingRepository
	ScheduleRepository
}

// UnitOfWorkFactory starts new, already-begun UnitOfWork instances.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
