package approval

import (
	"context"
	"errors"

	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
)

// Token redemption failures, mapped to user-facing pages by the handler.
var (
	ErrTokenNotFound = errors.New("approval token not found")
	ErrTokenExpired  = errors.New("approval token expired")
	ErrTokenUsed     = errors.New("approval token already used")
	ErrNoZones       = errors.New("no zones selected")
)

// ReviewData feeds the approval page.
type ReviewData struct {
	Token         string
	Brief         *models.Brief
	ScheduleData  *models.ScheduleData
	BriefZones    []string
	PlatformZones []syb.Zone
	PreSelected   map[string]string // brief zone -> platform zone ID
	AccountID     string
	PreBuilt      bool
}

// Review validates the token and assembles everything the approval page
// shows: the brief, the platform zones to bind, and any mappings learned
// from earlier approvals.
func (s *Service) Review(ctx context.Context, token string) (*ReviewData, error) {
	t, b, err := s.redeemable(ctx, token)
	if err != nil {
		return nil, err
	}

	sd := b.ScheduleData
	if sd == nil {
		sd = &models.ScheduleData{}
	}

	accountID, zones := s.discoverZones(ctx, b)

	preSelected := make(map[string]string)
	if mappings, err := s.repo.ZoneMappingsForVenue(ctx, b.VenueName); err == nil {
		for _, m := range mappings {
			preSelected[m.BriefZoneName] = m.SybZoneID
		}
	}

	briefZones := make([]string, 0, len(sd.Zones()))
	for _, z := range sd.Zones() {
		briefZones = append(briefZones, zoneKey(z))
	}

	return &ReviewData{
		Token:         t.Token,
		Brief:         b,
		ScheduleData:  sd,
		BriefZones:    briefZones,
		PlatformZones: zones,
		PreSelected:   preSelected,
		AccountID:     accountID,
		PreBuilt:      b.SybScheduleID != nil,
	}, nil
}

// ApproveResult reports what redemption produced.
type ApproveResult struct {
	BriefID    int64
	EntryCount int
	Scheduled  bool // remote schedule bound directly
}

// Approve redeems the token in one transaction: consume it, learn the zone
// mappings, then either bind the pre-built remote schedule or materialize
// executor entries. Consuming the token is the single point of serialization;
// a concurrent double-submit loses there and rolls back.
func (s *Service) Approve(ctx context.Context, token string, selections map[string]string) (*ApproveResult, error) {
	_, b, err := s.redeemable(ctx, token)
	if err != nil {
		return nil, err
	}
	sd := b.ScheduleData
	if sd == nil {
		sd = &models.ScheduleData{}
	}
	if len(selections) == 0 {
		return nil, ErrNoZones
	}

	accountID, zones := s.discoverZones(ctx, b)
	zoneNames := make(map[string]string, len(zones))
	for _, z := range zones {
		zoneNames[z.ID] = z.Name
	}

	venue, err := s.repo.GetVenueByName(ctx, b.VenueName)
	if err != nil {
		return nil, err
	}
	tz := s.defaultTZ
	if venue != nil && venue.Timezone != "" {
		tz = venue.Timezone
	}

	uow, err := s.uowf.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	won, err := uow.ConsumeToken(ctx, token, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrTokenUsed
	}

	byZone := make(map[string]models.ZoneMapping, len(selections))
	var boundZoneIDs []string
	for _, zone := range sd.Zones() {
		key := zoneKey(zone)
		zoneID, ok := selections[key]
		if !ok || zoneID == "" {
			continue
		}
		m := models.ZoneMapping{
			VenueName:     b.VenueName,
			BriefZoneName: key,
			SybZoneID:     zoneID,
			SybZoneName:   zoneNames[zoneID],
			SybAccountID:  accountID,
		}
		if err := uow.UpsertZoneMapping(ctx, &m); err != nil {
			return nil, err
		}
		byZone[key] = m
		boundZoneIDs = append(boundZoneIDs, zoneID)
	}
	if len(boundZoneIDs) == 0 {
		return nil, ErrNoZones
	}

	res := &ApproveResult{BriefID: b.ID}
	status := models.BriefStatusApproved

	if b.SybScheduleID != nil && s.syb != nil {
		if err := s.syb.AssignSource(ctx, boundZoneIDs, *b.SybScheduleID); err != nil {
			return nil, err
		}
		status = models.BriefStatusScheduled
		res.Scheduled = true
	} else {
		entries := materializeEntries(b.ID, sd, byZone, tz)
		if len(entries) > 0 {
			if err := uow.CreateScheduleEntries(ctx, entries); err != nil {
				return nil, err
			}
		}
		res.EntryCount = len(entries)
	}

	if err := uow.UpdateBriefStatus(ctx, b.ID, status); err != nil {
		return nil, err
	}
	if err := uow.IncrementApprovedCount(ctx, b.VenueName); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, events.BriefApproved{
		Base:       events.Base{Ts: s.now(), BID: b.ID},
		Zones:      sd.ZoneNames,
		EntryCount: res.EntryCount,
	})
	s.log.Info("brief approved", logging.BriefID(b.ID), logging.Venue(b.VenueName))
	return res, nil
}

// redeemable loads and checks a token plus its brief.
func (s *Service) redeemable(ctx context.Context, token string) (*models.ApprovalToken, *models.Brief, error) {
	if s.repo == nil {
		return nil, nil, ErrTokenNotFound
	}
	t, err := s.repo.GetToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrTokenNotFound
	}
	if t.UsedAt != nil {
		return nil, nil, ErrTokenUsed
	}
	if !s.now().Before(t.ExpiresAt) {
		return nil, nil, ErrTokenExpired
	}
	b, err := s.repo.GetBrief(ctx, t.BriefID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, ErrTokenNotFound
	}
	return t, b, nil
}

// discoverZones finds the platform account and its sound zones, preferring
// the brief's confirmed account and falling back to an unambiguous name
// match.
func (s *Service) discoverZones(ctx context.Context, b *models.Brief) (string, []syb.Zone) {
	if s.syb == nil {
		return "", nil
	}

	accountID := ""
	if b.SybAccountID != nil {
		accountID = *b.SybAccountID
	} else if s.accounts != nil {
		if matches, err := s.accounts.Search(ctx, b.VenueName); err == nil && len(matches) == 1 {
			accountID = matches[0].ID
		}
	}
	if accountID == "" {
		return "", nil
	}

	zones, err := s.syb.Zones(ctx, accountID)
	if err != nil {
		s.log.Warn("zone discovery failed", logging.Venue(b.VenueName), logging.Error(err))
		return accountID, nil
	}
	return accountID, zones
}
