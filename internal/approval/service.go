// Package approval owns the back half of the pipeline: persisting a
// submission, issuing the capability token, pre-building the remote schedule
// when an account is confirmed, and redeeming the token into live schedule
// entries.
package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"music-brief-scheduler/internal/brief"
	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
)

const (
	tokenBytes    = 32
	tokenLifetime = 7 * 24 * time.Hour

	followUpFirst  = 7 * 24 * time.Hour
	followUpSecond = 30 * 24 * time.Hour

	// autoScheduleMinApprovals gates hands-off scheduling: a venue earns it
	// after this many approved briefs.
	autoScheduleMinApprovals = 2
)

// Service drives submission and approval.
type Service struct {
	repo     domain.Repository
	uowf     domain.UnitOfWorkFactory
	syb      *syb.Client
	accounts *syb.AccountCache
	mail     mailer.Sender
	synth    *brief.Synthesizer
	tz       *TimezoneResolver
	bus      events.Store
	log      *logging.ComponentLogger

	baseURL   string
	recipient string
	defaultTZ string

	now func() time.Time
}

// Deps bundles the service's collaborators. Repo and UOWFactory are nil in
// degraded mode; SYB and TZ are nil when unconfigured.
type Deps struct {
	Repo       domain.Repository
	UOWFactory domain.UnitOfWorkFactory
	SYB        *syb.Client
	Accounts   *syb.AccountCache
	Mail       mailer.Sender
	Synth      *brief.Synthesizer
	TZ         *TimezoneResolver
	Events     events.Store
	Logger     *logging.Logger

	BaseURL         string
	RecipientEmail  string
	DefaultTimezone string
}

func NewService(d Deps) *Service {
	return &Service{
		repo:      d.Repo,
		uowf:      d.UOWFactory,
		syb:       d.SYB,
		accounts:  d.Accounts,
		mail:      d.Mail,
		synth:     d.Synth,
		tz:        d.TZ,
		bus:       d.Events,
		log:       d.Logger.WithComponent("approval"),
		baseURL:   d.BaseURL,
		recipient: d.RecipientEmail,
		defaultTZ: d.DefaultTimezone,
		now:       time.Now,
	}
}

// SubmitResult reports what the pipeline did with a submission.
type SubmitResult struct {
	BriefID       int64 `json:"briefId,omitempty"`
	AutoScheduled bool  `json:"autoScheduled,omitempty"`
	Success       bool  `json:"success"`
}

// Submit runs the full intake: persist the brief, learn the venue, pre-build
// the remote schedule when the account is confirmed, then either materialize
// entries directly (trusted venues) or issue an approval token and notify the
// team. A failed approval email fails the submission so the caller retries;
// the brief is already persisted and a duplicate on retry is acceptable.
func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*SubmitResult, error) {
	eb := mergedBrief(req)
	sd := buildScheduleData(req)
	product := req.Product
	if product == "" {
		product = models.ProductSYB
	}

	b := &models.Brief{
		VenueName:           req.VenueName,
		VenueType:           eb.VenueType,
		Location:            eb.Location,
		ContactName:         req.ContactName,
		ContactEmail:        req.ContactEmail,
		ContactPhone:        req.ContactPhone,
		Product:             product,
		LikedPlaylistIDs:    req.LikedPlaylists,
		ConversationSummary: req.ConversationSummary,
		RawData:             req.RawJSON(),
		ScheduleData:        sd,
		Status:              models.BriefStatusSubmitted,
	}
	if req.SybAccountID != "" {
		b.SybAccountID = &req.SybAccountID
	}

	if s.repo == nil {
		// Degraded mode: the email is the only durable record, so a
		// delivery failure must surface to the caller.
		if err := s.sendApprovalMail(ctx, b, sd, eb, "", false); err != nil {
			return nil, err
		}
		return &SubmitResult{Success: true}, nil
	}

	id, err := s.repo.CreateBrief(ctx, b)
	if err != nil {
		return nil, err
	}
	b.ID = id

	venue, err := s.repo.UpsertVenue(ctx, &models.Venue{
		VenueName:     req.VenueName,
		Location:      eb.Location,
		VenueType:     eb.VenueType,
		SybAccountID:  b.SybAccountID,
		LatestBriefID: &id,
		Timezone:      s.defaultTZ,
	})
	if err != nil {
		return nil, err
	}
	s.enrichTimezone(req.VenueName, eb.Location)

	tz := venue.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}

	accountID := req.SybAccountID
	if accountID == "" && venue.SybAccountID != nil {
		accountID = *venue.SybAccountID
	}
	preBuilt := s.preBuildRemoteSchedule(ctx, b, sd, accountID)

	mappings, err := s.repo.ZoneMappingsForVenue(ctx, req.VenueName)
	if err != nil {
		s.log.Warn("zone mapping lookup failed", logging.Venue(req.VenueName), logging.Error(err))
	}
	byZone := mappingIndex(mappings)

	autoEligible := venue.AutoSchedule &&
		venue.ApprovedBriefCount >= autoScheduleMinApprovals &&
		coversAllZones(sd, byZone)

	s.appendEvent(ctx, events.BriefSubmitted{
		Base:         events.Base{Ts: s.now(), BID: id},
		VenueName:    req.VenueName,
		Product:      product,
		AutoEligible: autoEligible,
	})

	s.createFollowUps(ctx, b)

	if autoEligible {
		if err := s.autoSchedule(ctx, b, sd, byZone, tz); err != nil {
			s.log.Error("auto-schedule failed, falling back to manual approval", err, logging.BriefID(id))
		} else {
			if err := s.sendApprovalMail(ctx, b, sd, eb, "", preBuilt); err != nil {
				return nil, err
			}
			return &SubmitResult{BriefID: id, AutoScheduled: true, Success: true}, nil
		}
	}

	approvalURL, err := s.issueToken(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.sendApprovalMail(ctx, b, sd, eb, approvalURL, preBuilt); err != nil {
		return nil, err
	}
	return &SubmitResult{BriefID: id, Success: true}, nil
}

// mergedBrief overlays the flat submission fields onto the extracted brief so
// downstream consumers see one consistent shape.
func mergedBrief(req models.SubmitRequest) models.ExtractedBrief {
	eb := models.ExtractedBrief{}
	if req.ExtractedBrief != nil {
		eb = *req.ExtractedBrief
	}
	if req.VenueName != "" {
		eb.VenueName = req.VenueName
	}
	if req.VenueType != "" {
		eb.VenueType = req.VenueType
	}
	if req.Location != "" {
		eb.Location = req.Location
	}
	if len(req.Vibes) > 0 {
		eb.Vibes = req.Vibes
	}
	if req.Energy > 0 {
		eb.Energy = req.Energy
	}
	if req.Hours != "" {
		eb.Hours = req.Hours
	}
	if req.Vocals != "" {
		eb.Vocals = req.Vocals
	}
	if req.AvoidList != "" {
		eb.AvoidList = req.AvoidList
	}
	return eb
}

// preBuildRemoteSchedule creates the platform schedule ahead of approval when
// the account is already confirmed. Approval then only binds zones. Returns
// whether a remote schedule exists for this brief.
func (s *Service) preBuildRemoteSchedule(ctx context.Context, b *models.Brief, sd *models.ScheduleData, accountID string) bool {
	if s.syb == nil || accountID == "" {
		return false
	}
	liked, parts := flattenForSlots(sd)
	slots := syb.WeeklySlots(liked, parts)
	if len(slots) == 0 {
		return false
	}

	name := fmt.Sprintf("%s %s — by BMAsia", b.VenueName, zoneKey(firstZone(sd)))
	scheduleID, err := s.syb.CreateSchedule(ctx, syb.ScheduleInput{
		OwnerID:     accountID,
		Name:        name,
		PresentAs:   "daily",
		Description: fmt.Sprintf("Brief #%d", b.ID),
		Slots:       slots,
	})
	if err != nil {
		s.log.Warn("remote schedule pre-build failed", logging.BriefID(b.ID), logging.Error(err))
		return false
	}
	b.SybScheduleID = &scheduleID
	if err := s.repo.SetBriefRemoteSchedule(ctx, b.ID, scheduleID); err != nil {
		s.log.Error("persist remote schedule id", err, logging.BriefID(b.ID))
	}

	for _, sybID := range distinctSybIDs(liked) {
		if err := s.syb.AddToMusicLibrary(ctx, accountID, sybID); err != nil {
			s.log.Warn("add to music library failed", logging.Error(err))
		}
	}
	return true
}

// flattenForSlots merges all zones' picks into one list plus a combined
// daypart index. Base picks stay untyped so they expand across all seven
// days; weekend variant picks are tagged weekend.
func flattenForSlots(sd *models.ScheduleData) ([]models.LikedPlaylist, map[string]models.Daypart) {
	hasWeekend := len(sd.WeekendLiked) > 0
	parts := make(map[string]models.Daypart)
	var liked []models.LikedPlaylist

	sd.Dayparts.Each(func(_ string, ps []models.Daypart) {
		for _, p := range ps {
			parts[p.Key] = p
		}
	})
	for _, zone := range sd.Zones() {
		liked = append(liked, sd.LikedPlaylists[zone]...)
	}
	if hasWeekend {
		if sd.WeekendDayparts != nil {
			sd.WeekendDayparts.Each(func(_ string, ps []models.Daypart) {
				for _, p := range ps {
					parts[p.Key] = p
				}
			})
		}
		for _, zone := range sd.Zones() {
			for _, lp := range sd.WeekendLiked[zone] {
				lp.ScheduleType = models.DaysWeekend
				liked = append(liked, lp)
			}
		}
	}
	return liked, parts
}

func distinctSybIDs(liked []models.LikedPlaylist) []string {
	seen := make(map[string]bool, len(liked))
	var out []string
	for _, lp := range liked {
		if lp.SybID == "" || seen[lp.SybID] {
			continue
		}
		seen[lp.SybID] = true
		out = append(out, lp.SybID)
	}
	return out
}

// autoSchedule materializes entries without human approval for venues that
// earned the auto gate. Runs in one transaction.
func (s *Service) autoSchedule(ctx context.Context, b *models.Brief, sd *models.ScheduleData, byZone map[string]models.ZoneMapping, tz string) error {
	entries := materializeEntries(b.ID, sd, byZone, tz)
	if len(entries) == 0 {
		return fmt.Errorf("no schedule entries could be materialized")
	}

	uow, err := s.uowf.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.CreateScheduleEntries(ctx, entries); err != nil {
		return err
	}
	if err := uow.UpdateBriefStatus(ctx, b.ID, models.BriefStatusApproved); err != nil {
		return err
	}
	if err := uow.IncrementApprovedCount(ctx, b.VenueName); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	tier := "auto"
	b.AutomationTier = &tier
	b.Status = models.BriefStatusApproved

	s.appendEvent(ctx, events.BriefApproved{
		Base:         events.Base{Ts: s.now(), BID: b.ID},
		Zones:        sd.ZoneNames,
		EntryCount:   len(entries),
		AutoApproved: true,
	})
	s.log.Info("brief auto-scheduled", logging.BriefID(b.ID), logging.Venue(b.VenueName))
	return nil
}

// issueToken creates the single-use approval capability and returns its URL.
func (s *Service) issueToken(ctx context.Context, briefID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateToken(ctx, &models.ApprovalToken{
		BriefID:   briefID,
		Token:     token,
		ExpiresAt: s.now().Add(tokenLifetime),
	}); err != nil {
		return "", err
	}
	return s.baseURL + "/approve/" + token, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// createFollowUps schedules the 7-day and 30-day check-ins. Skipped when the
// customer left no email.
func (s *Service) createFollowUps(ctx context.Context, b *models.Brief) {
	if b.ContactEmail == "" {
		return
	}
	now := s.now()
	fus := []models.FollowUp{
		{BriefID: b.ID, Type: models.FollowUp7Day, ScheduledFor: now.Add(followUpFirst),
			TrackingID: uuid.NewString(), ContactEmail: b.ContactEmail, VenueName: b.VenueName, ContactName: b.ContactName},
		{BriefID: b.ID, Type: models.FollowUp30Day, ScheduledFor: now.Add(followUpSecond),
			TrackingID: uuid.NewString(), ContactEmail: b.ContactEmail, VenueName: b.VenueName, ContactName: b.ContactName},
	}
	if err := s.repo.CreateFollowUps(ctx, fus); err != nil {
		s.log.Error("create follow-ups", err, logging.BriefID(b.ID))
	}
}

// sendApprovalMail notifies the production team. A delivery failure is
// returned so the submit path can surface it.
func (s *Service) sendApprovalMail(ctx context.Context, b *models.Brief, sd *models.ScheduleData, eb models.ExtractedBrief, approvalURL string, preBuilt bool) error {
	if s.mail == nil || s.recipient == "" {
		return nil
	}

	data := mailer.ApprovalEmail{
		To:               s.recipient,
		BriefID:          b.ID,
		VenueName:        b.VenueName,
		VenueType:        b.VenueType,
		Location:         b.Location,
		ContactName:      b.ContactName,
		ContactEmail:     b.ContactEmail,
		ApprovalURL:      approvalURL,
		SchedulePreBuilt: preBuilt,
		Summary:          b.ConversationSummary,
		DaypartLines:     daypartLines(sd),
	}
	if s.synth != nil {
		db := s.synth.Synthesize(models.MatchInput{
			VenueType:  eb.VenueType,
			Vibes:      eb.Vibes,
			Energy:     eb.Energy,
			AvoidList:  eb.AvoidList,
			Vocals:     eb.Vocals,
			GenreHints: eb.GenreHints,
		}, sd.Dayparts.ForZone(firstZone(sd)))
		data.TopGenres = db.TopGenres
		data.BPMRanges = db.BPMRanges
	}

	if err := s.mail.SendApproval(ctx, data); err != nil {
		s.log.Error("approval email failed", err, logging.BriefID(b.ID))
		return err
	}
	return nil
}

// daypartLines renders the first zone's picks for the email body.
func daypartLines(sd *models.ScheduleData) []mailer.DaypartLine {
	zone := firstZone(sd)
	idx := daypartIndex(sd.Dayparts.ForZone(zone))
	byPart := make(map[string][]string)
	for _, lp := range sd.LikedPlaylists[zone] {
		byPart[lp.Daypart] = append(byPart[lp.Daypart], lp.Name)
	}

	var lines []mailer.DaypartLine
	for _, key := range sd.DaypartOrder {
		names := byPart[key]
		if len(names) == 0 {
			continue
		}
		label := key
		if dp, ok := idx[key]; ok && dp.Label != "" {
			label = dp.Label
		}
		lines = append(lines, mailer.DaypartLine{Label: label, Playlists: names})
	}
	return lines
}

func firstZone(sd *models.ScheduleData) string {
	return sd.Zones()[0]
}

// enrichTimezone resolves the venue's IANA zone in the background. Failures
// just leave the default in place.
func (s *Service) enrichTimezone(venueName, location string) {
	if s.tz == nil || location == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		tz, err := s.tz.Resolve(ctx, location)
		if err != nil || tz == "" {
			return
		}
		if err := s.repo.SetVenueTimezone(ctx, venueName, tz); err != nil {
			s.log.Warn("persist venue timezone", logging.Venue(venueName), logging.Error(err))
		}
	}()
}

func (s *Service) appendEvent(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Append(ctx, e); err != nil {
		s.log.Warn("append pipeline event", logging.Error(err))
	}
}

func mappingIndex(mappings []models.ZoneMapping) map[string]models.ZoneMapping {
	byZone := make(map[string]models.ZoneMapping, len(mappings))
	for _, m := range mappings {
		byZone[m.BriefZoneName] = m
	}
	return byZone
}

// coversAllZones reports whether every logical zone already has a learned
// platform mapping.
func coversAllZones(sd *models.ScheduleData, byZone map[string]models.ZoneMapping) bool {
	if len(byZone) == 0 {
		return false
	}
	for _, zone := range sd.Zones() {
		if _, ok := byZone[zoneKey(zone)]; !ok {
			return false
		}
	}
	return true
}
