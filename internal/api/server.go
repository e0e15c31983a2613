// Package api is the HTTP surface: the SSE chat stream, the recommendation
// and submission endpoints, the approval pages and the tracking pixel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"music-brief-scheduler/internal/approval"
	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/engine"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/recommend"
	"music-brief-scheduler/pkg/database"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
	"music-brief-scheduler/pkg/monitoring"
	"music-brief-scheduler/web"
)

// trackingPixel is a transparent 1x1 GIF.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Server wires handlers to services. Repo and DB are nil in degraded mode.
type Server struct {
	engine   *engine.Engine
	rec      *recommend.LLMFirst
	approval *approval.Service
	repo     domain.Repository
	bus      events.Store
	db       *database.DB
	metrics  *monitoring.Metrics
	log      *logging.ComponentLogger

	chatLimit      *ipLimiter
	recommendLimit *ipLimiter
	submitLimit    *ipLimiter
}

func NewServer(eng *engine.Engine, rec *recommend.LLMFirst, appr *approval.Service,
	repo domain.Repository, bus events.Store, db *database.DB,
	metrics *monitoring.Metrics, logger *logging.Logger) *Server {
	return &Server{
		engine:         eng,
		rec:            rec,
		approval:       appr,
		repo:           repo,
		bus:            bus,
		db:             db,
		metrics:        metrics,
		log:            logger.WithComponent("api"),
		chatLimit:      newIPLimiter(chatPerHour),
		recommendLimit: newIPLimiter(recommendPerHour),
		submitLimit:    newIPLimiter(submitPerHour),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(monitoring.Middleware(s.metrics))

	r.HandleFunc("/api/chat", limit(s.chatLimit, s.handleChat)).Methods(http.MethodPost)
	r.HandleFunc("/api/recommend", limit(s.recommendLimit, s.handleRecommend)).Methods(http.MethodPost)
	r.HandleFunc("/submit", limit(s.submitLimit, s.handleSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/approve/{token}", s.handleApproveGet).Methods(http.MethodGet)
	r.HandleFunc("/approve/{token}", s.handleApprovePost).Methods(http.MethodPost)
	r.HandleFunc("/follow-up/track/{id}", s.handlePixel).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics.json", monitoring.MetricsHandler(s.metrics)).Methods(http.MethodGet)
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req engine.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if err := s.engine.Chat(r.Context(), req, sse); err != nil {
		// Transport error: the client is gone, nothing left to write.
		s.log.Debug("chat stream ended early", logging.Error(err))
	}
	s.metrics.Count("chat_turns")
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var in models.ExtractedBrief
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(in.Vibes) == 0 && in.VenueType == "" {
		writeJSONError(w, http.StatusBadRequest, "venueType or vibes required")
		return
	}

	out := s.rec.Run(r.Context(), in)
	s.metrics.Count("recommendations")
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Honeypot: bots that fill the hidden field get a success and nothing
	// happens.
	if req.Website != "" {
		s.metrics.Count("honeypot_hits")
		writeJSON(w, http.StatusOK, approval.SubmitResult{Success: true})
		return
	}
	if strings.TrimSpace(req.VenueName) == "" {
		writeJSONError(w, http.StatusBadRequest, "venueName is required")
		return
	}
	if len(req.Vibes) == 0 && (req.ExtractedBrief == nil || len(req.ExtractedBrief.Vibes) == 0) {
		writeJSONError(w, http.StatusBadRequest, "at least one vibe is required")
		return
	}

	res, err := s.approval.Submit(r.Context(), req)
	if err != nil {
		s.log.Error("submission failed", err, logging.Venue(req.VenueName))
		writeJSONError(w, http.StatusInternalServerError, "submission failed, please try again")
		return
	}
	s.metrics.Count("submissions")
	writeJSON(w, http.StatusOK, res)
}

// approvalView shapes ReviewData for the page template.
type approvalView struct {
	VenueName     string
	VenueType     string
	Location      string
	BriefID       int64
	PreBuilt      bool
	PlatformZones []platformZoneView
	Zones         []zoneView
}

type platformZoneView struct {
	ID       string
	Name     string
	Location struct{ Name string }
}

type zoneView struct {
	Name      string
	Selected  string
	Playlists []string
}

func (s *Server) handleApproveGet(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	data, err := s.approval.Review(r.Context(), token)
	if err != nil {
		s.renderTokenError(w, err)
		return
	}

	view := approvalView{
		VenueName: data.Brief.VenueName,
		VenueType: data.Brief.VenueType,
		Location:  data.Brief.Location,
		BriefID:   data.Brief.ID,
		PreBuilt:  data.PreBuilt,
	}
	for _, z := range data.PlatformZones {
		pz := platformZoneView{ID: z.ID, Name: z.Name}
		pz.Location.Name = z.Location.Name
		view.PlatformZones = append(view.PlatformZones, pz)
	}
	for _, name := range data.BriefZones {
		zv := zoneView{Name: name, Selected: data.PreSelected[name]}
		for _, lp := range data.ScheduleData.LikedPlaylists[logicalZone(name, data.ScheduleData)] {
			zv.Playlists = append(zv.Playlists, lp.Name)
		}
		view.Zones = append(view.Zones, zv)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, web.ApprovalPage, view); err != nil {
		s.log.Error("render approval page", err)
	}
}

// logicalZone maps the rendered zone name back to the schedule data key,
// where single-zone venues use the empty name.
func logicalZone(rendered string, sd *models.ScheduleData) string {
	if rendered == approval.DefaultZoneName && len(sd.ZoneNames) == 0 {
		return ""
	}
	return rendered
}

func (s *Server) handleApprovePost(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if err := r.ParseForm(); err != nil {
		s.renderMessage(w, http.StatusBadRequest, "Invalid form", "The form could not be read. Please reload the page.")
		return
	}

	selections := make(map[string]string)
	for key, vals := range r.PostForm {
		if !strings.HasPrefix(key, "zone_") || len(vals) == 0 || vals[0] == "" {
			continue
		}
		selections[strings.TrimPrefix(key, "zone_")] = vals[0]
	}

	res, err := s.approval.Approve(r.Context(), token, selections)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrNoZones):
			s.renderMessage(w, http.StatusBadRequest, "No zones selected",
				"Pick a sound zone for at least one space and try again.")
		default:
			s.renderTokenError(w, err)
		}
		return
	}

	msg := "The schedule is approved and our executor will switch playlists at the planned times."
	if res.Scheduled {
		msg = "The schedule is live on the platform and bound to the selected zones."
	}
	s.metrics.Count("approvals")
	s.renderMessage(w, http.StatusOK, "Schedule activated", msg)
}

func (s *Server) renderTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, approval.ErrTokenNotFound):
		s.renderMessage(w, http.StatusNotFound, "Link not found",
			"This approval link does not exist. Check the email for the correct link.")
	case errors.Is(err, approval.ErrTokenExpired):
		s.renderMessage(w, http.StatusGone, "Link expired",
			"This approval link has expired. Ask the team to resend the brief.")
	case errors.Is(err, approval.ErrTokenUsed):
		s.renderMessage(w, http.StatusConflict, "Already approved",
			"This brief has already been approved. Nothing more to do.")
	default:
		s.log.Error("approval failed", err)
		s.renderMessage(w, http.StatusInternalServerError, "Something went wrong",
			"The approval could not be completed. Please try again in a moment.")
	}
}

func (s *Server) renderMessage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := web.Render(w, web.MessagePage, map[string]string{"Title": title, "Message": message}); err != nil {
		s.log.Error("render message page", err)
	}
}

// handlePixel serves the tracking GIF and records the open in the background.
// It never fails: email clients retry broken images and we would rather
// under-count than render a broken pixel.
func (s *Server) handlePixel(w http.ResponseWriter, r *http.Request) {
	trackingID := mux.Vars(r)["id"]
	if trackingID != "" && s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.MarkFollowUpOpened(ctx, trackingID, time.Now()); err != nil {
				s.log.Debug("mark follow-up opened", logging.Error(err))
				return
			}
			if s.bus != nil {
				_ = s.bus.Append(ctx, events.EmailOpened{
					Base:       events.Base{Ts: time.Now()},
					TrackingID: trackingID,
				})
			}
		}()
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Write(trackingPixel)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.db == nil {
		body["mode"] = "degraded"
	} else if err := s.db.Health(r.Context()); err != nil {
		body["status"] = "degraded"
		body["database"] = "unreachable"
	} else {
		body["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
