package scheduler

import (
	"context"
	"net/http"
	"time"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/pkg/logging"
)

const (
	keepaliveCheckEvery = 5 * time.Minute
	keepalivePingEvery  = 10 * time.Minute
)

// Keepalive pings our own health endpoint while active schedule entries
// exist, so free-tier hosts do not idle the process out between playlist
// switches. It stops pinging as soon as no entry needs the clock.
type Keepalive struct {
	repo    domain.ScheduleRepository
	log     *logging.ComponentLogger
	baseURL string
	http    *http.Client
}

func NewKeepalive(repo domain.ScheduleRepository, logger *logging.Logger, baseURL string) *Keepalive {
	return &Keepalive{
		repo:    repo,
		log:     logger.WithComponent("keepalive"),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Run blocks until the context ends. Every five minutes it re-checks whether
// active entries exist and starts or stops the ten-minute self-ping
// accordingly.
func (k *Keepalive) Run(ctx context.Context) {
	if k.repo == nil {
		return
	}
	check := time.NewTicker(keepaliveCheckEvery)
	defer check.Stop()

	var pingStop context.CancelFunc
	defer func() {
		if pingStop != nil {
			pingStop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-check.C:
			count, err := k.repo.CountActiveEntries(ctx)
			if err != nil {
				k.log.Warn("count active entries", logging.Error(err))
				continue
			}
			switch {
			case count > 0 && pingStop == nil:
				pctx, cancel := context.WithCancel(ctx)
				pingStop = cancel
				go k.pingLoop(pctx)
				k.log.Info("keepalive started", logging.Field{Key: "active_entries", Value: count})
			case count == 0 && pingStop != nil:
				pingStop()
				pingStop = nil
				k.log.Info("keepalive stopped")
			}
		}
	}
}

func (k *Keepalive) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(keepalivePingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.ping(ctx)
		}
	}
}

func (k *Keepalive) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/health", nil)
	if err != nil {
		return
	}
	resp, err := k.http.Do(req)
	if err != nil {
		k.log.Warn("self-ping failed", logging.Error(err))
		return
	}
	resp.Body.Close()
}
