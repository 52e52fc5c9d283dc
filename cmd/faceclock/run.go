package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"faceclock/pkg/camera"
	"faceclock/pkg/clock"
	"faceclock/pkg/config"
	"faceclock/pkg/credstore"
	"faceclock/pkg/faceapi"
	"faceclock/pkg/gallery"
	"faceclock/pkg/hrapi"
	"faceclock/pkg/logging"
	"faceclock/pkg/match"
	"faceclock/pkg/presence"
	"faceclock/pkg/server"
	"faceclock/pkg/session"
)

func cmdRun(args []string) error {
	log := logging.Component("agent")

	hr := hrapi.NewClient(cfg.Services.HRBaseURL, cfg.Services.Timeout())
	if err := attachToken(hr); err != nil {
		return err
	}

	cache := gallery.NewCache(hr)
	loadCtx, cancelLoad := context.WithCancel(context.Background())
	defer cancelLoad()
	go func() {
		if err := cache.Load(loadCtx); err != nil {
			log.WithError(err).Error("gallery load failed, checks will be rejected until restart")
		}
	}()

	embedder := faceapi.NewEmbeddingClient(cfg.Services.EmbeddingURL, cfg.Services.Timeout())
	matcher := match.New(newComparer(cfg), cfg.Matcher.ParallelCompares)

	cam := camera.New(camera.FileDevice{Path: cfg.Camera.Device})
	monitor := presence.NewMonitor(
		presence.NewRandomSource(cfg.Presence.DetectionBias),
		cam,
		clock.New(),
		cfg.Presence.Debounce(),
	)
	defer monitor.Stop()

	ctrl := session.NewController(session.Deps{
		Camera:     cam,
		Gallery:    cache,
		Embedder:   embedder,
		Matcher:    matcher,
		Recorder:   hr,
		Locator:    newLocator(cfg),
		GeoBudget:  cfg.Geo.Budget(),
		ResetAfter: cfg.Notify.ResetDelay(),
	})
	defer ctrl.Close()

	sched := gocron.NewScheduler(time.Local)
	if _, err := sched.Every(cfg.Presence.SampleInterval).Seconds().Do(monitor.Tick); err != nil {
		return fmt.Errorf("scheduling presence sampling: %w", err)
	}
	if _, err := sched.Every(1).Day().At("23:55").Do(func() { logDailySummary(ctrl) }); err != nil {
		return fmt.Errorf("scheduling daily summary: %w", err)
	}
	sched.StartAsync()
	defer sched.Stop()

	srv := server.New(cfg.Server, ctrl, monitor, cam)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.WithFields(logging.Fields{
		"listen":          cfg.Server.Listen,
		"hr":              cfg.Services.HRBaseURL,
		"sample_interval": cfg.Presence.SampleInterval,
	}).Info("agent running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.WithFields(logging.Fields{"signal": s.String()}).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("kiosk API server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown incomplete")
	}
	return nil
}

// attachToken loads the stored platform token onto the client. A missing
// token is allowed: the gallery fetch will fail and the operator is told
// to log in.
func attachToken(hr *hrapi.Client) error {
	store, err := credstore.New(cfg.Auth.TokenPath, cfg.Auth.EncryptToken)
	if err != nil {
		return fmt.Errorf("opening token store: %w", err)
	}

	token, err := store.Load()
	if err != nil {
		if err == credstore.ErrNotFound {
			logging.Warnf("No stored token. Run 'faceclock login <email>' first")
			return nil
		}
		return fmt.Errorf("loading token: %w", err)
	}

	hr.SetToken(token)
	if claims, err := hrapi.DecodeClaims(token); err == nil {
		if id, err := claims.Identity(); err == nil {
			logging.Component("agent").WithFields(logging.Fields{"identity": id}).Debug("token attached")
		}
	}
	return nil
}

func newComparer(cfg *config.Config) faceapi.Comparer {
	if cfg.Services.CompareURL == "" {
		return faceapi.LocalComparer{MinSimilarity: cfg.Matcher.MinSimilarity}
	}
	return faceapi.NewHTTPComparer(cfg.Services.CompareURL, cfg.Services.Timeout())
}

func newLocator(cfg *config.Config) session.Locator {
	if cfg.Geo.Enabled && (cfg.Geo.Lat != 0 || cfg.Geo.Lng != 0) {
		return session.StaticLocator{Lat: cfg.Geo.Lat, Lng: cfg.Geo.Lng}
	}
	return session.NoLocator{}
}

func logDailySummary(ctrl *session.Controller) {
	events := ctrl.Events()
	ins, outs := 0, 0
	for _, e := range events {
		if e.Kind == hrapi.CheckOut {
			outs++
		} else {
			ins++
		}
	}
	logging.Component("agent").WithFields(logging.Fields{
		"check_ins":  ins,
		"check_outs": outs,
	}).Info("daily attendance summary")
}
