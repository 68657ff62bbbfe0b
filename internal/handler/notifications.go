package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/guildhall/guildhall/internal/auth"
	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/notify"
	"github.com/guildhall/guildhall/internal/realtime"
	"github.com/guildhall/guildhall/internal/toast"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 1024
)

// NotificationsConfig configures the toast stream.
type NotificationsConfig struct {
	OriginPatterns []string
	ToastTTL       time.Duration
	MaxToasts      int

	// Dismiss frames per second a client may send.
	DismissRate  float64
	DismissBurst int
}

// NotificationsHandler streams a member's toast queue over a websocket.
// Each connection owns one notification channel and one toast queue; both
// are torn down when the connection ends.
type NotificationsHandler struct {
	subscriber realtime.Subscriber
	profiles   notify.ProfileLookup
	cfg        NotificationsConfig
	logger     *slog.Logger
	metrics    metrics.Recorder

	done      chan struct{}
	closeOnce sync.Once
}

// NewNotificationsHandler creates a new NotificationsHandler.
func NewNotificationsHandler(subscriber realtime.Subscriber, profiles notify.ProfileLookup, cfg NotificationsConfig, logger *slog.Logger, recorder metrics.Recorder) *NotificationsHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.DismissRate <= 0 {
		cfg.DismissRate = 10
	}
	if cfg.DismissBurst <= 0 {
		cfg.DismissBurst = 20
	}
	return &NotificationsHandler{
		subscriber: subscriber,
		profiles:   profiles,
		cfg:        cfg,
		logger:     logger.With("component", "handler.notifications"),
		metrics:    recorder,
		done:       make(chan struct{}),
	}
}

// Close ends every open stream. It is safe to call more than once.
func (h *NotificationsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stream handles GET /dashboard/notifications.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}

	// The server's read/write timeouts would otherwise cut the stream.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		// Accept already wrote the response.
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	queue := toast.New(
		toast.WithTTL(h.cfg.ToastTTL),
		toast.WithMaxEntries(h.cfg.MaxToasts),
		toast.WithOnRemove(h.metrics.IncToastRemoved),
	)
	defer queue.Close()

	channel := notify.NewChannel(h.subscriber, h.profiles, queue, h.logger, h.metrics)
	if err := channel.Open(ctx, identity); err != nil {
		h.logger.Error("notification channel open failed",
			"identity_id", identity.ID,
			"error", err,
		)
		_ = conn.Close(websocket.StatusTryAgainLater, "notifications unavailable")
		return
	}
	defer channel.Close()
	subDone := channel.Done()

	if err := h.writeSnapshot(ctx, conn, queue); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	readErr := make(chan error, 1)
	go h.readFrames(ctx, conn, queue, readErr)

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "closing")
			return
		case <-h.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-subDone:
			h.logger.Warn("notification subscription ended", "identity_id", identity.ID)
			_ = conn.Close(websocket.StatusTryAgainLater, "notifications interrupted")
			return
		case err := <-readErr:
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.logger.Debug("websocket read ended", "error", err)
			}
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-ping.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		case <-queue.Changes():
			if err := h.writeSnapshot(ctx, conn, queue); err != nil {
				_ = conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (h *NotificationsHandler) writeSnapshot(ctx context.Context, conn *websocket.Conn, queue *toast.Queue) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, dto.NewToastsFrame(queue.List()))
}

// readFrames applies client dismiss frames until the connection fails.
// Malformed frames and frames beyond the rate limit are dropped.
func (h *NotificationsHandler) readFrames(ctx context.Context, conn *websocket.Conn, queue *toast.Queue, errc chan<- error) {
	limiter := rate.NewLimiter(rate.Limit(h.cfg.DismissRate), h.cfg.DismissBurst)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			errc <- err
			return
		}
		var frame dto.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug("ignoring malformed client frame", "error", err)
			continue
		}
		if frame.Type != dto.FrameDismiss || frame.ID == "" {
			continue
		}
		if !limiter.Allow() {
			h.logger.Debug("dismiss frame rate limited")
			continue
		}
		queue.Dismiss(frame.ID)
	}
}
