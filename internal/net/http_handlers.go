package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"riftward/server/internal/arena"
	"riftward/server/internal/net/ws"
	"riftward/server/logging"
)

// HTTPHandlerConfig carries optional collaborators for the HTTP surface.
type HTTPHandlerConfig struct {
	Logger    *log.Logger
	Telemetry *logging.Metrics
	StaticDir string
}

// NewHTTPHandler wires the arena endpoints: join handshake, websocket
// upgrade, ability catalog, and diagnostics.
func NewHTTPHandler(hub *arena.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		join := hub.Join()
		data, err := json.Marshal(join)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/abilities/catalog", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		payload := struct {
			Abilities any `json:"abilities"`
		}{Abilities: hub.Config().Abilities}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		windowCap, windowLen := hub.ResultWindow()
		tick, staged, pendingCasts := hub.TickInfo()
		var telemetry any
		if cfg.Telemetry != nil {
			telemetry = cfg.Telemetry.TelemetrySnapshot()
		}
		payload := struct {
			Status         string `json:"status"`
			ServerTime     int64  `json:"serverTime"`
			Tick           uint64 `json:"tick"`
			TickRate       int    `json:"tickRate"`
			Casters        any    `json:"casters"`
			ResultWindow   int    `json:"resultWindow"`
			ResultsHeld    int    `json:"resultsHeld"`
			PendingCasts   int    `json:"pendingCasts"`
			StagedCommands int    `json:"stagedCommands"`
			Telemetry      any    `json:"telemetry,omitempty"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			Tick:           tick,
			TickRate:       hub.Config().TickRate,
			Casters:        hub.DiagnosticsSnapshot(),
			ResultWindow:   windowCap,
			ResultsHeld:    windowLen,
			PendingCasts:   pendingCasts,
			StagedCommands: staged,
			Telemetry:      telemetry,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.StaticDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.StaticDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
