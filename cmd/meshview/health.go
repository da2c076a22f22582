package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rickgao/meshview/internal/connection"
	"github.com/rickgao/meshview/internal/scene"
	"github.com/rickgao/meshview/internal/version"
)

// newHealthHandler creates the HTTP handler for health checks and scene debugging.
// /debug/pick is the pointer surface: it toggles the wireframe of a picked renderable.
func newHealthHandler(instanceID string, v *viewer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status     string                 `json:"status"`
			Instance   string                 `json:"instance"`
			Version    version.Info           `json:"version"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Instance:   instanceID,
			Version:    version.Get(),
			Components: make(map[string]interface{}),
		}

		// Disconnected is expected while the source restarts; the manager keeps retrying.
		conn := v.manager.Stats()
		if conn.State != connection.Connected {
			health.Status = "degraded"
		}
		health.Components["connection"] = map[string]interface{}{
			"state":       conn.State.String(),
			"attempts":    conn.Attempts,
			"connects":    conn.Connects,
			"disconnects": conn.Disconnects,
			"messages":    conn.Messages,
		}

		health.Components["router"] = v.router.Stats()
		health.Components["scene"] = v.engine.Stats()

		if v.journal != nil {
			health.Components["journal"] = v.journal.Stats()
		} else {
			health.Components["journal"] = "disabled"
		}

		writeJSON(w, http.StatusOK, health)
	})

	mux.HandleFunc("/debug/scene", func(w http.ResponseWriter, r *http.Request) {
		setup, _ := v.engine.Setup()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"clear_color": setup.ClearColor.Hex(),
			"stats":       v.engine.Stats(),
			"primitives":  v.engine.Snapshot(),
		})
	})

	mux.HandleFunc("/debug/pick", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use POST"})
			return
		}

		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}

		wireframe, err := v.applier.Pick(id)
		if errors.Is(err, scene.ErrUnknownHandle) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Warn("pick failed", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		logger.Debug("picked renderable", "id", id, "wireframe", wireframe)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":        id,
			"wireframe": wireframe,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
