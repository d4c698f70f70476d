package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin filtering is left to the deployment's edge; the endpoint
	// itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
	logger            *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, ts services.TournamentService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tournamentService: ts, logger: logger}
}

// ServeWs handles GET /ws/tournaments/{tournamentID}: it upgrades the
// connection and subscribes it to the tournament's live event room.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.tournamentService.GetDetail(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("websocket upgrade failed",
			slog.String("tournament_id", tournamentID.String()), slog.Any("error", err))
		return
	}

	h.hub.Register(brackets.NewClient(h.hub, conn, tournamentID))
}
