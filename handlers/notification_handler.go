package handlers

import (
	"net/http"
	"strconv"

	"github.com/pongarena/tournament-engine/middleware"
	"github.com/pongarena/tournament-engine/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// ListMineHandler handles GET /notifications.
func (h *NotificationHandler) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to read notifications")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errInvalidQueryParam("limit"))
			return
		}
	}

	notifications, err := h.notificationService.ListInbox(r.Context(), currentUserID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"notifications": notifications}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
