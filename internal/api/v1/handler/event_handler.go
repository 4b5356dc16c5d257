package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"relay/internal/api/v1/dto"
	"relay/internal/forwarder"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// EventForwarder is the part of forwarder.Forwarder the push endpoint uses.
type EventForwarder interface {
	Handle(ctx context.Context, ev forwarder.Event, done forwarder.Callback)
}

type EventHandler struct {
	forwarder EventForwarder
	logger    zerolog.Logger
}

func NewEventHandler(f EventForwarder, l zerolog.Logger) *EventHandler {
	return &EventHandler{forwarder: f, logger: l}
}

// RegisterRoutes mounts the Pub/Sub push endpoint behind the push auth middleware.
func (h *EventHandler) RegisterRoutes(r chi.Router, pubsubAuthMw func(http.Handler) http.Handler) {
	r.With(pubsubAuthMw).Post("/events", h.receiveEvent)
}

func (h *EventHandler) receiveEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Invalid Pub/Sub push envelope")
		writeJSON(w, http.StatusOK, dto.EventResponse{Error: "Invalid JSON payload: " + err.Error(), ErrorKind: forwarder.Classify(forwarder.ErrParse)})
		return
	}

	log := h.logger.With().
		Str("messageId", req.Message.MessageID).
		Str("subscription", req.Subscription).
		Logger()

	ev, err := forwarder.NewEventFromBase64(req.Message.MessageID, req.Message.Data, req.Message.Attributes)
	if err != nil {
		log.Error().Err(err).Str("error_kind", forwarder.Classify(err)).Msg("Failed to decode Pub/Sub message data")
		writeJSON(w, http.StatusOK, failureResponse(err))
		return
	}

	h.forwarder.Handle(r.Context(), ev, func(err error, message string) {
		// Failures still return 200: any other status is a nack and Pub/Sub
		// would redeliver an event that is only ever attempted once.
		if err != nil {
			log.Warn().Str("error_kind", forwarder.Classify(err)).Err(err).Msg("Dropping event after failed forward")
			writeJSON(w, http.StatusOK, failureResponse(err))
			return
		}
		writeJSON(w, http.StatusOK, dto.EventResponse{Message: message})
	})
}

func failureResponse(err error) dto.EventResponse {
	return dto.EventResponse{Error: err.Error(), ErrorKind: forwarder.Classify(err)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
