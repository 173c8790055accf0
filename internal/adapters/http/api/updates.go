package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// BotTokenHeader carries the shared secret of the delivery channel.
const BotTokenHeader = "X-Bot-Token"

// RequestIDHeader echoes the id assigned to each webhook request.
const RequestIDHeader = "X-Request-Id"

const maxBodyBytes = 64 << 10

// updateRequest mirrors the OpenAPI schema for POST /updates.
type updateRequest struct {
	UpdateID      string `json:"update_id"`
	ParticipantID int64  `json:"participant_id"`
	MessageID     int64  `json:"message_id"`
	Text          string `json:"text"`
	Choice        string `json:"choice"`
}

func (u updateRequest) validate() error {
	switch {
	case strings.TrimSpace(u.UpdateID) == "":
		return errors.New("missing update_id")
	case u.ParticipantID == 0:
		return errors.New("missing participant_id")
	case u.MessageID < 0:
		return errors.New("message_id must not be negative")
	case u.Text == "" && u.Choice == "":
		return errors.New("one of text or choice is required")
	case u.Text != "" && u.Choice != "":
		return errors.New("text and choice are mutually exclusive")
	}
	return nil
}

type updateResponse struct {
	Status    string             `json:"status"`
	Duplicate bool               `json:"duplicate"`
	RequestID string             `json:"request_id,omitempty"`
	State     session.Tag        `json:"state,omitempty"`
	Rejected  bool               `json:"rejected,omitempty"`
	Messages  []delivery.Message `json:"messages,omitempty"`
}

// UpdatesHandler handles webhook deliveries.
type UpdatesHandler struct {
	deps Dependencies
	cfg  settings
}

// newUpdatesHandler creates the webhook handler.
func newUpdatesHandler(deps Dependencies, cfg settings) *UpdatesHandler {
	if cfg.log == nil {
		cfg.log = logger.Nop()
	}
	if cfg.requestTimeout <= 0 {
		cfg.requestTimeout = defaultRequestTimeout
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &UpdatesHandler{deps: deps, cfg: cfg}
}

// HandlePostUpdate handles POST /updates requests.
func (h *UpdatesHandler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_update"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rid := uuid.NewString()
	w.Header().Set(RequestIDHeader, rid)

	if !h.authorized(r) {
		metrics.RecordUpdateRejected("unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized", rid, NewKind(op, ErrUnauthorized))
		return
	}

	var req updateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		metrics.RecordUpdateRejected("bad_body")
		writeError(w, http.StatusBadRequest, "bad_request", rid, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		metrics.RecordUpdateRejected("bad_body")
		writeError(w, http.StatusBadRequest, "bad_request", rid, WrapKind(op, ErrBadRequest, err))
		return
	}
	metrics.RecordUpdateReceived()

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.UpdateID) {
		writeJSON(w, http.StatusOK, updateResponse{Status: "duplicate", Duplicate: true, RequestID: rid})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.requestTimeout)
	defer cancel()

	res, err := h.deps.Submit(ctx, model.Update{
		ID:            req.UpdateID,
		ParticipantID: req.ParticipantID,
		MessageID:     req.MessageID,
		Text:          req.Text,
		Choice:        req.Choice,
		ReceivedAt:    h.cfg.now(),
	})
	if err != nil {
		h.fail(r.Context(), w, op, rid, req, err)
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Status:    "processed",
		RequestID: rid,
		State:     res.State,
		Rejected:  res.Rejected,
		Messages:  res.Messages,
	})
}

func (h *UpdatesHandler) authorized(r *http.Request) bool {
	if h.cfg.botToken == "" {
		return true
	}
	got := r.Header.Get(BotTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.botToken)) == 1
}

// fail maps a Submit error to a status and forgets the update id so a
// redelivery is processed again.
func (h *UpdatesHandler) fail(ctx context.Context, w http.ResponseWriter, op, rid string, req updateRequest, err error) {
	h.deps.Unrecord(ctx, req.UpdateID)
	switch {
	case errors.Is(err, conversation.ErrUnknownToken), errors.Is(err, conversation.ErrEmptyUpdate):
		metrics.RecordUpdateRejected("unknown_token")
		writeError(w, http.StatusBadRequest, "unknown_token", rid, WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		metrics.RecordUpdateRejected("backpressure")
		writeError(w, http.StatusTooManyRequests, "backpressure", rid, NewKind(op, ErrBackpressure))
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordUpdateRejected("timeout")
		h.cfg.log.Warn(ctx, "update processing timed out",
			logger.String("update_id", req.UpdateID),
			logger.Int64("participant", req.ParticipantID))
		writeError(w, http.StatusGatewayTimeout, "timeout", rid, NewKind(op, ErrTimeout))
	case errors.Is(err, service.ErrStopped), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", rid, WrapKind(op, ErrServe, err))
	default:
		h.cfg.log.Error(ctx, "update processing failed",
			logger.String("update_id", req.UpdateID),
			logger.Int64("participant", req.ParticipantID),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", rid, WrapKind(op, ErrServe, err))
	}
}
