package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/notify"
)

// keepAliveInterval spaces the comment lines that keep idle streams open
// through proxies.
const keepAliveInterval = 25 * time.Second

type noticeHandler struct {
	responder Responder
	logger    zerolog.Logger
	notices   *notify.Hub
}

func newNoticeHandler(notices *notify.Hub) noticeHandler {
	logger := log.With().Str("handlerName", "noticeHandler").Logger()

	return noticeHandler{
		responder: NewResponder(logger),
		logger:    logger,
		notices:   notices,
	}
}

// stream sends the user's notices as Server-Sent Events
// @Summary Notification stream
// @Description Each notice is sent as an event named "notice" with a JSON payload
// @Tags Admin
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} notify.Notice "Stream of notices"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /admin/notifications [get]
func (h noticeHandler) stream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := ctxGetUser(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		rc := http.NewResponseController(w)
		// The server write timeout would otherwise cut the stream.
		_ = rc.SetWriteDeadline(time.Time{})

		notices, cancel := h.notices.Subscribe(user.ID)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			h.logger.Error().Err(err).Msg("response does not support streaming")
			return
		}

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
			case n, ok := <-notices:
				if !ok {
					return
				}
				payload, err := json.Marshal(n)
				if err != nil {
					h.logger.Error().Err(err).Msg("encoding notice")
					continue
				}
				if _, err := fmt.Fprintf(w, "event: notice\ndata: %s\n\n", payload); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// noticeText is the line shown to the user for a failed operation.
func noticeText(err error) string {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "Something went wrong"
}
