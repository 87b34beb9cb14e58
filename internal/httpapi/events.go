package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mop.org/internal/auth"
)

const eventKeepAlive = 25 * time.Second

// caseEvents streams case lifecycle events as Server-Sent Events.
func (a *API) caseEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.events == nil {
		unavailable(w, r, "event stream")
		return
	}
	if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch := a.events.Subscribe(ctx)

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": stream started\n\n")
	if err := rc.Flush(); err != nil {
		a.logger.WarnContext(ctx, "event stream not flushable", "error", err)
		return
	}

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
