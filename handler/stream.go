package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"scriptrun/model"
)

// Stream serves the live update channel over a websocket. Each connection
// holds a private cursor into the job's history buffer and polls the shared
// job state on a fixed interval; none of the viewers ever mutate it.
//
// Frames, one text message each, in arrival order:
//
//	LOG <line>
//	STATE <percent>|<status>|<step>
//	DONE rc=<value>
//	ERROR <text>
//
// The step field is not escaped, so a literal "|" inside it is ambiguous on
// the wire. Known limitation, kept for client compatibility.
type Stream struct {
	Logger       *log.Logger
	Registry     *model.Registry
	PollInterval time.Duration

	upgrader websocket.Upgrader
}

// NewStream returns a Stream handler polling at the given interval.
func NewStream(l *log.Logger, reg *model.Registry, poll time.Duration) *Stream {
	return &Stream{
		Logger:       l,
		Registry:     reg,
		PollInterval: poll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers come from anywhere; there is no access control here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/{jobId}.
func (h *Stream) Serve(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Printf("Failed to upgrade websocket: %v\n", err)
		return
	}
	defer conn.Close()

	cursor := 0
	for {
		job, ok := h.Registry.Get(jobID)
		if !ok {
			h.send(conn, "ERROR Job not found")
			return
		}

		lines, newCursor := job.LinesSince(cursor)
		for _, line := range lines {
			if err := h.send(conn, "LOG "+line); err != nil {
				return
			}
		}
		cursor = newCursor

		snap := job.Snapshot()
		msg := fmt.Sprintf("STATE %d|%s|%s", snap.Percent, snap.Status, snap.Step)
		if err := h.send(conn, msg); err != nil {
			return
		}

		if snap.Done {
			rc := "none"
			if snap.ReturnCode != nil {
				rc = strconv.Itoa(*snap.ReturnCode)
			}
			h.send(conn, "DONE rc="+rc)
			return
		}

		time.Sleep(h.PollInterval)
	}
}

func (h *Stream) send(conn *websocket.Conn, msg string) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}
