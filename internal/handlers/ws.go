package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vancomm/percolation/internal/percolation"
)

// ConnectWS upgrades to a websocket that accepts newline-separated
// commands ("o <row> <col>", "g") and answers every message with the
// session state, or with an error object when a command fails.
func (h SessionHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.load(w, r)
	if !ok || !h.authorize(w, r, session) {
		return
	}

	id := session.GridSessionID
	log := h.log.WithField("session_id", id)

	c, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("upgrade")
		return
	}
	defer c.Close()
	c.SetReadLimit(h.ws.ReadLimit)

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read")
			}
			break
		}
		if mt != websocket.TextMessage {
			break
		}
		text := strings.TrimSpace(string(message))
		log.Debug("\t> ", text)

		// other clients may have changed the session since the last batch
		session, grid, err := h.reload(r.Context(), id)
		if err != nil {
			log.WithError(err).Error("unable to reload grid session")
			return
		}

		var cmdErr error
		session, grid, err = h.update(r.Context(), session, grid, func(g *percolation.Grid) error {
			cmdErr = nil
			for _, cmd := range byPiece(text, "\n") {
				if cmdErr = executeCommand(g, cmd); cmdErr != nil {
					break
				}
			}
			return nil
		})
		if errors.Is(err, errSessionBusy) {
			cmdErr = err
		} else if err != nil {
			log.WithError(err).Error("unable to update grid session in db")
			return
		}

		c.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
		var reply any
		if cmdErr != nil {
			reply = wrapError(cmdErr)
		} else {
			reply = NewSessionDTO(session, grid)
		}
		if err := c.WriteJSON(reply); err != nil {
			log.WithError(err).Error("write")
			break
		}
		log.Debug("\t< <session data>")
	}
}
