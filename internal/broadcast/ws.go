package broadcast

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var wsUp = &websocket.Upgrader{
	ReadBufferSize: 64 * 1024,
	CheckOrigin:    func(r *http.Request) bool { return true },
}

// wsHandler broadcasts every binary websocket message as one audio
// clip. A text reply reports the result, then the next clip may follow.
func wsHandler(w http.ResponseWriter, r *http.Request) {
	if broadcaster == nil {
		http.Error(w, "broadcast not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUp.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[broadcast] ws upgrade")
		return
	}
	defer conn.Close()

	log.Debug().Str("addr", r.RemoteAddr).Msg("[broadcast] ws connect")

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		reply := "OK"
		if err = broadcaster.Send(data); err != nil {
			log.Error().Err(err).Msg("[broadcast] ws send")
			reply = err.Error()
		}

		if err = conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return
		}
	}
}
