package handlers

import (
	"net/http"
	"time"
	"webdetect/internal/config"
	"webdetect/internal/dto"
	"webdetect/internal/logger"
	"webdetect/internal/models"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketIdleTimeout closes connections that stop sending frames.
const websocketIdleTimeout = 60 * time.Second

// ConnectionTracker follows open websockets so shutdown can close them.
type ConnectionTracker interface {
	Register(conn *websocket.Conn) bool
	Unregister(conn *websocket.Conn)
}

// DetectWebsocketHandler runs detection on every frame a client sends.
// Each text message is a DetectRequest; each reply is the body POST /detect
// would have returned for it. tracker may be nil.
func DetectWebsocketHandler(detector ObjectDetector, recorder HistoryRecorder, tracker ConnectionTracker,
	cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		if tracker != nil {
			if !tracker.Register(connection) {
				return
			}
			defer tracker.Unregister(connection)
		}

		connection.SetReadLimit(cfg.MaxBodyBytes)
		connection.SetReadDeadline(time.Now().Add(websocketIdleTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(websocketIdleTimeout))
			return nil
		})

		logger.Info("Detection client connected: %s", r.RemoteAddr)

		for {
			messageType, msg, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Detection client %s disconnected: %v", r.RemoteAddr, err)
				} else {
					logger.Info("Detection client disconnected: %s", r.RemoteAddr)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(websocketIdleTimeout))

			if messageType != websocket.TextMessage {
				connection.WriteJSON(dto.ErrorResponse{Error: MsgDetectionFailed})
				continue
			}

			start := time.Now()
			result := runDetection(detector, cfg, logger, msg)
			logger.Info("Websocket frame from %s: %s", r.RemoteAddr, result)

			if err := connection.WriteJSON(result.body); err != nil {
				logger.Error("Error sending detections to %s: %v", r.RemoteAddr, err)
				return
			}
			record(recorder, models.SourceWebsocket, start, result)
		}
	}
}
