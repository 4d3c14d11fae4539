package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/types"
)

func Handler(rm *Room, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Dev fixture: phones on the LAN connect from arbitrary origins.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))
		out := make(chan []byte, 16)
		if !rm.Post(Connect{ConnID: connID, Outbox: out}) {
			return
		}
		defer rm.Post(Disconnect{ConnID: connID})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, frame)
				cancel()
				if err != nil {
					clog.Debug("write failed", zap.Error(err))
					conn.CloseNow()
					return
				}
			}
			// Room dropped us as a slow consumer or shut down.
			conn.CloseNow()
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			msg, ok := toRoomMsg(data)
			if !ok {
				clog.Debug("ignoring frame", zap.ByteString("frame", data))
				continue
			}
			if !rm.Post(msg) {
				return
			}
		}
	}
}

func toRoomMsg(data []byte) (Msg, bool) {
	env, err := types.DecodeEnvelope(data)
	if err != nil {
		return nil, false
	}
	switch env.Type {
	case types.TypeJoin:
		req, err := types.DecodePayload[types.JoinRequest](env)
		if err != nil || req.UserID == "" {
			return nil, false
		}
		return Join{UserID: req.UserID}, true
	case types.TypeScan:
		req, err := types.DecodePayload[types.ScanRequest](env)
		if err != nil || req.UserID == "" || req.TargetID == "" {
			return nil, false
		}
		return Scan{UserID: req.UserID, TargetID: req.TargetID}, true
	case types.TypeLeave:
		req, err := types.DecodePayload[types.LeaveRequest](env)
		if err != nil || req.UserID == "" {
			return nil, false
		}
		return Leave{UserID: req.UserID}, true
	default:
		return nil, false
	}
}
