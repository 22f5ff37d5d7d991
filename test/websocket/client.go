package main

import (
	"flag"
	"os"
	"os/signal"
	"time"

	"reelsync/encoding"
	"reelsync/internal/biz"
	"reelsync/internal/server"

	"github.com/gorilla/websocket"
	"github.com/yola1107/kratos/v2/log"
)

var (
	endpoint string
	spins    int
	dismiss  time.Duration
)

func init() {
	flag.StringVar(&endpoint, "endpoint", "ws://127.0.0.1:8000/ws", "hub endpoint")
	flag.IntVar(&spins, "spins", 0, "spins to request once connected")
	flag.DurationVar(&dismiss, "dismiss", time.Second, "dismiss popups after this delay, 0 to leave them open")
}

// a terminal viewer: prints every presentation command and plays the player
func main() {
	flag.Parse()
	logger := log.NewHelper(log.With(log.NewStdLogger(os.Stdout), "ts", log.DefaultTimestamp))

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		logger.Fatalf("dial %s: %v", endpoint, err)
	}
	defer conn.Close()
	logger.Infof("connected to %s", endpoint)

	out := make(chan server.Input, 16)
	done := make(chan struct{})
	remaining := spins
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Infof("closed: %v", err)
				return
			}
			var f server.Frame
			if err := encoding.Unmarshal(msg, &f); err != nil {
				logger.Warnf("bad frame %s: %v", msg, err)
				continue
			}
			logger.Infow("op", f.Op, "data", encoding.ToJson(f.Data))
			data, _ := f.Data.(map[string]any)
			// the next spin goes out whenever the controls come back
			if f.Op == "controls" && data["enabled"] == true && remaining > 0 {
				remaining--
				out <- server.Input{Op: "spin"}
				continue
			}
			if f.Op != "popup" || dismiss <= 0 {
				continue
			}
			kind, _ := data["kind"].(string)
			if !biz.PopupKind(kind).Blocking() {
				continue
			}
			time.AfterFunc(dismiss, func() { out <- server.Input{Op: "dismiss", Kind: biz.PopupKind(kind)} })
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	for {
		select {
		case in := <-out:
			if err := conn.WriteJSON(in); err != nil {
				logger.Errorf("write: %v", err)
				return
			}
		case <-done:
			return
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
