// camera-sim publishes synthetic camera frames to a running remoterover
// daemon over the websocket gateway, exercising the classification path
// without camera hardware.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Solid fills landing inside the rover's shipped calibration bands, plus
// gray, which matches none of them.
var palette = map[string]color.RGBA{
	"red":   {R: 200, G: 30, B: 30, A: 255},
	"brown": {R: 139, G: 90, B: 50, A: 255},
	"green": {R: 40, G: 180, B: 60, A: 255},
	"gray":  {R: 128, G: 128, B: 128, A: 255},
}

var cycleOrder = []string{"red", "brown", "green", "gray"}

type frameMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func main() {
	var (
		server    = flag.String("server", "ws://localhost:8080/ws", "Websocket URL of the remoterover gateway")
		interval  = flag.Duration("interval", 2*time.Second, "Interval between published frames")
		colorName = flag.String("color", "cycle", "Frame color: red, brown, green, gray, or cycle")
		width     = flag.Int("width", 320, "Frame width in pixels")
		height    = flag.Int("height", 240, "Frame height in pixels")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[camera-sim] ", log.LstdFlags)

	if *colorName != "cycle" {
		if _, ok := palette[*colorName]; !ok {
			logger.Fatalf("unknown color %q; choose red, brown, green, gray, or cycle", *colorName)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(*server+"?role=camera", nil)
	if err != nil {
		logger.Fatalf("could not connect to %s: %v", *server, err)
	}
	defer conn.Close()
	logger.Printf("connected to %s as camera", *server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Log what the rover makes of our frames.
	go readEvents(ctx, conn, logger)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			logger.Printf("shutting down after %d frames", frames)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			name := *colorName
			if name == "cycle" {
				name = cycleOrder[frames%len(cycleOrder)]
			}
			data, err := renderFrame(*width, *height, palette[name])
			if err != nil {
				logger.Fatalf("could not render frame: %v", err)
			}
			msg := frameMessage{Type: "frame", Data: base64.StdEncoding.EncodeToString(data)}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Fatalf("could not publish frame: %v", err)
			}
			frames++
			logger.Printf("published %s frame #%d (%d bytes)", name, frames, len(data))
		}
	}
}

// readEvents mirrors the rover's broadcasts so a simulator run shows the
// whole round trip on one terminal.
func readEvents(ctx context.Context, conn *websocket.Conn, logger *log.Logger) {
	for {
		var event map[string]interface{}
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil {
				logger.Printf("read error: %v", err)
			}
			return
		}
		switch event["type"] {
		case "detection_update":
			if detected, _ := event["detected"].(bool); detected {
				logger.Printf("rover detected %v (confidence %v)", event["material"], event["confidence"])
			} else {
				logger.Printf("rover detected no material")
			}
		case "mining_result":
			logger.Printf("mining result: %v - %v", event["outcome"], event["message"])
		}
	}
}

func renderFrame(width, height int, c color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
