// Seekrd — inference endpoint and game server.
//
// Serves the offer/answer exchange on /offer, the game WebSocket on /ws, and
// a health probe on /healthz. Room state lives in memory by default; set
// -redis (or REDIS_URL) to share it across workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/seekr-live/seekr/internal/config"
	"github.com/seekr-live/seekr/internal/detect"
	"github.com/seekr-live/seekr/internal/game"
	"github.com/seekr-live/seekr/internal/server"
	"github.com/seekr-live/seekr/internal/store"
	"github.com/seekr-live/seekr/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addrFlag := flag.String("addr", ":3001", "Listen address")
	redisFlag := flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL for shared room state (empty = in-memory)")
	scriptedFlag := flag.Int("scripted", 0, "Use the scripted detector, firing after N frames (0 = null detector)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Seekrd — v%s", version))
	pterm.Println()

	cfg := config.Server{Addr: *addrFlag, RedisURL: *redisFlag}

	roomStore, cleanup, err := openStore(ctx, cfg.RedisURL)
	if err != nil {
		util.LogError("open store: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	detector := pickDetector(*scriptedFlag)
	hub := game.NewHub(roomStore, detector)

	srv := server.New(server.Config{Detector: detector}, hub)
	port, err := srv.Start(cfg.Addr)
	if err != nil {
		util.LogError("start server: %v", err)
		os.Exit(1)
	}
	defer srv.Close()

	util.LogSuccess("listening on port %d (/offer, /ws, /healthz)", port)

	<-ctx.Done()
	util.LogInfo("shutting down")
}

// openStore picks the room-state backend. Redis failures are fatal rather
// than silently degrading to memory: a half-shared deployment is worse than
// no deployment.
func openStore(ctx context.Context, redisURL string) (game.Store, func(), error) {
	if redisURL == "" {
		util.LogInfo("room state: in-memory")
		return store.NewMemory(), func() {}, nil
	}

	rs, err := store.NewRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	util.LogInfo("room state: redis at %s", redisURL)
	return rs, func() { rs.Close() }, nil
}

func pickDetector(scriptedFrames int) detect.Detector {
	if scriptedFrames > 0 {
		util.LogInfo("detector: scripted, firing after %d frames", scriptedFrames)
		return &detect.Scripted{FramesToDetect: scriptedFrames}
	}
	util.LogInfo("detector: null (no inference backend attached)")
	return detect.Null{}
}
