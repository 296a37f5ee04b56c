// Seekr — client CLI.
//
// Streams the local camera to a seekrd inference endpoint over WebRTC and
// prints the detection results arriving back on the results channel. Launch
// with flags (-server, -device, -fps) or interactively with none.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/seekr-live/seekr/internal/config"
	"github.com/seekr-live/seekr/internal/media"
	"github.com/seekr-live/seekr/internal/results"
	"github.com/seekr-live/seekr/internal/session"
	"github.com/seekr-live/seekr/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serverFlag := flag.String("server", "", "Inference endpoint base URL, e.g. http://localhost:3001")
	deviceFlag := flag.String("device", "", "Capture device ID (empty = default)")
	fpsFlag := flag.Int("fps", 15, "Capture frame rate")
	roomFlag := flag.String("room", "", "Room code for a game session")
	playerFlag := flag.String("player", "", "Player ID within the room")
	gatherFlag := flag.Duration("gatherTimeout", config.DefaultGatherTimeout, "Upper bound on candidate gathering")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Seekr — v%s", version))
	pterm.Println()

	serverURL := *serverFlag
	if serverURL == "" {
		serverURL = askServerURL()
	}
	normalized, err := normalizeServerURL(serverURL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	cfg := config.Client{
		ServerURL:     normalized,
		DeviceID:      *deviceFlag,
		FPS:           *fpsFlag,
		GatherTimeout: *gatherFlag,
	}

	run(ctx, cfg, *roomFlag, *playerFlag)
}

// run owns one full session: setup, result printing, teardown on Ctrl+C.
func run(ctx context.Context, cfg config.Client, roomCode, playerID string) {
	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + cfg.ServerURL)

	sess := session.New(session.Config{
		ServerURL: cfg.ServerURL,
		RoomCode:  roomCode,
		PlayerID:  playerID,
		Media: media.Constraints{
			DeviceID: cfg.DeviceID,
			FPS:      cfg.FPS,
		},
		GatherTimeout: cfg.GatherTimeout,
		OnResult:      printResult,
	})
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		spinner.Fail("connection failed")
		util.LogError("session setup: %v", err)
		os.Exit(1)
	}
	spinner.Success("streaming — results follow")

	util.StartStatsReporter(ctx)

	<-ctx.Done()
	util.LogInfo("shutting down")
}

// printResult renders one detection record. Non-detections are demoted to
// debug so the terminal only shows hits.
func printResult(res results.Result) {
	if res.Label == "none" || res.Label == "" {
		util.LogDebug("no detection (score %.3f, confidence %.3f)", res.Score, res.Confidence)
		return
	}
	util.LogSuccess("detected %s (score %.3f, confidence %.3f)", res.Label, res.Score, res.Confidence)
}

// normalizeServerURL validates and canonicalizes the endpoint base URL.
// Bare host:port input gets an http scheme prepended.
func normalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("http://" + raw)
	}
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL: %s", raw)
	}
	scheme := "http"
	if u.Scheme == "http" || u.Scheme == "https" {
		scheme = u.Scheme
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host), nil
}

// askServerURL prompts until a usable endpoint URL is entered.
func askServerURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Server URL (e.g. http://localhost:3001)").
			Show()

		if _, err := normalizeServerURL(raw); err == nil {
			pterm.Println()
			return strings.TrimSpace(raw)
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}
