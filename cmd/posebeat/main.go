package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/ayusman/posebeat/internal/app"
	"github.com/ayusman/posebeat/internal/capture"
	"github.com/ayusman/posebeat/internal/config"
	"github.com/ayusman/posebeat/internal/feedback"
	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/pose"
	"github.com/ayusman/posebeat/internal/server"
	"github.com/ayusman/posebeat/internal/server/api"
	"github.com/ayusman/posebeat/internal/store"
	"github.com/ayusman/posebeat/internal/tray"
	"github.com/ayusman/posebeat/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	fmt.Println("PoseBeat - Motion Rhythm Game")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// The terminal renderer owns stdout; keep the log in a file instead
	if cfg.UI.Terminal {
		logFile, err := os.OpenFile(filepath.Join(dataDir, "posebeat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Initialize the store
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	application := app.New(appConfig(cfg, st))
	engine := application.Engine()

	restoreDifficulty(st, engine)
	if err := application.LoadCalibration(); err != nil {
		log.Printf("Failed to load calibration: %v", err)
	}

	// Find web directory
	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:        webDir,
		Store:            st,
		App:              application,
		SnapshotInterval: cfg.Server.SnapshotInterval,
		StreamInterval:   cfg.Server.StreamInterval,
	})
	defer srv.Close()

	sounds, speaker := feedback.New(feedback.Config{
		Enabled:    cfg.Audio.Enabled,
		Volume:     cfg.Audio.Volume,
		SampleRate: cfg.Audio.SampleRate,
	})
	if speaker != nil {
		defer speaker.Close()
	}

	listeners := game.Listeners{srv.Hub(), sounds}

	var tr *tray.Tray
	if cfg.UI.Tray && !cfg.UI.Terminal {
		tr = tray.New()
		listeners = append(listeners, tr)
		application.Session().OnGesture(tr.OnGesture)
	}
	application.SetListener(listeners)

	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start game loop: %v", err)
	}
	defer application.Stop()

	if cfg.Game.AutoStart {
		engine.Start()
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	switch {
	case cfg.UI.Terminal:
		if err := runTerminal(application, sigCh); err != nil {
			log.Printf("Terminal UI failed: %v", err)
		}
	case tr != nil:
		url := localURL(cfg.Server.Addr)
		tr.OnToggle(application.SetEnabled)
		tr.OnOpen(func() {
			if err := openBrowser(url); err != nil {
				log.Printf("Failed to open browser: %v", err)
			}
		})
		go func() {
			<-sigCh
			tr.Quit()
		}()
		tr.Run()
	default:
		<-sigCh
	}

	log.Println("Shutting down")
}

// appConfig translates the file configuration into the app's.
func appConfig(cfg config.Config, st *store.Store) app.Config {
	countdown := cfg.Game.Countdown
	if countdown == 0 {
		countdown = -1 // start immediately
	}

	return app.Config{
		Store:  st,
		Native: cfg.Camera.Native,
		Camera: capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
			Mirror:   cfg.Camera.Mirror,
		},
		CaptureFPS:        cfg.Camera.FPS,
		TickInterval:      cfg.Game.TickInterval,
		CalibrationFrames: cfg.Gesture.CalibrationFrames,
		Pose: pose.Config{
			MinDetectionConf: cfg.Pose.MinDetectionConf,
			MinTrackingConf:  cfg.Pose.MinTrackingConf,
			ModelComplexity:  cfg.Pose.ModelComplexity,
		},
		Gesture: cfg.GestureOptions(),
		Game: game.Config{
			Difficulty:      cfg.Difficulty(),
			CountdownFrom:   countdown,
			CountdownStep:   cfg.Game.CountdownStep,
			HitCleanupDelay: cfg.Game.HitCleanupDelay,
		},
	}
}

// restoreDifficulty applies the difficulty last chosen through the API.
func restoreDifficulty(st *store.Store, engine *game.Engine) {
	v, err := st.Settings().Get(api.SettingDifficulty)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to read difficulty setting: %v", err)
		}
		return
	}
	d, err := game.ParseDifficulty(v)
	if err != nil {
		log.Printf("Ignoring stored difficulty: %v", err)
		return
	}
	engine.SetDifficulty(d)
}

// runTerminal renders the game in the terminal until the user quits or a signal arrives.
func runTerminal(application *app.App, sigCh <-chan os.Signal) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}

	renderer := tui.NewRenderer(screen, application.Engine())
	application.Session().OnGesture(renderer.OnGesture)

	stop := make(chan struct{})
	go func() {
		<-sigCh
		close(stop)
	}()
	renderer.Run(stop)
	return nil
}

// localURL returns a browser URL for a listen address such as ":8080".
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
