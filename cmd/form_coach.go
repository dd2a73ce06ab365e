package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lowaak/form-coach/internal/coach"
	"github.com/lowaak/form-coach/internal/config"
	"github.com/lowaak/form-coach/internal/engine"
	"github.com/lowaak/form-coach/internal/history"
	"github.com/lowaak/form-coach/internal/pose"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	listen := pflag.String("listen", "", "UDP address to receive pose frames on")
	replay := pflag.String("replay", "", "play back a recorded JSONL session instead of listening")
	scripted := pflag.Bool("scripted", false, "synthesize a moving body instead of listening")
	logFile := pflag.String("log-file", "", "application log file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	must("load config", err)

	// Flags override the config file.
	if pflag.CommandLine.Changed("listen") {
		cfg.Source.Listen = *listen
	}
	if pflag.CommandLine.Changed("replay") {
		cfg.Source.ReplayPath = *replay
	}
	if pflag.CommandLine.Changed("scripted") {
		cfg.Source.Scripted = *scripted
	}
	if pflag.CommandLine.Changed("log-file") {
		cfg.Log.File = *logFile
	}

	// The log rotates on disk and tees into the UI log pane. Stdout is
	// owned by tview, so nothing else may write there.
	uiLogChan := make(chan string, 100)
	logWriter := io.MultiWriter(
		&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		},
		coach.NewLogChannelWriter(uiLogChan),
	)
	logger := log.New(logWriter, "", log.LstdFlags)
	logger.Printf("form-coach starting")

	source := buildSource(cfg, logger)
	must("start pose source", source.Start())
	defer source.Stop()

	calc := engine.NewCalculator(cfg.Engine.VisibilityThreshold)
	detector, err := engine.NewDetector(calc, cfg.Thresholds(), logger)
	must("create detector", err)

	store, err := history.NewStore(cfg.Workout.HistoryPath, logger)
	must("open history db", err)
	defer store.Close()

	lifetimeTotals, err := store.TotalsByExercise()
	must("load lifetime totals", err)

	csvLog, err := coach.NewCSVLogger(cfg.Workout.CSVPath, logger)
	must("open csv log", err)

	model := coach.NewSessionModel(logger, uiLogChan)
	loop := coach.NewFrameLoop(model, detector, source, csvLog, store, logger)
	controller := coach.NewController(model, loop, logger)

	app := tview.NewApplication()
	view := coach.NewView(logger, app, model, controller, lifetimeTotals)

	err = view.Run()

	view.Shutdown()
	controller.Shutdown()
	model.Shutdown()
	must("run UI", err)

	logger.Printf("form-coach exiting")
}

// buildSource picks the pose source: scripted wins over replay, replay wins
// over the UDP listener.
func buildSource(cfg *config.Config, logger *log.Logger) pose.Source {
	if cfg.Source.Scripted {
		return pose.NewScriptedSource(pose.ScriptedConfig{}, logger)
	}
	if cfg.Source.ReplayPath != "" {
		return pose.NewReplaySource(cfg.Source.ReplayPath, cfg.Source.ReplayFPS, logger)
	}
	return pose.NewUDPSource(cfg.Source.Listen, logger)
}

func must(action string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to %s: %v\n", action, err)
		os.Exit(1)
	}
}
