package main

import (
	"flag"
	"log"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/config"
	"github.com/janessatran/portal/internal/logger"
	"github.com/janessatran/portal/internal/panel"
)

func init() {
	// GLFW event handling must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	panelURL := flag.String("panel", "", "run the debug panel against this control channel URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	process := "renderer"
	if *panelURL != "" {
		process = "panel"
	} else {
		detachConsole(cfg.Debug)
	}

	zlog, err := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Debug:   cfg.Debug,
		Name:    "portal",
		Process: process,
	})
	if err != nil {
		log.Fatalln("failed to build logger:", err)
	}
	defer zlog.Sync()

	if *panelURL != "" {
		if err := panel.Run(*panelURL, cfg.PanelCollapsed, zlog); err != nil {
			zlog.Error("debug panel failed", zap.Error(err))
			zlog.Sync()
			os.Exit(1)
		}
		return
	}

	if err := runScene(cfg, *configPath, zlog); err != nil {
		zlog.Error("scene failed", zap.Error(err))
		zlog.Sync()
		os.Exit(1)
	}
}
