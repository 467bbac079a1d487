/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the Musicbox project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"musicbox/internal/audioctx"
	"musicbox/internal/catalog"
	"musicbox/internal/clock"
	"musicbox/internal/config"
	"musicbox/internal/controller"
	"musicbox/internal/gesture"
	"musicbox/internal/ipc"
	"musicbox/internal/loader"
	"musicbox/internal/log"
	"musicbox/pkg/spec"

	"github.com/faiface/beep"
)

func main() {
	cfg := config.Load()
	logger := log.Stderr(log.LevelFromString(cfg.LogLevel))
	logger.Infof("%s server V.%s starting", spec.AppName, spec.Version)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		c, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			logger.Errorf("catalog %s: %v", cfg.CatalogPath, err)
			os.Exit(1)
		}
		cat = c
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := audioctx.NewSpeaker(cfg.SampleRate, cfg.BufferLength)
	defer out.Close()

	var (
		ctl *controller.Controller
		srv *ipc.Server
	)
	lib := loader.New(loader.Options{
		SampleRate: beep.SampleRate(cfg.SampleRate),
		AssetDir:   cfg.AssetDir,
		Passphrase: cfg.Passphrase,
		Log:        logger,
		OnChange: func(id string, r loader.Readiness) {
			ctl.TrackChanged(id, r)
		},
	})
	ctl = controller.New(controller.Options{
		Catalog:   cat,
		Library:   lib,
		Output:    out,
		Clock:     clock.Real{},
		ClickGain: cfg.ClickGain,
		Cadence:   cfg.ClickCadence,
		Log:       logger,
		OnEvent:   func(ev controller.Event) { srv.Broadcast(ev) },
	})
	srv = ipc.NewServer(ipc.Options{Controller: ctl, Analyses: lib, Log: logger})

	if r := cfg.KeyRect; r != nil {
		ctl.Key().Mount(gesture.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H})
	}

	lib.LoadAll(ctx, cat)

	logger.Infof("listening on %s", cfg.SocketPath)
	if err := srv.ListenAndServe(ctx, cfg.SocketPath); err != nil {
		logger.Errorf("ipc: %v", err)
	}
	ctl.Close()
	logger.Infof("bye")
}
