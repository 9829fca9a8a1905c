package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gemblerz/camera-sampler/internal/config"
	"github.com/gemblerz/camera-sampler/internal/log"
	"github.com/gemblerz/camera-sampler/pkg/sampler"
	"github.com/gemblerz/camera-sampler/pkg/schedule"
	"github.com/gemblerz/camera-sampler/pkg/upload"
	"github.com/gemblerz/camera-sampler/pkg/web"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "Path to a YAML config file")
		stream    = flag.String("stream", "", "ID or name of a stream, e.g. sample")
		mode      = flag.String("mode", "", "Run mode: buffered, drained, or new")
		cronjob   = flag.String("cronjob", "", "Time interval expressed in cronjob style")
		uploadURL = flag.String("upload-url", "", "Ingest endpoint captured samples are published to")
		httpAddr  = flag.String("http", "", "Status server listen address, e.g. :8080 (empty disables)")
		workDir   = flag.String("out", "", "Directory the sample file is written to")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	settings := config.Default()
	if *cfgPath != "" {
		var err error
		if settings, err = config.Load(*cfgPath); err != nil {
			fatal("load config", err)
		}
	}

	// Flags override the config file and environment
	if *stream != "" {
		settings.Stream = *stream
	}
	if *mode != "" {
		settings.Mode = *mode
	}
	if *cronjob != "" {
		settings.Cronjob = *cronjob
	}
	if *uploadURL != "" {
		settings.UploadURL = *uploadURL
	}
	if *httpAddr != "" {
		settings.HTTPAddr = *httpAddr
	}
	if *workDir != "" {
		settings.WorkDir = *workDir
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}

	log.Init(settings.LogLevel)
	log.Info("start getting a stream",
		"stream", settings.Stream,
		"mode", settings.Mode,
		"cronjob", settings.Cronjob)

	sched, err := schedule.Parse(settings.Cronjob)
	if err != nil {
		fatal("parse schedule", err)
	}

	snap, release, err := sampler.NewSnapshotter(settings.Mode, settings.Stream)
	if err != nil {
		fatal("open capture source", err)
	}

	var pub upload.Publisher = upload.Discard{}
	if settings.UploadURL != "" {
		pub = upload.NewClient(settings.UploadURL)
	}

	s := sampler.New(snap, sched, pub, settings.Stream, settings.WorkDir)

	var srv *web.Server
	if settings.HTTPAddr != "" {
		srv = web.NewServer(settings.HTTPAddr, web.Status{
			Stream:  settings.Stream,
			Mode:    settings.Mode,
			Cronjob: settings.Cronjob,
		})
		srv.StartAsync()
		s.OnSample = srv.Publish
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	runErr := s.Run(ctx)

	if srv != nil {
		if err := srv.Shutdown(); err != nil {
			log.Error("shut down status server", "error", err)
		}
	}
	if err := release(); err != nil {
		log.Error("release capture source", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fatal("sampling", runErr)
	}
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
