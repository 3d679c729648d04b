package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/api"
	"github.com/jbdamask/coursebot/pkg/config"
	"github.com/jbdamask/coursebot/pkg/rag"
	"github.com/jbdamask/coursebot/pkg/ui"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "help", "--help", "-h":
		printHelp()
		return
	case "version", "--version", "-v":
		fmt.Printf("coursebot v%s\n", version)
		return
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file (defaults to ./config.yaml or ~/.config/coursebot/config.yaml)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyLogLevel()

	system, err := rag.FromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = runServe(ctx, cfg, system)
	case "chat":
		err = runChat(ctx, cfg, system)
	case "ask":
		err = runAsk(ctx, cfg, system, strings.Join(fs.Args(), " "))
	case "ingest":
		err = runIngest(ctx, system, fs.Args())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, used, err := config.LoadDefault()
	if err == nil && used != "" {
		log.WithField("path", used).Debug("Loaded config")
	}
	return cfg, err
}

func loadDocs(ctx context.Context, cfg *config.Config, system *rag.System) {
	courses, chunks, err := system.AddCourseFolder(ctx, cfg.DocsPath, false)
	if err != nil {
		log.WithField("dir", cfg.DocsPath).WithError(err).Warn("Failed to load course documents")
		return
	}
	log.WithFields(log.Fields{"courses": courses, "chunks": chunks}).Info("Loaded course documents")
}

func runServe(ctx context.Context, cfg *config.Config, system *rag.System) error {
	loadDocs(ctx, cfg, system)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(system),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
	case <-ctx.Done():
	}
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runChat(ctx context.Context, cfg *config.Config, system *rag.System) error {
	// The chat screen owns the terminal; keep logs to warnings.
	if log.GetLevel() > log.WarnLevel {
		log.SetLevel(log.WarnLevel)
	}
	loadDocs(ctx, cfg, system)

	u := ui.New()
	u.DrawBanner(cfg.Anthropic.Model, system.CourseAnalytics().CourseTitles)
	return u.RunChat(ctx, system, system.Commands())
}

func runAsk(ctx context.Context, cfg *config.Config, system *rag.System, question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("usage: coursebot ask \"<question>\"")
	}
	loadDocs(ctx, cfg, system)

	answer, sources, err := system.Query(ctx, question, "")
	if err != nil {
		return err
	}
	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range sources {
			if s.URL != "" {
				fmt.Printf("  - %s (%s)\n", s.Text, s.URL)
			} else {
				fmt.Printf("  - %s\n", s.Text)
			}
		}
	}
	return nil
}

func runIngest(ctx context.Context, system *rag.System, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: coursebot ingest <file-or-dir>...")
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			courses, chunks, err := system.AddCourseFolder(ctx, path, false)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d courses, %d chunks\n", path, courses, chunks)
			continue
		}
		c, chunks, err := system.AddCourseDocument(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %q, %d lessons, %d chunks\n", path, c.Title, len(c.Lessons), chunks)
	}
	analytics := system.CourseAnalytics()
	fmt.Printf("Total courses: %d\n", analytics.TotalCourses)
	return nil
}

func printHelp() {
	fmt.Println(`coursebot - Course materials assistant

Usage:
  coursebot serve [-config path]              Load docs and serve the HTTP API
  coursebot chat [-config path]               Load docs and start an interactive chat
  coursebot ask [-config path] "<question>"   Answer one question
  coursebot ingest [-config path] <path>...   Load course documents and report counts
  coursebot help                              Show this help message
  coursebot version                           Show version

Environment:
  ANTHROPIC_API_KEY   API key for the language model (read from .env as well)

Keys in chat:
  enter    ask the question (or run /help, /courses, /outline <course>)
  ctrl+y   copy the last answer
  ctrl+l   start a new session
  ctrl+c   quit`)
}
