package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/commands"
	"github.com/jbdamask/coursebot/pkg/course"
	"github.com/jbdamask/coursebot/pkg/history"
	"github.com/jbdamask/coursebot/pkg/search"
	"github.com/jbdamask/coursebot/pkg/tools"
)

const queryPrefix = "Answer this question about course materials: "

// Answerer produces an answer for a prompt, optionally using tools.
type Answerer interface {
	Generate(ctx context.Context, query, history string, registry *tools.Registry) (string, error)
}

// Analytics summarizes the indexed catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System ties document ingestion, search, generation and sessions together.
type System struct {
	store     *search.Store
	loader    *course.Loader
	generator Answerer
	sessions  *history.Manager
}

func New(store *search.Store, loader *course.Loader, generator Answerer, sessions *history.Manager) *System {
	return &System{
		store:     store,
		loader:    loader,
		generator: generator,
		sessions:  sessions,
	}
}

func (s *System) Sessions() *history.Manager { return s.sessions }

// NewRegistry builds the tools for one query. Each query gets its own
// registry so concurrent queries never see each other's sources.
func (s *System) NewRegistry() (*tools.Registry, error) {
	r := tools.NewRegistry()
	if err := r.Register(tools.NewCourseSearchTool(s.store)); err != nil {
		return nil, err
	}
	if err := r.Register(tools.NewCourseOutlineTool(s.store)); err != nil {
		return nil, err
	}
	return r, nil
}

// Commands builds the chat slash commands backed by this system.
func (s *System) Commands() *commands.Registry {
	r := commands.NewRegistry()
	r.Register(commands.NewCoursesCommand(s.store.CourseTitles))
	r.Register(commands.NewOutlineCommand(tools.NewCourseOutlineTool(s.store)))
	r.Register(commands.NewHelpCommand(r))
	return r
}

// AddCourseDocument loads one document and indexes its catalog entry, then
// its content. Folder loads index both in a single pass instead.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	c, chunks, err := s.loader.LoadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := s.store.AddCourseMetadata(ctx, c); err != nil {
		return nil, 0, fmt.Errorf("failed to index metadata of %s: %w", path, err)
	}
	if err := s.store.AddCourseContent(ctx, chunks); err != nil {
		return nil, 0, fmt.Errorf("failed to index content of %s: %w", path, err)
	}
	return c, len(chunks), nil
}

// AddCourseFolder indexes every supported document in dir, skipping courses
// whose title is already indexed. A missing directory adds nothing.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		log.Info("Clearing existing course data")
		if err := s.store.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("failed to clear store: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("dir", dir).Warn("Course folder does not exist")
			return 0, 0, nil
		}
		return 0, 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	totalCourses, totalChunks := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !course.IsSupported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		c, chunks, err := s.loader.LoadFile(path)
		if err != nil {
			log.WithField("file", path).WithError(err).Warn("Failed to load course document")
			continue
		}
		if s.store.HasCourse(c.Title) {
			log.WithField("course", c.Title).Info("Course already exists, skipping")
			continue
		}
		if err := s.store.AddCourse(ctx, c, chunks); err != nil {
			log.WithField("file", path).WithError(err).Warn("Failed to index course document")
			continue
		}
		totalCourses++
		totalChunks += len(chunks)
		log.WithFields(log.Fields{"course": c.Title, "chunks": len(chunks)}).Info("Added course")
	}
	return totalCourses, totalChunks, nil
}

// Query answers a question and returns the sources the answer cites. A
// non-empty sessionID adds the exchange to that session's history.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	registry, err := s.NewRegistry()
	if err != nil {
		return "", nil, err
	}

	var prior string
	if sessionID != "" {
		prior = s.sessions.History(sessionID)
	}

	answer, err := s.generator.Generate(ctx, queryPrefix+query, prior, registry)
	if err != nil {
		return "", nil, err
	}
	sources := registry.CollectSources()
	registry.ClearSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}
	return answer, sources, nil
}

func (s *System) CourseAnalytics() Analytics {
	titles := s.store.CourseTitles()
	if titles == nil {
		titles = []string{}
	}
	return Analytics{TotalCourses: len(titles), CourseTitles: titles}
}
