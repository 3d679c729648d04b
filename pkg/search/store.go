package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/course"
	"github.com/jbdamask/coursebot/pkg/embedding"
	"github.com/jbdamask/coursebot/pkg/vectorstore"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrIncompleteMetadata = errors.New("course metadata incomplete")
)

const (
	keyCourseTitle  = "course_title"
	keyLessonNumber = "lesson_number"
	keyChunkIndex   = "chunk_index"
	keyContent      = "content"
	keyTitle        = "title"
	keyInstructor   = "instructor"
	keyCourseLink   = "course_link"
	keyLessonsJSON  = "lessons_json"
)

// Hit is one matched chunk.
type Hit struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Distance     float64
}

// Results is the outcome of a unified search. Err and an empty Hits slice
// are distinct states: Err means the search could not run as asked.
type Results struct {
	Hits []Hit
	Err  string
}

func (r Results) IsEmpty() bool { return len(r.Hits) == 0 }

// Store indexes course metadata (the catalog) and course content in two
// vector collections and answers filtered semantic searches over them.
type Store struct {
	embedder   embedding.Embedder
	catalog    vectorstore.Storage
	content    vectorstore.Storage
	maxResults int

	mu         sync.RWMutex
	courses    map[string]*course.Course
	titles     []string
	chunks     []course.Chunk
	dimension  int
	pendingFit bool
}

func NewStore(embedder embedding.Embedder, catalog, content vectorstore.Storage, maxResults int) *Store {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Store{
		embedder:   embedder,
		catalog:    catalog,
		content:    content,
		maxResults: maxResults,
		courses:    make(map[string]*course.Course),
	}
}

// AddCourse indexes a course's metadata and its chunks in one pass.
func (s *Store) AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error {
	if c == nil || c.Title == "" {
		return errors.New("course must have a title")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCourse(c)
	s.chunks = append(s.chunks, chunks...)
	return s.index(ctx, []*course.Course{c}, chunks)
}

// AddCourseMetadata indexes a course in the catalog.
func (s *Store) AddCourseMetadata(ctx context.Context, c *course.Course) error {
	return s.AddCourse(ctx, c, nil)
}

// AddCourseContent indexes chunks of already known or unknown courses.
func (s *Store) AddCourseContent(ctx context.Context, chunks []course.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return s.index(ctx, nil, chunks)
}

func (s *Store) putCourse(c *course.Course) {
	cp := *c
	cp.Lessons = append([]course.Lesson(nil), c.Lessons...)
	if _, exists := s.courses[c.Title]; !exists {
		s.titles = append(s.titles, c.Title)
	}
	s.courses[c.Title] = &cp
}

// index embeds and upserts the given items. Embedders that fit on the corpus
// change their vector space on every Prepare, so the whole index is rebuilt.
// Callers hold s.mu.
func (s *Store) index(ctx context.Context, courses []*course.Course, chunks []course.Chunk) error {
	if fitter, ok := s.embedder.(embedding.CorpusFitter); ok {
		corpus := make([]string, 0, len(s.titles)+len(s.chunks))
		corpus = append(corpus, s.titles...)
		for _, ch := range s.chunks {
			corpus = append(corpus, ch.Content)
		}
		if err := fitter.Prepare(corpus); err != nil {
			return fmt.Errorf("failed to prepare embedder: %w", err)
		}
		s.dimension = 0
		courses = courses[:0]
		for _, title := range s.titles {
			courses = append(courses, s.courses[title])
		}
		chunks = s.chunks
	}

	catalogPoints := make([]vectorstore.Point, 0, len(courses))
	for _, c := range courses {
		vec, err := s.embedder.Embed(ctx, c.Title)
		if err != nil {
			return fmt.Errorf("failed to embed course title %q: %w", c.Title, err)
		}
		catalogPoints = append(catalogPoints, vectorstore.Point{ID: c.Title, Vector: vec, Payload: catalogPayload(c)})
	}
	contentPoints := make([]vectorstore.Point, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %q: %w", ch.Index, ch.CourseTitle, err)
		}
		contentPoints = append(contentPoints, vectorstore.Point{
			ID:      fmt.Sprintf("%s:%d", ch.CourseTitle, ch.Index),
			Vector:  vec,
			Payload: contentPayload(ch),
		})
	}

	if s.dimension == 0 {
		dim := 0
		switch {
		case len(catalogPoints) > 0:
			dim = len(catalogPoints[0].Vector)
		case len(contentPoints) > 0:
			dim = len(contentPoints[0].Vector)
		default:
			return nil
		}
		if err := s.catalog.Init(ctx, dim); err != nil {
			return fmt.Errorf("failed to init catalog collection: %w", err)
		}
		if err := s.content.Init(ctx, dim); err != nil {
			return fmt.Errorf("failed to init content collection: %w", err)
		}
		s.dimension = dim
	}

	if err := s.catalog.Upsert(ctx, catalogPoints); err != nil {
		return fmt.Errorf("failed to upsert catalog: %w", err)
	}
	if err := s.content.Upsert(ctx, contentPoints); err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	log.WithFields(log.Fields{
		"embedder": s.embedder.Name(),
		"courses":  len(catalogPoints),
		"chunks":   len(contentPoints),
	}).Debug("Indexed course data")
	return nil
}

func catalogPayload(c *course.Course) map[string]any {
	lessons, _ := json.Marshal(c.Lessons)
	return map[string]any{
		keyTitle:       c.Title,
		keyInstructor:  c.Instructor,
		keyCourseLink:  c.Link,
		keyLessonsJSON: string(lessons),
	}
}

func contentPayload(ch course.Chunk) map[string]any {
	p := map[string]any{
		keyCourseTitle: ch.CourseTitle,
		keyChunkIndex:  ch.Index,
		keyContent:     ch.Content,
	}
	if ch.LessonNumber != nil {
		p[keyLessonNumber] = *ch.LessonNumber
	}
	return p
}

// ResolveCourseName maps a partial course name to a stored title: exact
// (case-insensitive) match first, then the shortest title containing the
// name, then the closest title in the catalog embedding space.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	s.mu.RLock()
	titles := append([]string(nil), s.titles...)
	dimension := s.dimension
	s.mu.RUnlock()

	lower := strings.ToLower(name)
	for _, t := range titles {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	best := ""
	for _, t := range titles {
		if strings.Contains(strings.ToLower(t), lower) && (best == "" || len(t) < len(best)) {
			best = t
		}
	}
	if best != "" {
		return best, true
	}
	if dimension == 0 {
		return "", false
	}

	vec, err := s.embedder.Embed(ctx, name)
	if err != nil || embedding.IsZero(vec) {
		return "", false
	}
	matches, err := s.catalog.Search(ctx, vec, 1, vectorstore.Filter{})
	if err != nil {
		log.WithError(err).Warn("Catalog search failed during course resolution")
		return "", false
	}
	if len(matches) == 0 || matches[0].Score <= 0 {
		return "", false
	}
	title, ok := matches[0].Payload[keyTitle].(string)
	return title, ok && title != ""
}

// Search runs the unified content search. courseName is resolved fuzzily;
// an empty courseName and a nil lessonNumber mean no filter.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) Results {
	filter := vectorstore.Filter{Must: map[string]any{}}
	if courseName != "" {
		title, ok := s.ResolveCourseName(ctx, courseName)
		if !ok {
			return Results{Err: fmt.Sprintf("No course found matching '%s'", courseName)}
		}
		filter.Must[keyCourseTitle] = title
	}
	if lessonNumber != nil {
		filter.Must[keyLessonNumber] = *lessonNumber
	}

	s.mu.RLock()
	dimension := s.dimension
	s.mu.RUnlock()
	if dimension == 0 {
		return Results{}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Results{Err: fmt.Sprintf("Search error: %v", err)}
	}
	if embedding.IsZero(vec) {
		return Results{Hits: s.lexicalSearch(query, filter)}
	}
	matches, err := s.content.Search(ctx, vec, s.maxResults, filter)
	if err != nil {
		return Results{Err: fmt.Sprintf("Search error: %v", err)}
	}
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, hitFromPayload(m.Payload, 1-m.Score))
	}
	return Results{Hits: hits}
}

func hitFromPayload(p map[string]any, distance float64) Hit {
	h := Hit{Distance: distance}
	h.Content, _ = p[keyContent].(string)
	h.CourseTitle, _ = p[keyCourseTitle].(string)
	if n, ok := intValue(p[keyChunkIndex]); ok {
		h.ChunkIndex = n
	}
	if n, ok := intValue(p[keyLessonNumber]); ok {
		h.LessonNumber = &n
	}
	return h
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// lexicalSearch ranks chunks by token overlap (Ochiai coefficient). It is
// used when the query has no terms in the embedder's vocabulary. Chunks
// sharing no token with the query are not hits.
func (s *Store) lexicalSearch(query string, filter vectorstore.Filter) []Hit {
	qset := toTokenSet(query)
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		hit   Hit
		score float64
	}
	var candidates []scored
	for _, ch := range s.chunks {
		payload := contentPayload(ch)
		if !filter.Matches(payload) {
			continue
		}
		score := overlapOchiai(qset, ch.Content)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{hit: hitFromPayload(payload, 1-score), score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > s.maxResults {
		candidates = candidates[:s.maxResults]
	}
	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, c.hit)
	}
	return hits
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	// |A∩B| / sqrt(|A||B|)
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}

// CourseOutline returns the metadata of the course best matching title.
func (s *Store) CourseOutline(ctx context.Context, title string) (*course.Course, error) {
	resolved, ok := s.ResolveCourseName(ctx, title)
	if !ok {
		return nil, ErrCourseNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[resolved]
	if !ok || c == nil {
		return nil, ErrIncompleteMetadata
	}
	cp := *c
	cp.Lessons = append([]course.Lesson(nil), c.Lessons...)
	return &cp, nil
}

// LessonLink returns the link of a lesson of the course with exactly this
// title. A lesson without a link yields an empty string.
func (s *Store) LessonLink(_ context.Context, courseTitle string, lessonNumber int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[courseTitle]
	if !ok {
		return "", ErrCourseNotFound
	}
	lesson, ok := c.Lesson(lessonNumber)
	if !ok {
		return "", nil
	}
	return lesson.Link, nil
}

// HasCourse reports whether a course with exactly this title is indexed.
func (s *Store) HasCourse(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[title]
	return ok
}

func (s *Store) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.titles...)
}

func (s *Store) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.titles)
}

// Clear removes every course and chunk from the store and its collections.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.catalog.Clear(ctx); err != nil {
		return err
	}
	if err := s.content.Clear(ctx); err != nil {
		return err
	}
	s.courses = make(map[string]*course.Course)
	s.titles = nil
	s.chunks = nil
	s.dimension = 0
	return nil
}
