package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jbdamask/coursebot/pkg/course"
	"github.com/jbdamask/coursebot/pkg/search"
)

type fakeStore struct {
	results  search.Results
	links    map[int]string
	linkErr  error
	outline  *course.Course
	outErr   error
	gotQuery string
	gotName  string
	gotLess  *int
}

func (f *fakeStore) Search(_ context.Context, query, courseName string, lessonNumber *int) search.Results {
	f.gotQuery, f.gotName, f.gotLess = query, courseName, lessonNumber
	return f.results
}

func (f *fakeStore) LessonLink(_ context.Context, _ string, n int) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.links[n], nil
}

func (f *fakeStore) CourseOutline(context.Context, string) (*course.Course, error) {
	return f.outline, f.outErr
}

func lesson(n int) *int { return &n }

func TestCourseSearchFormatsHitsAndSources(t *testing.T) {
	store := &fakeStore{
		results: search.Results{Hits: []search.Hit{
			{Content: "Intro text", CourseTitle: "AI Course", LessonNumber: lesson(1)},
			{Content: "Loose text", CourseTitle: "AI Course"},
		}},
		links: map[int]string{1: "https://example.com/l1"},
	}
	tool := NewCourseSearchTool(store)

	out, sources, err := tool.ExecuteWithSources(context.Background(), map[string]interface{}{
		"query":         "intro",
		"course_name":   "AI",
		"lesson_number": float64(1),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := "[AI Course - Lesson 1]\nIntro text\n\n[AI Course]\nLoose text"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if store.gotName != "AI" || store.gotLess == nil || *store.gotLess != 1 {
		t.Errorf("filters not passed through: %q %v", store.gotName, store.gotLess)
	}

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %v", sources)
	}
	if sources[0] != (Source{Text: "AI Course - Lesson 1", URL: "https://example.com/l1"}) {
		t.Errorf("unexpected first source: %+v", sources[0])
	}
	if sources[1] != (Source{Text: "AI Course"}) {
		t.Errorf("unexpected second source: %+v", sources[1])
	}
}

func TestCourseSearchLinkFailureDegrades(t *testing.T) {
	store := &fakeStore{
		results: search.Results{Hits: []search.Hit{{Content: "x", CourseTitle: "C", LessonNumber: lesson(2)}}},
		linkErr: errors.New("catalog down"),
	}
	tool := NewCourseSearchTool(store)
	_, got, err := tool.ExecuteWithSources(context.Background(), map[string]interface{}{"query": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "" {
		t.Errorf("expected unlinked source, got %v", got)
	}
}

func TestCourseSearchEmptyAndError(t *testing.T) {
	ctx := context.Background()

	store := &fakeStore{}
	tool := NewCourseSearchTool(store)
	out, _ := tool.Execute(ctx, map[string]interface{}{"query": "q", "course_name": "MCP", "lesson_number": "3"})
	if out != "No relevant content found in course 'MCP' in lesson 3." {
		t.Errorf("unexpected empty message: %q", out)
	}
	out, _ = tool.Execute(ctx, map[string]interface{}{"query": "q"})
	if out != "No relevant content found." {
		t.Errorf("unexpected unfiltered empty message: %q", out)
	}

	store.results = search.Results{Err: "No course found matching 'Nope'"}
	out, sources, _ := tool.ExecuteWithSources(ctx, map[string]interface{}{"query": "q", "course_name": "Nope"})
	if out != "No course found matching 'Nope'" {
		t.Errorf("expected search error verbatim, got %q", out)
	}
	if len(sources) != 0 {
		t.Error("failed searches must not record sources")
	}
}

func TestCourseSearchRejectsBadArgs(t *testing.T) {
	tool := NewCourseSearchTool(&fakeStore{})
	if _, err := tool.Execute(context.Background(), map[string]interface{}{}); err == nil {
		t.Error("expected error for missing query")
	}
	if _, err := tool.Execute(context.Background(), map[string]interface{}{"query": "q", "lesson_number": "two"}); err == nil {
		t.Error("expected error for non-integer lesson")
	}
}

func TestCourseOutline(t *testing.T) {
	store := &fakeStore{outline: &course.Course{
		Title:      "MCP",
		Link:       "https://example.com/mcp",
		Instructor: "Elie",
		Lessons: []course.Lesson{
			{Number: 2, Title: "Servers"},
			{Number: 1, Title: "Intro"},
		},
	}}
	tool := NewCourseOutlineTool(store)
	out, err := tool.Execute(context.Background(), map[string]interface{}{"course_title": "mcp"})
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Course: MCP",
		"Course Link: https://example.com/mcp",
		"Instructor: Elie",
		"Total Lessons: 2",
		"",
		"Lesson Outline:",
		"Lesson 1: Intro",
		"Lesson 2: Servers",
	}, "\n")
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestCourseOutlineFailures(t *testing.T) {
	ctx := context.Background()
	args := map[string]interface{}{"course_title": "Ghost"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", search.ErrCourseNotFound, "No course found matching 'Ghost'"},
		{"incomplete", search.ErrIncompleteMetadata, "Course found but missing metadata for 'Ghost'"},
		{"other", errors.New("boom"), "Error retrieving course outline: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := NewCourseOutlineTool(&fakeStore{outErr: tt.err})
			out, err := tool.Execute(ctx, args)
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}

	tool := NewCourseOutlineTool(&fakeStore{outline: &course.Course{Title: "Empty"}})
	out, _ := tool.Execute(ctx, args)
	if !strings.HasSuffix(out, "Lesson Outline:\nNo lessons available") {
		t.Errorf("unexpected outline for empty course: %q", out)
	}
}
