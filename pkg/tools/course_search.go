package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/search"
)

// ContentSearcher is the part of the search store the search tool needs.
type ContentSearcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) search.Results
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// CourseSearchTool searches indexed course content. Each successful search
// cites one source per hit.
type CourseSearchTool struct {
	store ContentSearcher
}

func NewCourseSearchTool(store ContentSearcher) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

func (t *CourseSearchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Schema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	out, _, err := t.ExecuteWithSources(ctx, args)
	return out, err
}

// ExecuteWithSources searches and returns the formatted hits with their
// sources. Error and empty outcomes carry no sources.
func (t *CourseSearchTool) ExecuteWithSources(ctx context.Context, args map[string]interface{}) (string, []Source, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", nil, fmt.Errorf("query required")
	}
	courseName, _ := args["course_name"].(string)
	lessonNumber, err := optionalInt(args, "lesson_number")
	if err != nil {
		return "", nil, err
	}

	results := t.store.Search(ctx, query, courseName, lessonNumber)
	if results.Err != "" {
		return results.Err, nil, nil
	}
	if results.IsEmpty() {
		var filters strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filters, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filters, " in lesson %d", *lessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filters.String()), nil, nil
	}

	formatted := make([]string, 0, len(results.Hits))
	sources := make([]Source, 0, len(results.Hits))
	for _, hit := range results.Hits {
		label := hit.CourseTitle
		if hit.LessonNumber != nil {
			label = fmt.Sprintf("%s - Lesson %d", hit.CourseTitle, *hit.LessonNumber)
		}
		formatted = append(formatted, fmt.Sprintf("[%s]\n%s", label, hit.Content))
		sources = append(sources, Source{Text: label, URL: t.lessonLink(ctx, hit)})
	}

	return strings.Join(formatted, "\n\n"), sources, nil
}

// lessonLink is best effort: any lookup failure leaves the source unlinked.
func (t *CourseSearchTool) lessonLink(ctx context.Context, hit search.Hit) string {
	if hit.LessonNumber == nil {
		return ""
	}
	link, err := t.store.LessonLink(ctx, hit.CourseTitle, *hit.LessonNumber)
	if err != nil {
		log.WithFields(log.Fields{
			"course": hit.CourseTitle,
			"lesson": *hit.LessonNumber,
		}).WithError(err).Debug("Lesson link lookup failed")
		return ""
	}
	return link
}

// optionalInt reads an integer argument. JSON numbers arrive as float64;
// some models send numbers as strings.
func optionalInt(args map[string]interface{}, key string) (*int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var n int
	switch v := raw.(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %q", key, v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &n, nil
}
