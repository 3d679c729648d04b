package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jbdamask/coursebot/pkg/course"
	"github.com/jbdamask/coursebot/pkg/search"
)

// OutlineFetcher resolves a course by a partial title.
type OutlineFetcher interface {
	CourseOutline(ctx context.Context, title string) (*course.Course, error)
}

// CourseOutlineTool renders a course's lesson list. It produces no sources.
type CourseOutlineTool struct {
	store OutlineFetcher
}

func NewCourseOutlineTool(store OutlineFetcher) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

func (t *CourseOutlineTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get complete course outline with lesson list for a specific course",
		Schema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"course_title": {
					Type:        "string",
					Description: "Course title to get outline for (partial matches work)",
				},
			},
			Required: []string{"course_title"},
		},
	}
}

func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	title, ok := args["course_title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("course_title required")
	}

	c, err := t.store.CourseOutline(ctx, title)
	switch {
	case errors.Is(err, search.ErrCourseNotFound):
		return fmt.Sprintf("No course found matching '%s'", title), nil
	case errors.Is(err, search.ErrIncompleteMetadata):
		return fmt.Sprintf("Course found but missing metadata for '%s'", title), nil
	case err != nil:
		return fmt.Sprintf("Error retrieving course outline: %v", err), nil
	}

	lessons := c.SortedLessons()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", c.Link)
	}
	instructor := c.Instructor
	if instructor == "" {
		instructor = "Unknown Instructor"
	}
	fmt.Fprintf(&sb, "Instructor: %s\n", instructor)
	fmt.Fprintf(&sb, "Total Lessons: %d\n", len(lessons))
	sb.WriteString("\nLesson Outline:")
	if len(lessons) == 0 {
		sb.WriteString("\nNo lessons available")
	}
	for _, l := range lessons {
		lessonTitle := l.Title
		if lessonTitle == "" {
			lessonTitle = "Untitled"
		}
		fmt.Fprintf(&sb, "\nLesson %d: %s", l.Number, lessonTitle)
	}
	return sb.String(), nil
}
