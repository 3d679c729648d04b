package course

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	lessonHeader = regexp.MustCompile(`(?i)^lesson\s+(\d+)\s*:\s*(.*)$`)
	headerField  = regexp.MustCompile(`(?i)^(course title|course link|course instructor|lesson link)\s*:\s*(.*)$`)
)

// SupportedExtensions lists the document types the loader understands.
var SupportedExtensions = []string{".txt", ".md", ".html", ".htm"}

// IsSupported reports whether path has a loadable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Normalize converts HTML documents to Markdown text. Other documents are
// returned unchanged.
func Normalize(path, content string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(content)
		if err != nil {
			return "", fmt.Errorf("failed to convert %s to markdown: %w", path, err)
		}
		return markdown, nil
	default:
		return content, nil
	}
}

// Loader reads course documents and splits them into chunks.
type Loader struct {
	chunker *SentenceChunker
}

func NewLoader(chunkSize, chunkOverlap int) *Loader {
	return &Loader{chunker: NewSentenceChunker(chunkSize, chunkOverlap)}
}

// LoadFile reads and parses a single course document.
func (l *Loader) LoadFile(path string) (*Course, []Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	text, err := Normalize(path, string(data))
	if err != nil {
		return nil, nil, err
	}
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.Parse(fallback, text)
}

type lessonText struct {
	lesson Lesson
	body   strings.Builder
}

// Parse reads the course header and lesson sections from text. The header
// lines (Course Title, Course Link, Course Instructor) are optional; a missing
// title falls back to fallbackTitle.
func (l *Loader) Parse(fallbackTitle, text string) (*Course, []Chunk, error) {
	c := &Course{}
	var (
		preamble strings.Builder
		lessons  []*lessonText
		current  *lessonText
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Markdown output from HTML keeps emphasis and heading marks.
		plain := strings.TrimSpace(strings.Trim(line, "#*_ "))

		if m := headerField.FindStringSubmatch(plain); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "course title":
				if c.Title == "" {
					c.Title = value
					continue
				}
			case "course link":
				if c.Link == "" {
					c.Link = value
					continue
				}
			case "course instructor":
				if c.Instructor == "" {
					c.Instructor = value
					continue
				}
			case "lesson link":
				if current != nil && current.lesson.Link == "" {
					current.lesson.Link = value
					continue
				}
			}
		}

		if m := lessonHeader.FindStringSubmatch(plain); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				current = &lessonText{lesson: Lesson{Number: n, Title: strings.TrimSpace(m[2])}}
				lessons = append(lessons, current)
				continue
			}
		}

		if current != nil {
			current.body.WriteString(line)
			current.body.WriteString("\n")
		} else {
			preamble.WriteString(line)
			preamble.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read course document: %w", err)
	}

	if c.Title == "" {
		c.Title = fallbackTitle
	}
	if c.Title == "" {
		return nil, nil, fmt.Errorf("course document has no title")
	}

	var chunks []Chunk
	index := 0
	if len(lessons) == 0 {
		for _, part := range l.chunker.Split(preamble.String()) {
			chunks = append(chunks, Chunk{Content: part, CourseTitle: c.Title, Index: index})
			index++
		}
		return c, chunks, nil
	}

	for _, lt := range lessons {
		c.Lessons = append(c.Lessons, lt.lesson)
		number := lt.lesson.Number
		for i, part := range l.chunker.Split(lt.body.String()) {
			if i == 0 {
				part = fmt.Sprintf("Lesson %d content: %s", number, part)
			}
			n := number
			chunks = append(chunks, Chunk{Content: part, CourseTitle: c.Title, LessonNumber: &n, Index: index})
			index++
		}
	}
	return c, chunks, nil
}
