package course

import "sort"

// Lesson is one numbered lesson of a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the catalog entry for a course. Title is the canonical key.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson returns the lesson with the given number.
func (c *Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// SortedLessons returns a copy of the lessons in ascending number order.
func (c *Course) SortedLessons() []Lesson {
	out := append([]Lesson(nil), c.Lessons...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Chunk is an indexed piece of course text. LessonNumber is nil for text that
// does not belong to a lesson.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}
