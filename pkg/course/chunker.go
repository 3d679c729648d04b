package course

import (
	"regexp"
	"strings"
)

// SentenceChunker splits text into sentence-aligned chunks of at most
// chunkSize characters. Consecutive chunks share trailing sentences totalling
// at most overlap characters.
type SentenceChunker struct {
	chunkSize int
	overlap   int
	splitter  *regexp.Regexp
	spaces    *regexp.Regexp
}

func NewSentenceChunker(chunkSize, overlap int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &SentenceChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		splitter:  regexp.MustCompile(`(?s)[^.!?]+(?:[.!?]+|$)`),
		spaces:    regexp.MustCompile(`\s+`),
	}
}

func (c *SentenceChunker) sentences(text string) []string {
	text = strings.TrimSpace(c.spaces.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	var out []string
	for _, s := range c.splitter.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{text}
	}
	return out
}

// Split returns the chunk texts for text.
func (c *SentenceChunker) Split(text string) []string {
	sentences := c.sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		end := i
		for end < len(sentences) {
			add := len(sentences[end])
			if end > i {
				add++ // joining space
			}
			if size+add > c.chunkSize && end > i {
				break
			}
			size += add
			end++
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}

		// Step back over trailing sentences that fit in the overlap window,
		// always advancing at least one sentence.
		next := end
		overlapSize := 0
		for next > i+1 {
			l := len(sentences[next-1])
			if overlapSize+l > c.overlap {
				break
			}
			overlapSize += l
			next--
		}
		i = next
	}
	return chunks
}
