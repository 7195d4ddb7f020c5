// Package chunker splits long text into windows small enough to embed.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 1200
	DefaultMaxSize    = 2000
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Chunk splits text into pieces. Text no longer than MaxSize is returned as a
// single chunk; longer text is split on paragraph boundaries, then on word
// boundaries for paragraphs that are still too large.
func Chunk(text string, opts Options) []string {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	if opts.TargetSize > opts.MaxSize {
		opts.TargetSize = opts.MaxSize
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}

	var out []string
	var accum string
	flush := func() {
		if accum != "" {
			out = append(out, accum)
			accum = ""
		}
	}

	for _, para := range paragraphs(text) {
		if len(para) > opts.MaxSize {
			flush()
			out = append(out, splitWords(para, opts.TargetSize)...)
			continue
		}
		if accum == "" {
			accum = para
			continue
		}
		if len(accum)+2+len(para) <= opts.TargetSize {
			accum += "\n\n" + para
			continue
		}
		flush()
		accum = para
	}
	flush()

	return out
}

// paragraphs splits on blank lines, dropping empty pieces.
func paragraphs(text string) []string {
	var out []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				out = append(out, strings.TrimSpace(strings.Join(current, "\n")))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		out = append(out, strings.TrimSpace(strings.Join(current, "\n")))
	}
	return out
}

// splitWords breaks text into windows of at most size bytes on whitespace.
// A single word longer than size is cut.
func splitWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		for len(w) > size {
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			out = append(out, w[:size])
			w = w[size:]
		}
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
