package ui

import (
	"fmt"
	"io"
	"sync"
)

// Progress prints pipeline progress events. On a terminal it redraws one
// line per tag; otherwise it prints a line when a tag finishes or changes.
type Progress struct {
	w   io.Writer
	tty bool

	mu      sync.Mutex
	tag     string
	pending bool // a redrawn line is open on a terminal
	last    string
}

// NewProgress creates a Progress writing to w.
func NewProgress(w io.Writer, tty bool) *Progress {
	return &Progress{w: w, tty: tty}
}

// Listener returns the progress callback to hand to the sync client.
func (p *Progress) Listener() func(tag string, max, completed int64) {
	return p.update
}

func (p *Progress) update(tag string, max, completed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := FormatProgress(tag, max, completed)
	if tag != p.tag {
		p.flush()
		p.tag = tag
	}
	p.last = line

	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s %s", RenderAccent("↻"), line)
		p.pending = true
		if max >= 0 && completed >= max {
			p.flush()
		}
		return
	}

	if max >= 0 && completed >= max {
		fmt.Fprintln(p.w, line)
		p.last = ""
	}
}

// flush ends the current line. Non-terminal output of an unfinished tag is
// printed once here.
func (p *Progress) flush() {
	if p.tty {
		if p.pending {
			fmt.Fprintln(p.w)
			p.pending = false
		}
		return
	}
	if p.last != "" {
		fmt.Fprintln(p.w, p.last)
		p.last = ""
	}
}

// Done ends any open progress line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flush()
	p.tag = ""
}

// FormatProgress renders one event. An unknown max shows bytes read.
func FormatProgress(tag string, max, completed int64) string {
	if max < 0 {
		return fmt.Sprintf("%s %s", tag, FormatBytes(completed))
	}
	if tag == "catalog" {
		return fmt.Sprintf("%s %s/%s", tag, FormatBytes(completed), FormatBytes(max))
	}
	return fmt.Sprintf("%s %d/%d", tag, completed, max)
}

// FormatBytes renders a byte count in B, KB or MB.
func FormatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
