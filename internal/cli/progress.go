package cli

import (
	"fmt"
	"io"
	"strings"

	"apexgrab/internal/jobs"
)

const barWidth = 20

// progressView draws a single updating progress line. It is driven from
// jobs.Options.OnChange, which the client calls serially.
type progressView struct {
	w      io.Writer
	active bool
	last   int
}

func newProgressView(w io.Writer) *progressView {
	return &progressView{w: w, last: -1}
}

func (p *progressView) update(s jobs.State) {
	if !s.Downloading {
		if p.active {
			fmt.Fprintln(p.w)
			p.active = false
			p.last = -1
		}
		return
	}
	if s.Status == nil {
		return
	}
	pct := int(s.Status.Percent)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct == p.last {
		return
	}
	p.active = true
	p.last = pct
	filled := pct * barWidth / 100
	fmt.Fprintf(p.w, "\r[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), pct)
}
