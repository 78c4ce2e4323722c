// Package console renders a live terminal dashboard for a running
// netplay session: tick progress, rollback depth, latency, and round
// results.
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/andersfylling/tango/internal/session"
)

// refreshInterval is how often the dashboard redraws
const refreshInterval = 100 * time.Millisecond

// Console is a tcell dashboard over a session
type Console struct {
	screen  tcell.Screen
	sess    *session.Session
	eventCh chan tcell.Event
	quitCh  chan struct{}
}

// New creates a dashboard for the given session
func New(sess *session.Session) *Console {
	return &Console{
		sess:    sess,
		eventCh: make(chan tcell.Event, 32),
		quitCh:  make(chan struct{}),
	}
}

// Run owns the terminal until the context is canceled or the user
// quits with q or escape
func (c *Console) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	c.screen = screen

	go c.pollEvents()
	defer close(c.quitCh)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.eventCh:
			if key, ok := ev.(*tcell.EventKey); ok {
				if key.Key() == tcell.KeyEscape || key.Rune() == 'q' {
					return nil
				}
			}
			if _, ok := ev.(*tcell.EventResize); ok {
				screen.Sync()
			}
		case <-ticker.C:
			c.draw()
		}
	}
}

func (c *Console) pollEvents() {
	for {
		ev := c.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case c.eventCh <- ev:
		case <-c.quitCh:
			return
		}
	}
}

func (c *Console) draw() {
	c.screen.Clear()

	c.put(0, 0, "tango session: "+c.sess.State().String(), tcell.StyleDefault.Bold(true))

	latency := c.sess.Latency()
	c.put(0, 1, fmt.Sprintf("latency  %8s", latency), c.latencyStyle(latency))

	m := c.sess.Match()
	if m == nil {
		c.put(0, 3, "negotiating...", tcell.StyleDefault.Dim(true))
		c.screen.Show()
		return
	}

	st := m.Status()
	rows := []string{
		fmt.Sprintf("round    %8d", st.RoundNumber),
		fmt.Sprintf("tick     %8d", st.CurrentTick),
		fmt.Sprintf("commit   %8d  %016x", st.CommittedTick, st.CommittedChecksum),
		fmt.Sprintf("dtick    %8d", st.Dtick),
		fmt.Sprintf("lead     %8d", st.LocalLead),
		fmt.Sprintf("played   %8d", st.RoundsPlayed),
	}
	for i, row := range rows {
		c.put(0, 3+i, row, tcell.StyleDefault)
	}

	if st.LastResult != "" {
		c.put(0, 10, "last result: "+st.LastResult, tcell.StyleDefault.Bold(true))
	}
	if m.Ended() {
		c.put(0, 12, "match ended (press q to quit)", tcell.StyleDefault.Dim(true))
	}

	c.screen.Show()
}

// latencyStyle maps round-trip time onto a green-to-red ramp
func (c *Console) latencyStyle(latency time.Duration) tcell.Style {
	frac := float64(latency) / float64(250*time.Millisecond)
	if frac > 1 {
		frac = 1
	}
	// Hue 120 is green, 0 is red.
	col := colorful.Hsv(120*(1-frac), 0.9, 0.9)
	r, g, b := col.RGB255()
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
}

func (c *Console) put(x, y int, s string, style tcell.Style) {
	for i, r := range s {
		c.screen.SetContent(x+i, y, r, nil, style)
	}
}
