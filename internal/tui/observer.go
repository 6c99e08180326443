package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/timmy/mygoreply/internal/tagging"
)

// Sender delivers messages to a running program.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards pipeline progress to a Bubble Tea program.
type Observer struct {
	out Sender
}

var _ tagging.Observer = (*Observer)(nil)

// NewObserver creates an observer that sends to out.
func NewObserver(out Sender) *Observer {
	return &Observer{out: out}
}

func (o *Observer) Started(total, start int) { o.out.Send(startedMsg{total: total, start: start}) }

func (o *Observer) Processed(p tagging.Progress) { o.out.Send(processedMsg(p)) }

func (o *Observer) Paused(d time.Duration) { o.out.Send(pausedMsg{d: d}) }

func (o *Observer) Finished(stats tagging.Stats, err error) {
	o.out.Send(finishedMsg{stats: stats, err: err})
}

// Run shows the progress view while job runs. ctrl+c cancels the context
// passed to job; Run returns once job has returned.
// Parameters:
//   - ctx: parent context of the job.
//   - title: heading of the view.
//   - job: the work to observe; it must report through obs.
//
// Returns:
//   - error: the job's error, or the program's if the terminal failed.
func Run(ctx context.Context, title string, job func(ctx context.Context, obs tagging.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title, cancel))
	errc := make(chan error, 1)
	go func() {
		err := job(ctx, NewObserver(p))
		p.Send(doneMsg{err: err})
		errc <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}
