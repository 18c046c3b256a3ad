// Package scheduler runs task generation on a cron schedule and reports each
// run to the configured notifiers.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/caretaker/internal/generate"
	"github.com/zulandar/caretaker/internal/logging"
	"github.com/zulandar/caretaker/internal/notify"
	"github.com/zulandar/caretaker/internal/recurrence"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner generates the work items for one date.
type Runner interface {
	GenerateForDate(ctx context.Context, date string) (*generate.Result, error)
}

// Daemon triggers a Runner for "today" in Location whenever the cron
// expression fires.
type Daemon struct {
	Runner   Runner
	Notifier notify.Notifier
	Site     string
	Location *time.Location
	Log      *logrus.Entry
	Now      func() time.Time
}

// New returns a Daemon with UTC as the fallback location.
func New(runner Runner, n notify.Notifier, site string, loc *time.Location, log *logrus.Entry) *Daemon {
	if loc == nil {
		loc = time.UTC
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &Daemon{Runner: runner, Notifier: n, Site: site, Location: loc, Log: log, Now: time.Now}
}

// Next returns the first fire time of expr after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: cron %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

func (d *Daemon) log() *logrus.Entry {
	if d.Log == nil {
		return logging.Discard()
	}
	return d.Log
}

func (d *Daemon) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Daemon) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// Today returns the current calendar date in the daemon's location.
func (d *Daemon) Today() string {
	return d.now().In(d.location()).Format(recurrence.DateLayout)
}

// RunOnce generates date and sends a summary. A failed delivery is logged and
// does not change the returned error.
func (d *Daemon) RunOnce(ctx context.Context, date string) (*generate.Result, error) {
	start := d.now()
	res, err := d.Runner.GenerateForDate(ctx, date)

	sum := notify.Summary{Site: d.Site, Date: date, Duration: d.now().Sub(start), Err: err}
	if res != nil {
		sum.RunID = res.RunID
		sum.Created = res.Created
		sum.Existing = res.Existing
		sum.Linked = res.Linked
	}
	if d.Notifier != nil {
		if nerr := d.Notifier.Notify(ctx, sum); nerr != nil {
			d.log().WithError(nerr).WithField("date", date).Warn("summary delivery failed")
		}
	}
	return res, err
}

func (d *Daemon) tick(ctx context.Context) {
	date := d.Today()
	if _, err := d.RunOnce(ctx, date); err != nil {
		d.log().WithError(err).WithField("date", date).Error("scheduled generation failed")
	}
}

// Run blocks until ctx is cancelled, generating today's work items each time
// expr fires. With runOnStart set, one run happens before the first tick.
// Errors from individual runs are logged and never stop the daemon.
func (d *Daemon) Run(ctx context.Context, expr string, runOnStart bool) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("scheduler: cron %q: %w", expr, err)
	}

	logger := cron.PrintfLogger(d.log().WithField("component", "cron"))
	c := cron.New(
		cron.WithLocation(d.location()),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(sched, cron.FuncJob(func() { d.tick(ctx) }))

	if runOnStart {
		d.tick(ctx)
	}

	c.Start()
	d.log().WithFields(logrus.Fields{
		"cron":     expr,
		"timezone": d.location().String(),
		"next":     sched.Next(d.now().In(d.location())).Format(time.RFC3339),
	}).Info("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	d.log().Info("scheduler stopped")
	return nil
}
