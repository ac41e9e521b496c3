package app

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/ibeckermayer/tikfollow/internal/session"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// Report is the outcome of one run
type Report struct {
	RunID  string
	Target types.TargetProfile

	Login    session.State
	LoginErr error

	// Follow is nil when the run ended before following
	Follow *types.Outcome

	Discovered   int
	Converged    bool
	DiscoveryErr error

	Likes       []types.Outcome
	Interrupted bool

	Started  time.Time
	Finished time.Time
}

// Counts tallies outcomes by status
type Counts struct {
	AlreadySatisfied int
	Applied          int
	Failed           int
}

// Counts covers the follow and every like
func (r *Report) Counts() Counts {
	var c Counts
	add := func(o types.Outcome) {
		switch o.Status {
		case types.AlreadySatisfied:
			c.AlreadySatisfied++
		case types.Applied:
			c.Applied++
		case types.Failed:
			c.Failed++
		}
	}
	if r.Follow != nil {
		add(*r.Follow)
	}
	for _, o := range r.Likes {
		add(o)
	}
	return c
}

// Processed is the number of videos a like was attempted on
func (r *Report) Processed() int { return len(r.Likes) }

// Render writes a human readable summary table to w
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Run %s for %s\n", r.RunID, r.Target)
	if r.LoginErr != nil {
		fmt.Fprintf(w, "Login: %s (%s): %v\n", r.Login, types.ReasonOf(r.LoginErr), r.LoginErr)
		return
	}
	fmt.Fprintf(w, "Login: %s\n", r.Login)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Action", "Subject", "Result", "Reason"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	if r.Follow != nil {
		table.Append(row("-", *r.Follow))
	}
	for i, o := range r.Likes {
		table.Append(row(strconv.Itoa(i+1), o))
	}

	c := r.Counts()
	table.SetFooter([]string{"", "", "total",
		fmt.Sprintf("%d applied, %d already, %d failed", c.Applied, c.AlreadySatisfied, c.Failed), ""})
	table.Render()

	var discovery string
	switch {
	case r.DiscoveryErr != nil:
		discovery = fmt.Sprintf("stopped early: %s: %v", types.ReasonOf(r.DiscoveryErr), r.DiscoveryErr)
	case r.Converged:
		discovery = "converged"
	default:
		discovery = "scroll limit reached"
	}
	fmt.Fprintf(w, "Discovered %d videos (%s)\n", r.Discovered, discovery)
	if r.Interrupted {
		fmt.Fprintf(w, "Interrupted after %d of %d videos\n", r.Processed(), r.Discovered)
	}
	fmt.Fprintf(w, "Processed %d videos in %s\n", r.Processed(), r.Finished.Sub(r.Started).Round(time.Second))
}

func row(index string, o types.Outcome) []string {
	return []string{index, string(o.Action), o.Subject, o.Status.String(), string(o.Reason)}
}
