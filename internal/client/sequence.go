package client

import (
	"context"
	"time"
)

// DefaultPace is the pause between consecutive steps within a group.
const DefaultPace = 500 * time.Millisecond

// Step is a single scripted request.
type Step struct {
	Command string

	// Note describes what the step exercises.
	Note string

	// Pause after this step. The last step of each group has none.
	Pause bool
}

// Group is a titled block of steps.
type Group struct {
	Title string
	Steps []Step
}

// DefaultSequence returns the standard smoke-test script.
//
// It covers zone set and clamp echo, the unknown zone echo, the button
// toggle period (fb, silent, fb), shade positions and two unrecognised
// lines that must get no reply.
func DefaultSequence() []Group {
	return []Group{
		{
			Title: "ZONE",
			Steps: []Step{
				{Command: "/zone/2707/32768", Note: "Stor 003 ZB-001 to 50%", Pause: true},
				{Command: "/zone/2707/65535", Note: "Stor 003 ZB-001 to 100%", Pause: true},
				{Command: "/zone/2707/0", Note: "Stor 003 ZB-001 off", Pause: true},
				{Command: "/zone/99999/32000", Note: "unknown zone still echoes"},
			},
		},
		{
			Title: "BUTTON",
			Steps: []Step{
				{Command: "/button/2392/press", Note: "Stor 003 Button 1 on, expect fb", Pause: true},
				{Command: "/button/2392/press", Note: "toggle off, expect no response", Pause: true},
				{Command: "/button/2392/press", Note: "toggle on, expect fb"},
			},
		},
		{
			Title: "SHADE",
			Steps: []Step{
				{Command: "/shade/8112/32768", Note: "Game Room Solar Shades 50% open", Pause: true},
				{Command: "/shade/8112/65535", Note: "fully open", Pause: true},
				{Command: "/shade/8112/0", Note: "fully closed"},
			},
		},
		{
			Title: "INVALID",
			Steps: []Step{
				{Command: "/invalid/command", Note: "unrecognised, expect no response"},
				{Command: "hello", Note: "unrecognised, expect no response"},
			},
		},
	}
}

// Observer is called for every step as the script runs.
type Observer interface {
	GroupStarted(g Group)
	StepDone(s Step, r Reply)
}

// Run executes the groups in order, pausing pace after steps that ask for it.
//
// Returns the replies in send order, or the first transport error. A
// cancelled context stops the run between steps.
func (c *Client) Run(ctx context.Context, groups []Group, pace time.Duration, obs Observer) ([]Reply, error) {
	var replies []Reply

	for _, g := range groups {
		if obs != nil {
			obs.GroupStarted(g)
		}
		for _, s := range g.Steps {
			if err := ctx.Err(); err != nil {
				return replies, err
			}

			r, err := c.Send(ctx, s.Command)
			if err != nil {
				return replies, err
			}
			replies = append(replies, r)
			if obs != nil {
				obs.StepDone(s, r)
			}

			if s.Pause && pace > 0 {
				select {
				case <-ctx.Done():
					return replies, ctx.Err()
				case <-time.After(pace):
				}
			}
		}
	}

	return replies, nil
}
