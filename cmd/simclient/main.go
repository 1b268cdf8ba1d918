// simclient drives a running simulator through the standard command
// sequence and prints every request and reply.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/crestron-sim/internal/client"
)

const ruleWidth = 60

type options struct {
	cfg  client.Config
	pace time.Duration
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (options, error) {
	fs := pflag.NewFlagSet("simclient", pflag.ContinueOnError)
	fs.SetOutput(out)

	var opts options
	fs.StringVar(&opts.cfg.Host, "host", client.DefaultHost, "simulator host")
	fs.IntVarP(&opts.cfg.Port, "port", "p", client.DefaultPort, "simulator port")
	fs.DurationVar(&opts.cfg.Timeout, "timeout", client.DefaultTimeout, "wait for each reply")
	fs.DurationVar(&opts.pace, "pace", client.DefaultPace, "pause between steps")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run sends the default sequence and writes the transcript to out.
func run(ctx context.Context, opts options, out io.Writer) error {
	c, err := client.Dial(opts.cfg)
	if err != nil {
		return fmt.Errorf("dialling simulator: %w", err)
	}
	defer c.Close()

	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "  Crestron Simulator Test Client")
	fmt.Fprintf(out, "  Target: %s:%d\n", opts.cfg.Host, opts.cfg.Port)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	p := &printer{out: out}
	if _, err := c.Run(ctx, client.DefaultSequence(), opts.pace, p); err != nil {
		return fmt.Errorf("running sequence: %w", err)
	}
	p.endGroup()

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "  Test complete!")
	fmt.Fprintln(out, rule)
	return nil
}

// printer renders the run as it happens.
type printer struct {
	out     io.Writer
	inGroup bool
}

func (p *printer) GroupStarted(g client.Group) {
	p.endGroup()
	fmt.Fprintf(p.out, "Testing %s commands:\n", g.Title)
	fmt.Fprintln(p.out, strings.Repeat("-", 40))
	p.inGroup = true
}

func (p *printer) StepDone(_ client.Step, r client.Reply) {
	fmt.Fprintf(p.out, "  Sent:     %s\n", r.Command)
	if r.OK {
		fmt.Fprintf(p.out, "  Received: %s\n", r.Response)
	} else {
		fmt.Fprintln(p.out, "  Received: (no response - timeout)")
	}
}

func (p *printer) endGroup() {
	if p.inGroup {
		fmt.Fprintln(p.out)
		p.inGroup = false
	}
}
