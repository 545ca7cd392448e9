// Package console provides the operator console of sccp-gateway.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/service"
)

// FeatureSwitch changes feature flags at runtime. It is satisfied by
// *feature.Dispatcher.
type FeatureSwitch interface {
	Flags() feature.Flags
	SetFlags(f feature.Flags)
}

// Console reads operator commands.
type Console struct {
	rl  *readline.Instance
	out io.Writer

	gw       service.Management
	features FeatureSwitch
}

// New creates a console on the terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sccp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that keeps log output off the prompt line.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until quit or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc, gw service.Management, fs FeatureSwitch) {
	defer c.rl.Close()
	c.gw, c.features = gw, fs
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if !c.Exec(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false for quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus()
	case "devices", "d":
		c.cmdDevices()
	case "lines", "l":
		c.cmdLines()
	case "calls", "c":
		c.cmdCalls()
	case "restart":
		c.cmdRestart(ctx, args, false)
	case "reset":
		c.cmdRestart(ctx, args, true)
	case "display":
		c.cmdDisplay(ctx, args)
	case "clear":
		c.cmdClear(ctx, args)
	case "feature", "f":
		c.cmdFeature(args)
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
SCCP Gateway Commands:
  Inspection:
    status                  - Show gateway state and counters
    devices                 - List devices and their registration
    lines                   - List lines with forward and DND state
    calls                   - List active call legs

  Stations:
    restart <device>        - Restart a station
    reset <device>          - Reboot a station
    display <device|all> <text>
                            - Show a notification
    clear <device|all>      - Clear the notification area

  Features:
    feature                 - Show feature switches
    feature <name> on|off   - Change a feature switch

  General:
    help                    - Show this help
    quit                    - Stop the gateway`)
}

func (c *Console) cmdStatus() {
	s := c.gw.Snapshot()
	registered := 0
	for _, d := range s.Registry.Devices {
		if d.Info.SessionID != "" {
			registered++
		}
	}
	fmt.Fprintf(c.out, "State:         %s\n", s.State)
	if !s.Started.IsZero() {
		fmt.Fprintf(c.out, "Uptime:        %s\n", time.Since(s.Started).Truncate(time.Second))
	}
	fmt.Fprintf(c.out, "Sessions:      %d\n", len(s.Sessions))
	fmt.Fprintf(c.out, "Devices:       %d/%d registered\n", registered, len(s.Registry.Devices))
	fmt.Fprintf(c.out, "Calls:         %d\n", len(s.Registry.Channels))
	fmt.Fprintf(c.out, "Subscriptions: %d\n", s.Subscriptions)
	fmt.Fprintf(c.out, "Dial timers:   %d\n", s.DialTimers)
}

func (c *Console) cmdDevices() {
	s := c.gw.Snapshot()
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tSTATE\tADDRESS\tLINES\tCALLS\tDND")
	for _, d := range s.Registry.Devices {
		addr := "-"
		if d.Info.IP.IsValid() && d.Info.SessionID != "" {
			addr = d.Info.IP.String()
		}
		lines := make([]string, 0, len(d.Lines))
		for _, a := range d.Lines {
			lines = append(lines, a.Line)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", d.ID, d.Info.State, addr,
			strings.Join(lines, ","), len(d.Channels), d.Info.DND)
	}
	w.Flush()
}

func (c *Console) cmdLines() {
	s := c.gw.Snapshot()
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tLABEL\tCALLS\tFORWARD\tDND\tMWI")
	for _, l := range s.Registry.Lines {
		fwd := l.Info.ForwardAll
		if fwd == "" {
			fwd = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t%d/%d\n", l.Name, l.Label, len(l.Channels), l.Limit,
			fwd, l.Info.DND, l.Info.NewMessages, l.Info.OldMessages)
	}
	w.Flush()
}

func (c *Console) cmdCalls() {
	s := c.gw.Snapshot()
	if len(s.Registry.Channels) == 0 {
		fmt.Fprintln(c.out, "No active calls")
		return
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CALL\tDEVICE\tLINE\tSTATE\tDIR\tFROM\tTO")
	for _, ch := range s.Registry.Channels {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", ch.CallID, ch.Device, ch.Line, ch.Info.State,
			ch.Info.Direction, ch.Info.CallingNumber, ch.Info.CalledNumber)
	}
	w.Flush()
}

func (c *Console) cmdRestart(ctx context.Context, args []string, reset bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: restart|reset <device>")
		return
	}
	if err := c.gw.RestartDevice(ctx, args[0], reset); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Restart sent to %s\n", args[0])
}

// defaultNotifyTimeout is how long console notifications stay up.
const defaultNotifyTimeout = 10 * time.Second

func (c *Console) cmdDisplay(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: display <device|all> <text>")
		return
	}
	c.display(ctx, args[0], strings.Join(args[1:], " "))
}

func (c *Console) cmdClear(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: clear <device|all>")
		return
	}
	c.display(ctx, args[0], "")
}

func (c *Console) display(ctx context.Context, target, text string) {
	if target == "all" {
		target = ""
	}
	if err := c.gw.DisplayMessage(ctx, target, text, defaultNotifyTimeout); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) cmdFeature(args []string) {
	if c.features == nil {
		fmt.Fprintln(c.out, "Feature switches not available")
		return
	}
	f := c.features.Flags()
	switches := map[string]*bool{
		"transfer":    &f.Transfer,
		"park":        &f.Park,
		"pickup":      &f.Pickup,
		"conference":  &f.Conference,
		"dnd":         &f.DND,
		"private":     &f.Private,
		"callforward": &f.CallForward,
		"mwi":         &f.MWI,
		"barge":       &f.Barge,
	}

	if len(args) == 0 {
		for _, name := range []string{"transfer", "park", "pickup", "conference", "dnd", "private", "callforward", "mwi", "barge"} {
			fmt.Fprintf(c.out, "  %-12s %s\n", name, onOff(*switches[name]))
		}
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: feature <name> on|off")
		return
	}
	sw, ok := switches[strings.ToLower(args[0])]
	if !ok {
		fmt.Fprintf(c.out, "Unknown feature: %s\n", args[0])
		return
	}
	switch strings.ToLower(args[1]) {
	case "on":
		*sw = true
	case "off":
		*sw = false
	default:
		fmt.Fprintln(c.out, "Usage: feature <name> on|off")
		return
	}
	c.features.SetFlags(f)
	fmt.Fprintf(c.out, "%s %s\n", args[0], onOff(*sw))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
