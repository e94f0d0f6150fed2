package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/config"
	"github.com/setevik/safetywatch/internal/contacts"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/metrics"
	"github.com/setevik/safetywatch/internal/reporter"
)

// loadCLI loads config and opens the stores for a one-shot subcommand.
func loadCLI(configPath string) (*config.Config, *stores) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	quietLogging()

	st, err := openStores(cfg, clock.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening store: %v\n", err)
		os.Exit(1)
	}
	return cfg, st
}

// --- events / alerts subcommands ---

func runEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "", "time window (e.g. 24h, 7d); empty lists everything")
	status := fs.String("status", "", "filter by status (detected, confirmed, false_positive, emergency_activated)")
	fs.Parse(args)

	_, st := loadCLI(*configPath)
	defer st.Close()

	events := st.events.List()
	if *last != "" {
		d, err := parseDuration(*last)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
			os.Exit(1)
		}
		events = st.events.Since(time.Now().Add(-d))
	}

	n := 0
	for _, ev := range events {
		if *status != "" && string(ev.Status) != *status {
			continue
		}
		fmt.Println(reporter.FormatEvent(ev))
		n++
	}
	if n == 0 {
		fmt.Println("No safety events found.")
		return
	}
	fmt.Printf("\nTotal: %d event(s)\n", n)
}

func runAlerts(args []string) {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "", "time window (e.g. 24h, 7d); empty lists everything")
	fs.Parse(args)

	_, st := loadCLI(*configPath)
	defer st.Close()

	alerts := st.alerts.List()
	if *last != "" {
		d, err := parseDuration(*last)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
			os.Exit(1)
		}
		alerts = st.alerts.Since(time.Now().Add(-d))
	}

	if len(alerts) == 0 {
		fmt.Println("No emergency alerts found.")
		return
	}
	for _, a := range alerts {
		fmt.Println(reporter.FormatAlert(a))
	}
	fmt.Printf("\nTotal: %d alert(s)\n", len(alerts))
}

func runClearEvents(args []string) {
	fs := flag.NewFlagSet("clear-events", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	_, st := loadCLI(*configPath)
	defer st.Close()

	if err := st.events.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "error clearing events: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Safety events cleared.")
}

func runClearAlerts(args []string) {
	fs := flag.NewFlagSet("clear-alerts", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	_, st := loadCLI(*configPath)
	defer st.Close()

	if err := st.alerts.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "error clearing alerts: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Alert history cleared.")
}

// --- contacts subcommand ---

func runContacts(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: safetywatch contacts list|add|remove|primary [flags]")
		os.Exit(2)
	}

	sub := args[0]
	fs := flag.NewFlagSet("contacts "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")

	var name, phone, email, relationship *string
	var primary *bool
	if sub == "add" {
		name = fs.String("name", "", "contact name")
		phone = fs.String("phone", "", "phone number")
		email = fs.String("email", "", "email address")
		relationship = fs.String("relationship", "", "relationship to you")
		primary = fs.Bool("primary", false, "make this the primary contact")
	}
	fs.Parse(args[1:])

	_, st := loadCLI(*configPath)
	defer st.Close()

	switch sub {
	case "list":
		list := st.contacts.List()
		if len(list) == 0 {
			fmt.Println("No emergency contacts.")
			return
		}
		for _, c := range list {
			fmt.Println(formatContact(c))
		}

	case "add":
		if *name == "" || *phone == "" {
			fmt.Fprintln(os.Stderr, "error: -name and -phone are required")
			os.Exit(2)
		}
		id, err := st.contacts.Add(contacts.Contact{
			Name:         *name,
			Phone:        *phone,
			Email:        *email,
			Relationship: *relationship,
			IsPrimary:    *primary,
			IsActive:     true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error adding contact: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Contact added:", id)

	case "remove", "primary":
		if fs.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "usage: safetywatch contacts %s <id>\n", sub)
			os.Exit(2)
		}
		id := fs.Arg(0)
		var err error
		if sub == "remove" {
			err = st.contacts.Remove(id)
		} else {
			err = st.contacts.SetPrimary(id)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Contacts updated.")

	default:
		fmt.Fprintf(os.Stderr, "unknown contacts command %q\n", sub)
		os.Exit(2)
	}
}

func formatContact(c contacts.Contact) string {
	var flags []string
	if c.IsPrimary {
		flags = append(flags, "primary")
	}
	if !c.IsActive {
		flags = append(flags, "inactive")
	}
	line := fmt.Sprintf("%-24s %-20s %-16s", c.ID, c.Name, c.Phone)
	if c.Email != "" {
		line += "  " + c.Email
	}
	if c.Relationship != "" {
		line += "  (" + c.Relationship + ")"
	}
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, ",") + "]"
	}
	return line
}

// --- alert subcommand ---

func runAlert(args []string) {
	fs := flag.NewFlagSet("alert", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: safetywatch alert <medical|fire|police|general|accident|assault|natural_disaster> [info]")
		os.Exit(2)
	}
	t, err := event.ParseAlertType(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	info := strings.Join(fs.Args()[1:], " ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	clk := clock.New()
	st, err := openStores(cfg, clk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	disp, closeLoc, err := buildDispatcher(cfg, st, buildSink(cfg), clk, metrics.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLoc()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !disp.SendDirectEmergencyAlert(ctx, t, info) {
		os.Exit(1)
	}
	fmt.Println("Emergency alert sent.")
}

// --- digest subcommand ---

func runDigest(args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	send := fs.Bool("send", false, "send digest via ntfy (otherwise print to stdout)")
	last := fs.String("last", "7d", "time window for digest")
	fs.Parse(args)

	cfg, st := loadCLI(*configPath)
	defer st.Close()

	duration, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value: %v\n", err)
		os.Exit(1)
	}

	until := time.Now()
	since := until.Add(-duration)

	digest := reporter.BuildDigest(cfg.Instance.ID, st.events.Since(since), st.alerts.Since(since), since, until)

	if !*send {
		fmt.Print(reporter.FormatDigest(digest))
		return
	}

	if cfg.Ntfy.URL == "" {
		fmt.Fprintln(os.Stderr, "error: no ntfy URL configured for digest")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := reporter.NewNtfy(cfg).Notify(ctx, reporter.DigestNotice(digest)); err != nil {
		fmt.Fprintf(os.Stderr, "error sending digest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Digest sent successfully.")
}

// --- test-notify subcommand ---

func runTestNotifyCmd(args []string) {
	fs := flag.NewFlagSet("test-notify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)

	if cfg.Ntfy.URL == "" {
		fmt.Fprintln(os.Stderr, "error: ntfy.url not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := reporter.NewNtfy(cfg).Notify(ctx, reporter.TestNotice()); err != nil {
		fmt.Fprintf(os.Stderr, "error sending test notification: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test notification sent successfully.")
}

// parseDuration extends time.ParseDuration with support for "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
