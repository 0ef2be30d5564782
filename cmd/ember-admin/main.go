// ABOUTME: Admin CLI for ember progression data
// ABOUTME: Shows the leaderboard, inspects a user, and resets the ledger

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/emberchat/ember/internal/progress"
	"github.com/emberchat/ember/internal/store"
)

const usage = `ember-admin - inspect and manage ember progression data

Usage:
  ember-admin [-db path] leaderboard [n]   Show the top n users (default 10)
  ember-admin [-db path] user <user-id>    Show one user's level, XP, and badges
  ember-admin [-db path] reset [-yes]      Wipe all progression data

The database path defaults to $EMBER_DB or ./ember.db.
`

func main() {
	dbPath := flag.String("db", getEnv("EMBER_DB", "ember.db"), "Path to the ember database")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt (with reset)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(*dbPath, *yes, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath string, yes bool, args []string) error {
	if len(args) == 0 {
		args = []string{"leaderboard"}
	}

	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database %s not found (is ember running elsewhere? set -db or EMBER_DB)", dbPath)
	}

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ledger, err := progress.New(ctx, st, nil)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	switch args[0] {
	case "leaderboard":
		n := 10
		if len(args) > 1 {
			if _, err := fmt.Sscanf(args[1], "%d", &n); err != nil || n < 1 {
				return fmt.Errorf("invalid count %q", args[1])
			}
		}
		printLeaderboard(ledger.Leaderboard(n))
		return nil

	case "user":
		if len(args) != 2 {
			return fmt.Errorf("usage: ember-admin user <user-id>")
		}
		printUser(ledger.Progress(args[1]))
		return nil

	case "reset":
		if !yes && !confirm("This wipes ALL progression data. Continue? [y/N] ") {
			fmt.Println("Aborted.")
			return nil
		}
		if err := ledger.Reset(ctx); err != nil {
			return fmt.Errorf("resetting ledger: %w", err)
		}
		color.Green("Progression data reset.")
		return nil

	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printLeaderboard(entries []progress.Entry) {
	bold := color.New(color.Bold)
	bold.Println("  Leaderboard")
	fmt.Println("  -----------")

	if len(entries) == 0 {
		fmt.Println("  (no users yet)")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RANK\tUSER\tLEVEL\tXP")
	fmt.Fprintln(w, "  ----\t----\t-----\t--")
	for i, e := range entries {
		fmt.Fprintf(w, "  %d\t%s\t%d\t%d\n", i+1, e.UserID, e.Level, e.XP)
	}
	w.Flush()
}

func printUser(p *store.UserProgress) {
	bold := color.New(color.Bold)
	bold.Printf("  %s\n", p.UserID)
	fmt.Println("  " + strings.Repeat("-", len(p.UserID)))

	fmt.Printf("  Level:   %d\n", p.Level)
	fmt.Printf("  XP:      %d (%d to Level %d)\n",
		p.XP, progress.ExperienceRequiredFor(p.Level+1)-p.XP, p.Level+1)
	if !p.LastActivity.IsZero() {
		fmt.Printf("  Active:  %s\n", p.LastActivity.Format("Jan 02 15:04"))
	}

	if len(p.Badges) == 0 {
		fmt.Println("  Badges:  (none)")
		return
	}
	fmt.Println("  Badges:")
	for _, b := range p.Badges {
		fmt.Printf("    - %s\n", b)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
