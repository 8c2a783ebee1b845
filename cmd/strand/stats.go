// ABOUTME: stats subcommand printing stored conversations and tool health
// ABOUTME: Reads the database directly without starting the generator

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/strandlabs/strand/internal/store"
)

func runStats(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	gray.Printf("config: %s  database: %s\n\n", configPath, cfg.Database.Path)

	summaries, err := st.ListConversations(ctx, 20)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	cyan.Printf("Conversations (%d most recent)\n", len(summaries))
	if len(summaries) == 0 {
		gray.Println("  none yet — start one with: strand chat")
		return nil
	}

	total := 0
	for _, s := range summaries {
		total += s.MessageCount
		green.Printf("  %s ", s.UpdatedAt.Format(time.DateOnly))
		fmt.Printf("%-30s ", s.Title)
		gray.Printf("%3d msgs  %s\n", s.MessageCount, truncatePreview(s.Preview, 48))
	}
	fmt.Println()
	gray.Printf("  %d messages across %d conversations\n", total, len(summaries))
	return nil
}

func truncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
