// ABOUTME: Interactive terminal chat loop over the orchestrator
// ABOUTME: Streams assistant tokens as they arrive and keeps one conversation per session

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/strandlabs/strand/internal/orchestrator"
)

func runChat(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	cyan.Print(banner)
	gray.Printf("    version: %s  config: %s\n", version, configPath)
	gray.Println("    type a message, or /quit to exit")
	fmt.Println()

	logger := setupLogger(cfg.Logging)
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.maintenanceLoop(ctx)

	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	var conversationID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		green.Print("you ▸ ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			return nil
		}

		stream, err := a.orch.HandleStream(ctx, orchestrator.Request{
			UserInput:      input,
			ConversationID: conversationID,
		})
		if err != nil {
			red.Printf("✗ %v\n", err)
			continue
		}

		cyan.Print("strand ▸ ")
		printedTools := false
		for resp := range stream {
			if resp.ConversationID != "" {
				conversationID = resp.ConversationID
			}
			switch {
			case !resp.Success:
				red.Printf("✗ %s\n", resp.Error)
			case resp.IsFinal:
				fmt.Println()
				if resp.Error != "" {
					yellow.Printf("  ⚠ %s\n", resp.Error)
				}
				gray.Printf("  (%s)\n", resp.ProcessingTime.Round(time.Millisecond))
			case !printedTools && len(resp.ToolsUsed) > 0 && strings.HasPrefix(resp.Content, "Using tools:"):
				yellow.Printf("%s\n", resp.Content)
				cyan.Print("strand ▸ ")
				printedTools = true
			default:
				fmt.Print(resp.Content)
			}
		}
		fmt.Println()

		if ctx.Err() != nil {
			return nil
		}
	}
}
