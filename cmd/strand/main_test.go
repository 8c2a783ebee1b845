// ABOUTME: Tests for the maintenance loop behind serve and chat.
// ABOUTME: Verifies idle-context eviction and execution-record GC fire on schedule.

package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strandlabs/strand/internal/builtins"
	"github.com/strandlabs/strand/internal/config"
	"github.com/strandlabs/strand/internal/convctx"
	"github.com/strandlabs/strand/internal/store"
	"github.com/strandlabs/strand/internal/tool"
)

func TestMaintenanceLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := store.NewMockStore()
	conv := &store.Conversation{ID: "conv-1", Title: "test", Status: store.StatusActive}
	require.NoError(t, mock.CreateConversation(ctx, conv))
	require.NoError(t, mock.AppendMessage(ctx, &store.Message{
		ID:             "msg-1",
		ConversationID: conv.ID,
		Role:           store.RoleUser,
		Content:        "old message",
		Timestamp:      time.Now().Add(-2 * time.Hour),
	}))

	contexts, err := convctx.NewManager(convctx.ManagerConfig{Source: mock})
	require.NoError(t, err)
	_, err = contexts.GetContext(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, 1, contexts.ActiveContexts())

	registry := tool.NewRegistry(tool.RegistryConfig{})
	require.NoError(t, registry.Register(builtins.NewMusicControl(builtins.NewMemoryPlayer())))
	_, err = registry.Execute(ctx, "music_control", map[string]any{"action": "pause"})
	require.NoError(t, err)
	require.Len(t, registry.History(0), 1)

	cfg := config.Default()
	cfg.Context.EvictAfter = 10 * time.Millisecond
	cfg.Tools.HistoryMaxAge = time.Millisecond

	a := &app{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: registry,
		contexts: contexts,
	}
	go a.maintenanceLoop(ctx)

	require.Eventually(t, func() bool {
		return contexts.ActiveContexts() == 0 && len(registry.History(0)) == 0
	}, 2*time.Second, 5*time.Millisecond, "maintenance loop did not evict and GC")
}

func TestMaintenanceLoopDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Context.EvictAfter = 0

	a := &app{cfg: cfg, logger: slog.Default()}

	done := make(chan struct{})
	go func() {
		a.maintenanceLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance loop should return immediately when eviction is disabled")
	}
}
