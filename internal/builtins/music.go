// ABOUTME: Music control tool driving an injectable playback backend.
// ABOUTME: Supports play, transport actions, and absolute/relative volume.

package builtins

import (
	"context"
	"fmt"
	"sync"

	"github.com/strandlabs/strand/internal/tool"
)

// volumeStep is the relative adjustment for volume_up / volume_down.
const volumeStep = 10

// Player is the playback backend the music tool drives.
type Player interface {
	Play(ctx context.Context, query string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, level int) error
	Volume(ctx context.Context) (int, error)
	NowPlaying(ctx context.Context) (string, error)
}

// MusicControl exposes playback control as a tool.
type MusicControl struct {
	player Player
}

// NewMusicControl creates the music_control tool over the given backend.
func NewMusicControl(player Player) *MusicControl {
	return &MusicControl{player: player}
}

func (m *MusicControl) Name() string        { return "music_control" }
func (m *MusicControl) Description() string { return "Control music playback and volume" }
func (m *MusicControl) Category() string    { return tool.CategoryMedia }
func (m *MusicControl) IsAvailable() bool   { return m.player != nil }

func (m *MusicControl) Parameters() []tool.Parameter {
	return []tool.Parameter{
		{
			Name:        "action",
			Type:        "string",
			Description: "Playback action to perform",
			Required:    true,
			Enum: []string{
				"play", "pause", "resume", "next", "previous",
				"set_volume", "volume_up", "volume_down",
			},
		},
		{
			Name:        "query",
			Type:        "string",
			Description: "What to play (track, artist, or playlist)",
		},
		{
			Name:        "level",
			Type:        "integer",
			Description: "Volume level 0-100 for set_volume",
		},
	}
}

func (m *MusicControl) Execute(ctx context.Context, params map[string]any) tool.Result {
	action, ok := stringParam(params, "action")
	if !ok {
		return failure("music_control requires an action")
	}

	var err error
	data := map[string]any{"action": action}

	switch action {
	case "play":
		query, _ := stringParam(params, "query")
		err = m.player.Play(ctx, query)
		if query != "" {
			data["query"] = query
		}
	case "pause":
		err = m.player.Pause(ctx)
	case "resume":
		err = m.player.Resume(ctx)
	case "next":
		err = m.player.Next(ctx)
	case "previous":
		err = m.player.Previous(ctx)
	case "set_volume":
		level := intParam(params, "level", -1)
		if level < 0 || level > 100 {
			return failure("set_volume requires a level between 0 and 100")
		}
		err = m.player.SetVolume(ctx, level)
		data["volume"] = level
	case "volume_up", "volume_down":
		var level int
		level, err = m.adjustVolume(ctx, action)
		data["volume"] = level
	default:
		return failure("unknown music action: %s", action)
	}

	if err != nil {
		return failure("music_control %s failed: %v", action, err)
	}

	if track, trackErr := m.player.NowPlaying(ctx); trackErr == nil && track != "" {
		data["now_playing"] = track
	}
	return tool.Result{Success: true, Data: data}
}

// adjustVolume shifts the current volume by one step, clamped to 0-100.
func (m *MusicControl) adjustVolume(ctx context.Context, action string) (int, error) {
	current, err := m.player.Volume(ctx)
	if err != nil {
		return 0, err
	}
	level := current + volumeStep
	if action == "volume_down" {
		level = current - volumeStep
	}
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	return level, m.player.SetVolume(ctx, level)
}

// MemoryPlayer is an in-process Player for local runs and tests.
type MemoryPlayer struct {
	mu      sync.Mutex
	track   string
	playing bool
	volume  int
}

// NewMemoryPlayer creates a MemoryPlayer at half volume.
func NewMemoryPlayer() *MemoryPlayer {
	return &MemoryPlayer{volume: 50}
}

func (p *MemoryPlayer) Play(ctx context.Context, query string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if query != "" {
		p.track = query
	} else if p.track == "" {
		return fmt.Errorf("nothing queued to play")
	}
	p.playing = true
	return nil
}

func (p *MemoryPlayer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *MemoryPlayer) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == "" {
		return fmt.Errorf("nothing to resume")
	}
	p.playing = true
	return nil
}

func (p *MemoryPlayer) Next(ctx context.Context) error     { return nil }
func (p *MemoryPlayer) Previous(ctx context.Context) error { return nil }

func (p *MemoryPlayer) SetVolume(ctx context.Context, level int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = level
	return nil
}

func (p *MemoryPlayer) Volume(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, nil
}

func (p *MemoryPlayer) NowPlaying(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return "", nil
	}
	return p.track, nil
}
