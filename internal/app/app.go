// Package app wires the session together for the standalone client: env
// configuration, logging router, definition loading, and the update loop.
package app

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	client "doomlink/client"
	"doomlink/client/defs"
	"doomlink/client/logging"
	"doomlink/client/logging/multiworld"
	loggingSinks "doomlink/client/logging/sinks"
)

// Config is read from the environment. AP_SERVER and AP_SLOT are required;
// everything else has a workable default.
type Config struct {
	Server   string `env:"AP_SERVER"`
	SlotName string `env:"AP_SLOT"`
	// SlotNameHex carries a hex-encoded slot name for shells that cannot
	// pass the raw bytes. It wins over SlotName when both are set.
	SlotNameHex string `env:"AP_SLOT_HEX"`
	Password    string `env:"AP_PASSWORD"`

	Game    string `env:"AP_GAME" envDefault:"doom"`
	DefsDir string `env:"AP_DEFS_DIR" envDefault:"defs"`
	SaveDir string `env:"AP_SAVE_DIR"`

	Skill             *int `env:"AP_SKILL"`
	MonsterRando      *int `env:"AP_MONSTER_RANDO"`
	ItemRando         *int `env:"AP_ITEM_RANDO"`
	MusicRando        *int `env:"AP_MUSIC_RANDO"`
	FlipLevels        *int `env:"AP_FLIP_LEVELS"`
	ResetLevelOnDeath *int `env:"AP_RESET_LEVEL_ON_DEATH"`

	DeathlinkOff bool `env:"AP_DEATHLINK_OFF"`

	LogDebug bool `env:"AP_LOG_DEBUG"`
	LogColor bool `env:"AP_LOG_COLOR"`
}

// The host game runs its logic at 35 frames per second; the standalone
// client pumps at the same rate.
const tickInterval = time.Second / 35

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Server == "" {
		return cfg, fmt.Errorf("AP_SERVER is required")
	}
	if cfg.SlotNameHex != "" {
		decoded, err := hex.DecodeString(cfg.SlotNameHex)
		if err != nil {
			return cfg, fmt.Errorf("decode AP_SLOT_HEX: %w", err)
		}
		cfg.SlotName = string(decoded)
	}
	if cfg.SlotName == "" {
		return cfg, fmt.Errorf("AP_SLOT or AP_SLOT_HEX is required")
	}
	return cfg, nil
}

// Run drives a session until ctx is cancelled. It connects, pumps updates
// on the game tick, forwards stdin lines as chat, and saves on the way out.
func Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	if cfg.LogDebug {
		logConfig.MinimumSeverity = logging.SeverityDebug
	}
	logConfig.Console.UseColor = cfg.LogColor
	var namedSinks []logging.NamedSink
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
		})
	}
	router, err := logging.NewRouter(nil, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer router.Close(context.Background())

	def, err := defs.LoadGame(cfg.DefsDir, cfg.Game)
	if err != nil {
		return fmt.Errorf("load game definitions: %w", err)
	}
	multiworld.DefsLoaded(ctx, router, multiworld.DefsLoadedPayload{
		Game:     def.GameName,
		Episodes: def.EpisodeCount(),
		Items:    def.ItemCount(),
	})

	session, err := client.New(def, client.Settings{
		Server:   cfg.Server,
		SlotName: cfg.SlotName,
		Password: cfg.Password,
		SaveDir:  cfg.SaveDir,
		Callbacks: client.Callbacks{
			Message: func(text string) { fmt.Println(text) },
		},
		OverrideSkill:             cfg.Skill,
		OverrideMonsterRando:      cfg.MonsterRando,
		OverrideItemRando:         cfg.ItemRando,
		OverrideMusicRando:        cfg.MusicRando,
		OverrideFlipLevels:        cfg.FlipLevels,
		OverrideResetLevelOnDeath: cfg.ResetLevelOnDeath,
		ForceDeathlinkOff:         cfg.DeathlinkOff,
	}, router)
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}

	if err := session.Connect(); err != nil {
		return err
	}
	defer session.Shutdown()

	// The session is single-threaded; stdin lines cross into the tick loop
	// over a channel instead of touching the session directly.
	chat := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case chat <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-chat:
			if line != "" {
				session.SendMessage(line)
			}
		case <-ticker.C:
			session.Update()
		}
	}
}
