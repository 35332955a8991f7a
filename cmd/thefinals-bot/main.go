// ABOUTME: Entry point for the thefinals-bot dispatch CLI
// ABOUTME: Sends messages through the full pipeline and inspects the dispatch ledger

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/config"
	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/dispatch"
	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/store"
	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _   _           __ _             _
| |_| |__   ___ / _(_)_ __   __ _| |___
| __| '_ \ / _ \ |_| | '_ \ / _' | / __|
| |_| | | |  __/  _| | | | | (_| | \__ \
 \__|_| |_|\___|_| |_|_| |_|\__,_|_|___/
`

// getConfigPath returns the path to the bot config file.
// Priority: THEFINALS_CONFIG env var > XDG_CONFIG_HOME/thefinals/bot.yaml > ~/.config/thefinals/bot.yaml
func getConfigPath() string {
	if envPath := os.Getenv("THEFINALS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bot.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "thefinals", "bot.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: thefinals-bot <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  send     Send a message through the dispatch pipeline")
		fmt.Println("  history  Show recent dispatch outcomes for a conversation")
		fmt.Println("  init     Create a new config file")
		fmt.Println("  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(ctx, os.Args[2:])
	case "history":
		err = runHistory(ctx, os.Args[2:])
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	groupID := fs.String("group", "", "group id to send to")
	userID := fs.String("user", "", "user id to send to")
	content := fs.String("content", "", "message content")
	typeName := fs.String("type", "text", "message type: text, mixed, markdown, ark, embed, media")
	msgID := fs.String("msg-id", "", "caller message id (default: random)")
	media := fs.String("media", "", "file_info handle for media messages")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*groupID == "") == (*userID == "") {
		return fmt.Errorf("exactly one of --group or --user is required")
	}

	typ, err := parseType(*typeName)
	if err != nil {
		return err
	}
	if *msgID == "" {
		*msgID = uuid.New().String()
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	ledger, err := store.NewSQLiteLedger(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer ledger.Close()

	gateway := transport.NewQQGateway(
		cfg.Gateway.BaseURL,
		transport.NewStaticTokenSource(cfg.Gateway.Token),
		logger,
	)

	coord, err := dispatch.New(cfg.DispatchConfig(), gateway, ledger, logger)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	defer coord.Close()

	var mediaRef *message.MediaRef
	if *media != "" {
		mediaRef = &message.MediaRef{FileInfo: *media}
	}

	var outcome *message.Outcome
	if *groupID != "" {
		outcome, err = coord.SendToGroup(ctx, *groupID, *content, typ, *msgID, mediaRef)
	} else {
		outcome, err = coord.SendToUser(ctx, *userID, *content, typ, *msgID, mediaRef)
	}
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	green := color.New(color.FgGreen)
	if outcome.Duplicate {
		color.New(color.FgYellow).Println("suppressed: duplicate within dedup window")
		return nil
	}
	green.Printf("delivered (seq %d)\n", outcome.Sequence)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	groupID := fs.String("group", "", "group id")
	userID := fs.String("user", "", "user id")
	limit := fs.Int("limit", 20, "max records to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*groupID == "") == (*userID == "") {
		return fmt.Errorf("exactly one of --group or --user is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ledger, err := store.NewSQLiteLedger(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer ledger.Close()

	kind, id := "group", *groupID
	if *userID != "" {
		kind, id = "user", *userID
	}

	records, err := ledger.RecentByConversation(ctx, kind, id, *limit)
	if err != nil {
		return fmt.Errorf("querying ledger: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("no dispatch records")
		return nil
	}

	for _, rec := range records {
		status := rec.Status
		line := fmt.Sprintf("%s  %-9s seq=%-7d attempts=%d  %s",
			rec.CreatedAt.Format("2006-01-02 15:04:05"), status, rec.Sequence, rec.Attempts, rec.MessageID)
		switch status {
		case store.StatusDelivered:
			color.Green(line)
		case store.StatusDuplicate:
			color.Yellow(line)
		default:
			color.Red("%s  (%s)", line, rec.Detail)
		}
	}
	return nil
}

const defaultConfig = `# thefinals-bot configuration
gateway:
  base_url: https://api.sgroup.qq.com
  app_id: ${QQ_APP_ID}
  token: ${QQ_BOT_TOKEN}

messaging:
  max_retry: 3
  retry_delay: 1s
  dedup_window: 60s
  seq_step: 100
  rate_limit: 1s
  cleanup_interval: 30s
  queue_size: 100

database:
  path: data/dispatch.db

logging:
  level: info
  format: text
`

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", configPath)
	return nil
}

func parseType(name string) (message.Type, error) {
	switch name {
	case "text":
		return message.TypeText, nil
	case "mixed":
		return message.TypeMixed, nil
	case "markdown":
		return message.TypeMarkdown, nil
	case "ark":
		return message.TypeArk, nil
	case "embed":
		return message.TypeEmbed, nil
	case "media":
		return message.TypeMedia, nil
	}
	return 0, fmt.Errorf("unknown message type: %q", name)
}
