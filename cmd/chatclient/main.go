package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"livechat/internal/chat"
	"livechat/internal/config"
	"livechat/internal/models"
	"livechat/internal/statestore"
	"livechat/internal/stream"
	"livechat/internal/transport"
	"livechat/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Headless live chat client",
	Long: "Connects to the chat API, keeps rooms, presence and messages in sync by polling,\n" +
		"prints new messages and sends lines typed on stdin. Type /help for commands.",
	RunE: runClient,
}

var (
	flagAPIURL   string
	flagToken    string
	flagStateDir string
	flagStream   bool
	flagLogLevel string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAPIURL, "api-url", "", "chat API base URL (overrides CHAT_API_URL)")
	flags.StringVar(&flagToken, "token", "", "bearer token (overrides CHAT_TOKEN)")
	flags.StringVar(&flagStateDir, "state-dir", "", "directory for persisted UI state (overrides CHAT_STATE_DIR)")
	flags.BoolVar(&flagStream, "stream", false, "also follow the websocket message stream")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("chat client failed")
	}
}

func loadConfig() *config.ClientConfig {
	cfg := config.LoadClient()
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagToken != "" {
		cfg.API.Token = flagToken
	}
	if flagStateDir != "" {
		cfg.StateDir = flagStateDir
	}
	if flagStream {
		cfg.Stream = true
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

	identity, err := transport.IdentityFromToken(cfg.API.Token)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	store, err := statestore.OpenPebble(cfg.StateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	api := chat.NewRESTClient(transport.NewClient(cfg.API.BaseURL, cfg.API.Token, transport.WithTimeout(cfg.API.Timeout)))
	sess := chat.NewSession(api, identity,
		chat.WithStore(store),
		chat.WithConfig(chat.Config{
			PresenceInterval: cfg.Polling.Presence,
			RoomsInterval:    cfg.Polling.Rooms,
			MessagesInterval: cfg.Polling.Messages,
		}),
		chat.WithLogger(logger.Component("chat")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Connect(ctx); err != nil {
		return err
	}
	defer sess.Disconnect()
	if openOnStart(sess.Snapshot().Session.UIState) {
		if err := sess.SetOpen(true); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	p := newPrinter(out)
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	go func() {
		for range updates {
			p.render(sess.Snapshot())
		}
	}()
	p.render(sess.Snapshot())

	if cfg.Stream {
		sub := stream.NewSubscriber(cfg.API.BaseURL, cfg.API.Token, stream.WithLogger(logger.Component("stream")))
		go sub.Follow(ctx, func() string { return sess.Snapshot().Session.ActiveRoomID }, sess)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Fprintf(out, "connected as %s (%s); type /help for commands\n", identity.Username, identity.Role)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			reqCtx, cancel := context.WithTimeout(ctx, cfg.API.Timeout+time.Second)
			quit, err := execute(reqCtx, sess, line, out)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// openOnStart reports whether the client should open the chat on launch.
// A stored open state is kept as is, and a closed chat in persistent mode
// keeps polling without being opened.
func openOnStart(ui models.UIState) bool {
	return !ui.IsOpen && !ui.PersistentMode
}
