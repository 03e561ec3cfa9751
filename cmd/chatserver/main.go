package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"livechat/internal/auth"
	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/handlers"
	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/internal/websocket"
	"livechat/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chatserver",
	Short: "Reference chat API for the live chat client",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat REST API and message stream",
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print a signed bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var (
	flagPort     string
	flagLogLevel string
	flagUsername string
	flagRole     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	serveCmd.Flags().StringVar(&flagPort, "port", "", "listen address (overrides PORT)")
	tokenCmd.Flags().StringVar(&flagUsername, "username", "", "username claim (defaults to the user id)")
	tokenCmd.Flags().StringVar(&flagRole, "role", string(models.RoleRegular), "role claim: regular, admin, super_admin or owner")

	rootCmd.AddCommand(serveCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.ServerConfig {
	cfg := config.LoadServer()
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagPort != "" {
		cfg.Server.Port = flagPort
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	presence, err := openPresence(ctx, cfg.Redis, cfg.Chat.PresenceTTL)
	if err != nil {
		db.Close()
		return err
	}

	authService := auth.NewService(cfg.JWT)
	chatService := services.NewChatService(db, presence, cfg.Chat.MaxMessageLength)
	if err := chatService.EnsureRooms(ctx, services.DefaultRooms); err != nil {
		db.Close()
		presence.Close()
		return err
	}

	hubManager := websocket.NewManager(5 * time.Minute)
	chatService.OnMessage(hubManager.Publish)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handlers.NewRouter(authService, chatService, hubManager),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Chat API listening on %s", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-api": func(ctx context.Context) error {
				logger.Info("Server shutting down...")
				hubManager.Close()
				err := server.Shutdown(ctx)
				presence.Close()
				db.Close()
				return err
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited with code %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (database.Database, error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL not set; messages are kept in memory")
		return database.NewMemoryDB(), nil
	}
	return database.NewPostgresDB(ctx, cfg.URL)
}

func openPresence(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (database.PresenceStore, error) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not set; presence is kept in memory")
		return database.NewMemoryPresence(ttl), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Connected to redis at %s", cfg.Addr)
	return database.NewRedisPresence(rdb, ttl), nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	role := models.Role(flagRole)
	switch role {
	case models.RoleRegular, models.RoleAdmin, models.RoleSuperAdmin, models.RoleOwner:
	default:
		return fmt.Errorf("unknown role %q", flagRole)
	}

	token, err := auth.NewService(cfg.JWT).GenerateToken(models.Identity{
		UserID:   args[0],
		Username: flagUsername,
		Role:     role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func printAPIEndpoints() {
	logger.Info("API endpoints:")
	logger.Info("   GET  /chat/online-users")
	logger.Info("   GET  /chat/rooms")
	logger.Info("   GET  /chat/messages/{room_id}")
	logger.Info("   GET  /chat/private-messages/{user_id}")
	logger.Info("   POST /chat/send-message")
	logger.Info("   POST /chat/admin/ban-user")
	logger.Info("   GET  /chat/stream?room_id=  (websocket)")
}
