package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tchat/config"
	"tchat/groups"
	"tchat/logging"
	"tchat/server"
	"tchat/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "tchat",
		Short:         "tchat: multi-user text chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newTrimCmd(&configPath),
		newStatsCmd(&configPath),
		newShutdownCmd(&configPath),
	)
	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger := logging.New(cfg.LogLevel)
			defer logger.Sync()

			st, err := store.New(cfg.DataDir, logger)
			if err != nil {
				return fmt.Errorf("opening data directory: %w", err)
			}

			gm, err := groups.NewManager(st, logger)
			if err != nil {
				return fmt.Errorf("loading groups: %w", err)
			}
			logger.Info("groups loaded")

			srv, err := server.New(st, gm, &server.Config{
				Port:          cfg.Port,
				WriteTimeout:  time.Duration(cfg.WriteTimeout) * time.Second,
				OutboundQueue: cfg.OutboundQueue,
			}, logger)
			if err != nil {
				return fmt.Errorf("initializing server: %w", err)
			}

			go startControlSocket(srv, cfg.ControlSocket, logger)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				logger.Info("shutting down", zap.String("signal", sig.String()))
				srv.Shutdown()
				os.Remove(cfg.ControlSocket)
			}()

			return srv.Start()
		},
	}
}

func newTrimCmd(configPath *string) *cobra.Command {
	var days int

	trimCmd := &cobra.Command{
		Use:   "trim",
		Short: "Rewrite history logs keeping only recent entries",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.RetentionDays
			}

			logger := logging.New(cfg.LogLevel)
			defer logger.Sync()

			st, err := store.New(cfg.DataDir, logger)
			if err != nil {
				return err
			}

			cutoff := time.Now().AddDate(0, 0, -days)
			removed, err := st.TrimHistory(cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries older than %d days\n", removed, days)
			return nil
		},
	}
	trimCmd.Flags().IntVar(&days, "days", 0, "retention age in days (default from config)")
	return trimCmd
}

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Query a running server for connection statistics",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return controlCommand(cfg.ControlSocket, "stats")
		},
	}
}

func newShutdownCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask a running server to shut down gracefully",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return controlCommand(cfg.ControlSocket, "shutdown")
		},
	}
}

// controlCommand sends one command over the control socket and prints the
// reply.
func controlCommand(socketPath, command string) error {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to control socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return err
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print(reply)
	return nil
}

// startControlSocket serves management commands on a Unix socket.
func startControlSocket(srv *server.Server, socketPath string, logger *zap.Logger) {
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		logger.Warn("control socket unavailable", zap.Error(err))
		return
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	logger.Info("control socket listening", zap.String("path", socketPath))

	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		go handleControlCommand(srv, conn, socketPath, logger)
	}
}

func handleControlCommand(srv *server.Server, conn net.Conn, socketPath string, logger *zap.Logger) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		conn.Write([]byte("OK|" + srv.Stats() + "\n"))

	case "shutdown":
		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		// Give the reply time to reach the client.
		time.Sleep(100 * time.Millisecond)

		logger.Info("shutdown requested over control socket")
		srv.Shutdown()
		os.Remove(socketPath)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
