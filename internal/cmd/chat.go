package cmd

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/logging"
	"github.com/iammorganparry/forgepilot/internal/tui"
)

func (a *app) newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat client",
		Long: `Open the terminal chat client. Type a project description and press
Enter; tab switches to the files panel where y copies the selected file
and d downloads the whole scaffold as a zip.`,
		Args: cobra.NoArgs,
		RunE: a.runChat,
	}
}

func (a *app) runChat(cmd *cobra.Command, args []string) error {
	logger, closer := a.fileLogger()
	defer closer.Close()

	c := client.New(a.cfg.BackendURL, a.cfg.APIPrefix, a.cfg.HTTPTimeout, client.WithLogger(logger))
	logger.Info("chat starting", "backend_url", a.cfg.BackendURL, "api_prefix", a.cfg.APIPrefix)

	p := tea.NewProgram(
		tui.NewRootModel(cmd.Context(), c, tui.Options{
			DownloadDir: a.cfg.DownloadDir,
			Logger:      logger,
		}),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}

// fileLogger logs to the state directory; the terminal belongs to the TUI
func (a *app) fileLogger() (*slog.Logger, io.Closer) {
	logger, closer, err := logging.NewFile(a.cfg.StateDir, a.cfg.LogLevel)
	if err != nil {
		return logging.Discard(), nopCloser{}
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
