package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/model"
	"github.com/iammorganparry/forgepilot/internal/session"
)

// ErrOffline is returned by `forgepilot health` when the backend is unreachable
var ErrOffline = errors.New("backend offline")

func (a *app) newClient() (*client.Client, io.Closer) {
	logger, closer := a.fileLogger()
	return client.New(a.cfg.BackendURL, a.cfg.APIPrefix, a.cfg.HTTPTimeout, client.WithLogger(logger)), closer
}

func (a *app) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend once and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer := a.newClient()
			defer closer.Close()

			status := c.Probe(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", status.Icon(), status.Label(), c.BaseURL())
			if status == model.StatusOffline {
				return ErrOffline
			}
			return nil
		},
	}
}

func (a *app) newSendCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "send <text...>",
		Short: "Send one message and print the agent summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer := a.newClient()
			defer closer.Close()
			h := session.New()

			d, ok := h.Send(strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("message is empty")
			}
			if sessionID != "" {
				d.SessionID = sessionID
			}

			resp, err := c.SendMessage(cmd.Context(), d.Input, d.SessionID)
			h.Resolve(d, session.Outcome{Response: resp, Err: err})

			msgs := h.Messages()
			fmt.Fprintln(cmd.OutOrStdout(), msgs[len(msgs)-1].Text)
			if err := h.LastError(); err != nil {
				return fmt.Errorf("%s: %w", client.Classify(err), err)
			}
			if id := h.SessionID(); id != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "session: "+id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session")
	return cmd
}
