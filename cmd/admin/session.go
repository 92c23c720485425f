package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"resumeMatch/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear a browser session stored in Redis",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the stored analysis of a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Delete a session's results, in-flight lock and run counter",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ws, err := session.Peek(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	id := args[0]
	if err := session.NewRedisStore(client, cfg.Session.TTL).Clear(cmd.Context(), id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := client.Del(cmd.Context(), session.InflightKey(id), session.RunsKey(id)).Err(); err != nil {
		return fmt.Errorf("clear session guards: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s cleared\n", id)
	return nil
}
