/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// usersCmd groups the moderation commands that work against the configured
// storage backend directly, without going through the HTTP API.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and moderate registrations",
}

var usersActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Print approved users as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
			users, err := rt.Service.ListActive(ctx)
			if err != nil {
				return err
			}
			return printJSON(users)
		})
	},
}

var usersPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print pending registrations as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
			users, err := rt.Service.ListPending(ctx)
			if err != nil {
				return err
			}
			return printJSON(users)
		})
	},
}

var usersApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve the pending registration with the given id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
			user, err := rt.Service.Approve(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(user)
		})
	},
}

func withRuntime(ctx context.Context, fn func(context.Context, *server.Runtime) error) error {
	cfg := config.LoadConfig()
	rt, err := server.Bootstrap(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersActiveCmd, usersPendingCmd, usersApproveCmd)
}
