package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(transfersCmd)

	accountCmd.AddCommand(accountShowCmd)
	balanceCmd.AddCommand(balanceSetCmd)
	transfersCmd.AddCommand(transfersListCmd)

	balanceSetCmd.Flags().Int64("actor", 0, "Discord id recorded as the admin making the change")
	transfersListCmd.Flags().Int("page", 1, "Page number")
	transfersListCmd.Flags().Int("limit", 20, "Records per page")
}

// ─── migrate ────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, e *env) error {
			if err := e.store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger schema is up to date (%s)\n", e.store.Dialect())
			return nil
		})
	},
}

// ─── stats ──────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ledger database statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, e *env) error {
			stats, err := e.store.GetStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

// ─── account ────────────────────────────────────────────────────────────────

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect linked accounts",
}

var accountShowCmd = &cobra.Command{
	Use:   "show DISCORD_ID",
	Short: "Print a linked account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discordID, err := parseID("discord id", args[0])
		if err != nil {
			return err
		}
		return withEnv(func(ctx context.Context, e *env) error {
			acc, err := e.ledger.GetAccount(ctx, discordID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		})
	},
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Adjust account balances",
}

var balanceSetCmd = &cobra.Command{
	Use:   "set DISCORD_ID AMOUNT",
	Short: "Overwrite an account balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		discordID, err := parseID("discord id", args[0])
		if err != nil {
			return err
		}
		var amount int64
		if _, err := fmt.Sscan(args[1], &amount); err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		actorID, _ := cmd.Flags().GetInt64("actor")

		return withEnv(func(ctx context.Context, e *env) error {
			change, err := e.ledger.SetBalance(ctx, actorID, discordID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d\n", change.DiscordUsername, change.PriorBalance, change.Balance)
			return nil
		})
	},
}

// ─── transfers ──────────────────────────────────────────────────────────────

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Inspect transfer history",
}

var transfersListCmd = &cobra.Command{
	Use:   "list DISCORD_ID",
	Short: "List transfers sent or received by an account, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discordID, err := parseID("discord id", args[0])
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		return withEnv(func(ctx context.Context, e *env) error {
			records, total, err := e.ledger.ListTransfers(ctx, discordID, page, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO\tAMOUNT\tKIND\tAT")
			for _, r := range records {
				kind := "transfer"
				switch {
				case r.TaskReward:
					kind = "task"
				case r.JobReward:
					kind = "job"
				}
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\n",
					r.ID, r.SenderID, r.ReceiverID, r.Amount, kind, r.CreatedAt.UTC().Format(time.RFC3339))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(records), total)
			return nil
		})
	},
}
