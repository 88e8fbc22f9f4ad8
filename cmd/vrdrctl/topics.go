package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
)

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage Redpanda topics",
	}
	cmd.PersistentFlags().String("brokers", "localhost:9092", "Comma separated seed brokers")

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create any missing death record topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, _ := cmd.Flags().GetInt16("replication-factor")
			return withAdmin(cmd, func(ctx context.Context, admin *redpanda.Admin) error {
				created, err := admin.EnsureTopics(ctx, rf)
				if err != nil {
					return err
				}
				if len(created) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "all topics exist")
				}
				for _, name := range created {
					fmt.Fprintln(cmd.OutOrStdout(), "created", name)
				}
				return nil
			})
		},
	}
	ensureCmd.Flags().Int16("replication-factor", 1, "Replication factor for new topics")
	cmd.AddCommand(ensureCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List topics on the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, admin *redpanda.Admin) error {
				names, err := admin.ListTopics(ctx)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lag <group>",
		Short: "Show how far a consumer group trails each partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, admin *redpanda.Admin) error {
				lags, err := admin.GroupLag(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TOPIC\tPARTITION\tCOMMITTED\tEND\tLAG")
				for _, l := range lags {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", l.Topic, l.Partition, l.Committed, l.End, l.Lag)
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}

func withAdmin(cmd *cobra.Command, fn func(context.Context, *redpanda.Admin) error) error {
	raw, _ := cmd.Flags().GetString("brokers")
	brokers := splitBrokers(raw)
	if len(brokers) == 0 {
		return fmt.Errorf("--brokers is required")
	}

	admin, err := redpanda.NewAdmin(brokers, zap.NewNop())
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return fn(ctx, admin)
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
