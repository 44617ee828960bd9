package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Work with dead-lettered events",
	}

	replay := &cobra.Command{
		Use:   "replay <topic>",
		Short: "Move dead-lettered events back onto their topic",
		Long: "Reads <topic>.dlq from the oldest uncommitted message and republishes each " +
			"event to the topic it failed on. Stops when no message arrives for --idle.",
		Example: "  ocsctl dlq replay ocs.index.updated --brokers kafka:9092 --limit 10",
		Args:    cobra.ExactArgs(1),
		RunE:    runReplay,
	}
	replay.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka brokers")
	replay.Flags().String("group", "ocsctl-dlq-replay", "Consumer group that tracks replayed offsets")
	replay.Flags().Int("limit", 0, "Replay at most this many events (0 = all)")
	replay.Flags().Duration("idle", 5*time.Second, "Wait this long for the next event before stopping")
	cmd.AddCommand(replay)

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	brokers, _ := cmd.Flags().GetStringSlice("brokers")
	group, _ := cmd.Flags().GetString("group")
	limit, _ := cmd.Flags().GetInt("limit")
	idle, _ := cmd.Flags().GetDuration("idle")

	r := pkgkafka.NewReplayer(pkgkafka.ReplayConfig{
		Brokers: brokers,
		Topic:   args[0],
		GroupID: group,
		Limit:   limit,
		Idle:    idle,
	}, commandLogger(cmd))
	defer r.Close()

	n, err := r.Run(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events from %s\n", n, pkgkafka.DLQTopic(args[0]))
	return err
}
