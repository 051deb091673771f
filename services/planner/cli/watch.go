package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-prodplan/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the planning event stream",
	Long: `Consume the planning events topic and print each event as it arrives.
Useful for debugging and for watching plan progress from a terminal.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("kafka-brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	watchCmd.Flags().String("group", "prodplan-watch", "Kafka consumer group ID")
	bindFlag("kafka_brokers", watchCmd.Flags(), "kafka-brokers")
	bindFlag("watch_group", watchCmd.Flags(), "group")
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfgLogger := buildLogger(viper.GetString("log_level"), "prodplan-watch")
	brokers := strings.Split(viper.GetString("kafka_brokers"), ",")
	consumer := events.NewConsumer(brokers, viper.GetString("watch_group"), cfgLogger)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", events.Topic)
	return consumer.Subscribe(ctx, func(_ context.Context, env events.Envelope) error {
		line := fmt.Sprintf("%s  %-16s  plan=%s", env.At.Format("15:04:05"), env.Event, env.PlanID)
		if env.TaskID != "" {
			line += "  task=" + env.TaskID
		}
		if env.Status != "" {
			line += "  status=" + env.Status
		}
		fmt.Println(line)
		return nil
	})
}
