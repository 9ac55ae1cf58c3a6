package cli

import (
	"fmt"
	"log/slog"

	"github.com/nsqio/go-nsq"
	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log pipeline events published to nsqd until interrupted",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runWatch,
}

var watchFlags struct {
	channel string
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchFlags.channel, "channel", "watch", "NSQ channel to consume from")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := session.cfg
	if cfg.NSQDHost == "" {
		return fmt.Errorf("%w: NSQD_HOST is not set", config.ErrMissingRequired)
	}

	handler := worker.NewEventConsumer(worker.LogSink{})
	var consumers []*nsq.Consumer
	defer func() {
		for _, c := range consumers {
			c.Stop()
			<-c.StopChan
		}
	}()

	for _, topic := range []string{config.TopicArtifactWritten, config.TopicPipelineCompleted} {
		c, err := nsq.NewConsumer(topic, watchFlags.channel, nsq.NewConfig())
		if err != nil {
			return fmt.Errorf("nsq consumer error: %w", err)
		}
		c.AddHandler(handler)
		consumers = append(consumers, c)
		if err := c.ConnectToNSQD(cfg.NSQDHost); err != nil {
			return fmt.Errorf("failed to connect to nsqd: %w", err)
		}
		slog.InfoContext(cmd.Context(), "watching topic", "topic", topic, "channel", watchFlags.channel)
	}

	<-cmd.Context().Done()
	return nil
}
