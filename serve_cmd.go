package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"node.town/attacca/www"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent readings",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of readings to show")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var history www.HistoryReader
	if a.store != nil {
		history = a.store
	}

	server := www.NewServer(a.pipeline, history, a.cfg.Images.Dir, a.loggers.HTTP)
	return server.Serve(ctx, a.cfg.HTTPPort)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return fmt.Errorf("missing DATABASE_URL or --database-url=")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	readings, err := a.store.RecentReadings(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(readings) == 0 {
		fmt.Println("No readings yet.")
		return nil
	}

	table := newTable([]string{"When", "Character", "Energy", "Genre", "Platform", "Transcript"})
	for _, r := range readings {
		table.Append([]string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Action.Emoji + " " + r.Action.Name,
			fmt.Sprintf("%.0f%%", r.Emotion.Score*100),
			r.Genre,
			string(r.Platform),
			r.Transcript,
		})
	}
	table.Render()
	return nil
}
