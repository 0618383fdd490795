package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"node.town/attacca/action"
	"node.town/attacca/pipeline"
	"node.town/attacca/transcription"
	"node.town/attacca/ui"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record, transcribe and find the feeling",
	Long: `Record from the microphone for a few seconds while showing the
transcript as it forms, then classify it and recommend something to play.

Stopping early (q, esc or ctrl+c) keeps the transcript so far but skips
the reading: nothing is classified, recommended or saved.`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().IntP("duration", "d", 5, "Seconds to record (3-10)")
	recordCmd.Flags().StringP("genre", "g", "pop", "Preferred genre")
	recordCmd.Flags().StringP("platform", "p", "spotify", "spotify or youtube")
	recordCmd.Flags().Bool("drain-tail", false, "Transcribe audio still queued at the deadline")
	recordCmd.Flags().String("recorder", "arecord", "Capture tool (arecord, sox, ffmpeg)")
	recordCmd.Flags().String("device", "", "Capture device name")
	recordCmd.Flags().StringP("input", "i", "", "Replay a 16 kHz mono WAV file instead of the microphone")
	recordCmd.Flags().Bool("plain", false, "Print plain text instead of the live view")
	recordCmd.Flags().Bool("ask", false, "Choose platform, genre and duration interactively")

	viper.BindPFlag("record.duration", recordCmd.Flags().Lookup("duration"))
	viper.BindPFlag("record.genre", recordCmd.Flags().Lookup("genre"))
	viper.BindPFlag("record.platform", recordCmd.Flags().Lookup("platform"))
	viper.BindPFlag("record.drain_tail", recordCmd.Flags().Lookup("drain-tail"))
	viper.BindPFlag("audio.command", recordCmd.Flags().Lookup("recorder"))
	viper.BindPFlag("audio.device", recordCmd.Flags().Lookup("device"))
	viper.BindPFlag("audio.input", recordCmd.Flags().Lookup("input"))
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	prefs := ui.Preferences{
		Platform: a.cfg.Record.Platform,
		Genre:    a.cfg.Record.Genre,
		Duration: a.cfg.Record.Duration,
	}
	if ask, _ := cmd.Flags().GetBool("ask"); ask {
		if err := ui.AskPreferences(&prefs); err != nil {
			return err
		}
	}

	platform, err := action.ParsePlatform(prefs.Platform)
	if err != nil {
		return err
	}
	opts := pipeline.Options{
		Duration: secondsToDuration(prefs.Duration),
		Genre:    prefs.Genre,
		Platform: platform,
	}

	plain, _ := cmd.Flags().GetBool("plain")
	if plain {
		opts.Sink = transcription.SinkFunc(func(p transcription.Progress) {
			fmt.Fprintln(os.Stderr, p.String())
		})
		reading, err := a.pipeline.Run(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Print(ui.PlainReading(reading))
		return nil
	}

	reading, err := ui.RunRecording(
		ctx,
		opts.Duration,
		func(ctx context.Context, sink transcription.Sink) (*pipeline.Reading, error) {
			opts.Sink = sink
			return a.pipeline.Run(ctx, opts)
		},
	)
	if err != nil {
		return err
	}

	fmt.Println(ui.RenderReading(reading, 72))
	return nil
}
