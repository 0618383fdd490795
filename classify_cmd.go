package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"node.town/attacca/action"
	"node.town/attacca/ui"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Find the feeling in a piece of text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "List the characters and their colours",
	Args:  cobra.NoArgs,
	Run:   runMoods,
}

func init() {
	classifyCmd.Flags().StringP("genre", "g", action.DefaultGenre, "Preferred genre")
	classifyCmd.Flags().StringP("platform", "p", string(action.Spotify), "spotify or youtube")
	classifyCmd.Flags().Bool("plain", false, "Print plain text instead of the card")
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	genre, _ := cmd.Flags().GetString("genre")
	if !action.ValidGenre(genre) {
		return fmt.Errorf("unknown genre %q", genre)
	}
	rawPlatform, _ := cmd.Flags().GetString("platform")
	platform, err := action.ParsePlatform(rawPlatform)
	if err != nil {
		return err
	}

	reading, err := a.pipeline.Classify(cmd.Context(), strings.Join(args, " "), genre, platform)
	if err != nil {
		return err
	}

	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		fmt.Print(ui.PlainReading(reading))
		return nil
	}
	fmt.Println(ui.RenderReading(reading, 72))
	return nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func runMoods(cmd *cobra.Command, args []string) {
	table := newTable([]string{"Label", "Character", "Emoji", "Color", "Accent"})
	for _, rec := range action.Records() {
		table.Append([]string{
			string(rec.Label),
			rec.Name,
			rec.Emoji,
			rec.Color,
			rec.Darker,
		})
	}
	table.Render()
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
