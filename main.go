package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(moodsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	rootCmd.PersistentFlags().
		String("recognizer-url", "", "vosk-server websocket URL")
	rootCmd.PersistentFlags().
		String("classifier", "", "Emotion classifier backend (http, gemini)")
	rootCmd.PersistentFlags().
		String("classifier-url", "", "Emotion classifier endpoint")
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL for reading history")
	rootCmd.PersistentFlags().String("images-dir", "", "Directory of character images")
	rootCmd.PersistentFlags().Int("http-port", 8081, "HTTP server port")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag(
		"recognizer.url",
		rootCmd.PersistentFlags().Lookup("recognizer-url"),
	)
	viper.BindPFlag(
		"classifier.backend",
		rootCmd.PersistentFlags().Lookup("classifier"),
	)
	viper.BindPFlag(
		"classifier.url",
		rootCmd.PersistentFlags().Lookup("classifier-url"),
	)
	viper.BindPFlag(
		"gemini_api_key",
		rootCmd.PersistentFlags().Lookup("gemini-api-key"),
	)
	viper.BindPFlag(
		"database_url",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag("images.dir", rootCmd.PersistentFlags().Lookup("images-dir"))
	viper.BindPFlag("http_port", rootCmd.PersistentFlags().Lookup("http-port"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	logger = log.New(os.Stderr)

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		logger.Warn("config", "error", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "attacca",
	Short: "Riley's Rhythms: speak, and a feeling picks your music",
	Long: `Attacca records a few seconds of speech, transcribes it as you talk,
picks the strongest emotion in what you said, and recommends music
or videos to match.`,
	SilenceUsage: true,
}

// Loggers is one prefixed logger per component.
type Loggers struct {
	Main, Hear, Feel, Data, HTTP *log.Logger
}

func createLoggers() Loggers {
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	logLevel := log.InfoLevel
	if viper.GetBool("debug") {
		logLevel = log.DebugLevel
	}

	logger.SetLevel(logLevel)
	logger.SetReportCaller(logLevel == log.DebugLevel)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(16)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)

	return Loggers{
		Main: logger.With().WithPrefix("main"),
		Hear: logger.With().WithPrefix("hear"),
		Feel: logger.With().WithPrefix("feel"),
		Data: logger.With().WithPrefix("data"),
		HTTP: logger.With().WithPrefix("http"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
