package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"node.town/attacca/config"
	"node.town/attacca/db"
	"node.town/attacca/emotion"
	"node.town/attacca/pipeline"
	"node.town/attacca/snd"
	"node.town/attacca/stt"
)

// app holds the process-wide pieces built once from config.
type app struct {
	cfg      *config.Config
	loggers  Loggers
	engine   stt.Engine
	source   snd.Source
	selector *emotion.Selector
	store    *db.Store
	pipeline *pipeline.Pipeline
	closers  []io.Closer
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newApp builds everything a command needs. With withAudio unset no
// recognizer or microphone is configured.
func newApp(ctx context.Context, withAudio bool) (*app, error) {
	loggers := createLoggers()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loggers: loggers}

	classifier, err := buildClassifier(ctx, cfg, loggers)
	if err != nil {
		return nil, err
	}
	if c, ok := classifier.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.selector = emotion.NewSelector(classifier, loggers.Feel)

	if withAudio {
		a.engine = stt.NewVoskEngine(cfg.Recognizer.URL, cfg.Recognizer.Timeout, loggers.Hear)
		a.closers = append(a.closers, a.engine)
		a.source = buildSource(cfg, loggers)
	}

	a.pipeline = pipeline.New(a.engine, a.source, a.selector, loggers.Main)
	a.pipeline.SetSessionDefaults(cfg.Record.QueueSize, cfg.Record.DrainTail)

	if cfg.DatabaseURL != "" {
		store, err := db.Open(ctx, cfg.DatabaseURL, loggers.Data)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
		a.pipeline.SetHistory(store)
	}

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.loggers.Main.Warn("close", "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

func buildSource(cfg *config.Config, loggers Loggers) snd.Source {
	if cfg.Audio.Input != "" {
		loggers.Hear.Info("replaying", "file", cfg.Audio.Input)
		return snd.Exclusive(snd.NewWavSource(cfg.Audio.Input, loggers.Hear))
	}
	return snd.Exclusive(snd.NewExecSource(cfg.Audio.Command, cfg.Audio.Device, loggers.Hear))
}

func buildClassifier(
	ctx context.Context,
	cfg *config.Config,
	loggers Loggers,
) (emotion.Classifier, error) {
	switch cfg.Classifier.Backend {
	case "gemini":
		client, err := emotion.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return emotion.NewGeminiClassifier(client, cfg.Classifier.Model, loggers.Feel), nil
	case "http":
		return emotion.NewHTTPClassifier(
			cfg.Classifier.URL,
			cfg.Classifier.Format,
			cfg.Classifier.Token,
			loggers.Feel,
		), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Classifier.Backend)
	}
}
