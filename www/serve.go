// Package www serves moods, classification and history over HTTP.
package www

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"node.town/attacca/action"
	"node.town/attacca/config"
	"node.town/attacca/pipeline"
)

// Classifier runs the post-transcript half of the pipeline.
type Classifier interface {
	Classify(
		ctx context.Context,
		text string,
		genre string,
		platform action.Platform,
	) (*pipeline.Reading, error)
}

type HistoryReader interface {
	RecentReadings(ctx context.Context, limit int) ([]*pipeline.Reading, error)
}

type Server struct {
	classifier Classifier
	history    HistoryReader
	imagesDir  string
	validate   *validator.Validate
	logger     *log.Logger
	router     *chi.Mux
}

// NewServer builds the router. history may be nil, which disables
// /history.
func NewServer(
	classifier Classifier,
	history HistoryReader,
	imagesDir string,
	logger *log.Logger,
) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		classifier: classifier,
		history:    history,
		imagesDir:  imagesDir,
		validate:   config.NewValidator(),
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logger.StandardLog(),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/moods", s.handleMoods)
	r.Get("/moods/{label}", s.handleMood)
	r.Post("/classify", s.handleClassify)
	r.Get("/recommend", s.handleRecommend)
	if history != nil {
		r.Get("/history", s.handleHistory)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on port until ctx is canceled.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
