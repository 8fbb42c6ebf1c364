package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/gommon/log"

	"yaari/pkg/inference"
	"yaari/pkg/relay"
	"yaari/pkg/search"
	"yaari/pkg/server"
	"yaari/pkg/store"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var inf inference.Inferencer
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		gemini, err := inference.NewGeminiInferencer(geminiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatalf("failed to init gemini client: %v", err)
		}
		inf = gemini
	} else if openaiKey := os.Getenv("OPENAI_API_KEY"); openaiKey != "" {
		inf = inference.NewOpenAIInferencer(openaiKey, os.Getenv("OPENAI_MODEL"))
	} else if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		// Local OpenAI-compatible endpoint for development.
		openAI := inference.NewOpenAIInferencer("", os.Getenv("OPENAI_MODEL"))
		openAI.ChangeBaseURL(base)
		inf = openAI
	} else {
		log.Warn("no model API key configured; chat turns will answer with the configuration apology")
	}

	sc := search.NewClient(ctx, os.Getenv("SEARCH_API_KEY"), os.Getenv("SEARCH_ENGINE_ID"))
	if !sc.Configured() {
		log.Info("search API not configured; tax-query augmentation disabled")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	st := store.New(dataDir, store.DefaultIdle)

	srv := server.NewServer(ctx, relay.New(inf, sc), st, dataDir)
	srv.Echo.Logger.SetLevel(log.INFO)

	addr := ":8080"
	if envAddr := os.Getenv("PORT"); envAddr != "" {
		addr = ":" + envAddr
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error(err)
		}
		done()
		close(finishedShutDown)
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
	<-finishedShutDown
}
