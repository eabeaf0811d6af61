package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vidtutor/internal/api"
	"vidtutor/internal/assistant"
	"vidtutor/internal/config"
	"vidtutor/internal/core"
	"vidtutor/internal/history"
	"vidtutor/internal/knowledge"
	"vidtutor/internal/llm"
	"vidtutor/internal/manager"
	"vidtutor/internal/speech"
	"vidtutor/internal/ui"
	"vidtutor/internal/utils"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Application panic recovered: %v", r)
			os.Exit(1)
		}
	}()

	var port int
	var configPath string
	flag.IntVar(&port, "port", 0, "Port to run the server on (overrides config file)")
	flag.StringVar(&configPath, "config", "config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg.ApplyEnv()
	if port > 0 {
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := utils.Setup(utils.Options{Verbose: cfg.VerboseLogging, Console: true, File: cfg.LogFile}); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	if cfg.OpenAIAPIKey == "" {
		utils.LogWarning("No OpenAI API key configured; set OPENAI_API_KEY or openai_api_key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Checking yt-dlp availability...\n")
	installer := core.NewInstaller(filepath.Join(cfg.DataPath, "bin"))
	if path, err := installer.EnsureYtDlp(ctx, cfg.YtDlpPath); err != nil {
		fmt.Printf("Warning: yt-dlp is unavailable: %v\n", err)
	} else {
		cfg.YtDlpPath = path
	}

	fmt.Printf("Checking ffmpeg availability...\n")
	if !core.CheckFfmpegAvailable(cfg.FfmpegPath) {
		fmt.Printf("❌ ffmpeg not found at %s or in system PATH\n", cfg.FfmpegPath)
		fmt.Printf("Uploads that are not mp3 will fail until ffmpeg is installed.\n\n")
	} else {
		versions := core.GetVersionInfo(cfg.YtDlpPath, cfg.FfmpegPath)
		fmt.Printf("✓ yt-dlp %s, ffmpeg %s\n", versions.YtDlpVersion, versions.FfmpegVersion)
	}

	openAI := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, llm.Models{
		Chat:          cfg.ChatModel,
		Embedding:     cfg.EmbeddingModel,
		Transcription: cfg.TranscriptionModel,
		Speech:        cfg.SpeechModel,
		Voice:         cfg.SpeechVoice,
	})

	historyStore, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		log.Fatalf("Failed to open chat history: %v", err)
	}
	defer historyStore.Close()

	indexStore := knowledge.NewStore(cfg.IndexDir())
	indexer := knowledge.NewIndexer(openAI, openAI, indexStore)

	var images assistant.ImageGenerator
	if cfg.IdeogramAPIKey != "" {
		images = assistant.NewIdeogram(cfg.IdeogramAPIKey)
	}
	agent := assistant.NewAgent(openAI, openAI, indexStore, historyStore, images, cfg.RetrievalChunks)

	fetcher := core.NewFetcher(cfg.YtDlpPath, cfg.FfmpegPath, cfg.CookiesFile)
	jobManager := manager.NewJobManager(fetcher, indexer, cfg.MaxConcurrentJobs, cfg.UploadDir(), cfg.DataPath)

	apiHandler := api.NewHandler(cfg, fetcher, jobManager, agent, speech.NewService(openAI, openAI), historyStore)
	uiHandler := ui.NewTemplateHandler(cfg)

	router := api.SetupRoutes(apiHandler, ui.Assets)
	router.HandleFunc("/", uiHandler.ServeIndex).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Starting vidtutor server...\n")
	fmt.Printf("Port: %d\n", cfg.Port)
	fmt.Printf("Data path: %s\n", cfg.DataPath)
	fmt.Printf("Chat model: %s\n", cfg.ChatModel)
	fmt.Printf("Max concurrent jobs: %d\n", cfg.MaxConcurrentJobs)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Printf("\n❌ Failed to start server on port %d: %v\n", cfg.Port, err)
		fmt.Printf("\nTo change the port, you can:\n")
		fmt.Printf("1. Edit config.json and change the \"port\" value\n")
		fmt.Printf("2. Use command line: ./vidtutor -port 3000\n")
		fmt.Printf("3. Use environment variable: VIDTUTOR_PORT=3000 ./vidtutor\n")
		os.Exit(1)
	}

	fmt.Printf("✓ Server is ready and listening on http://localhost%s\n", addr)
	fmt.Printf("Press Ctrl+C to stop the server\n")

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Printf("\n\nShutting down gracefully...\n")
	case err := <-serverErrChan:
		fmt.Printf("\n❌ Server error: %v\n", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	fmt.Printf("Stopping job manager...\n")
	jobManager.Shutdown()

	fmt.Printf("Stopping HTTP server...\n")
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Error during server shutdown: %v\n", err)
	}

	fmt.Printf("✓ Server shutdown complete\n")
}
