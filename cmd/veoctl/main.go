package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"veostudio/internal/infra"
	"veostudio/internal/providers/genai"
	"veostudio/internal/storage"
	"veostudio/internal/videogen"
)

// veoctl runs a single generation from the command line and leaves the
// produced files in the storage directory.
func main() {
	prompt := flag.String("prompt", "", "text prompt for the video")
	imagePath := flag.String("image", "", "optional reference image file")
	count := flag.Int("count", 1, "number of videos (1-4)")
	aspect := flag.String("aspect", "16:9", "aspect ratio (16:9, 9:16, 1:1, 4:3, 3:4)")
	negative := flag.String("negative", "", "optional negative prompt")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var image *videogen.ReferenceImage
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *imagePath).Msg("veoctl: read reference image")
		}
		image = &videogen.ReferenceImage{Data: data, MIME: mimeForFile(*imagePath)}
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("veoctl: configure storage")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.VeoModel,
		HTTPClient: &http.Client{Timeout: cfg.HTTPWriteTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("veoctl: configure gemini client")
	}

	poller := videogen.NewPoller(client, videogen.PollerOptions{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Logger:      &logger,
	})
	fetcher := videogen.NewFetcher(client, store, &logger)
	resources := videogen.NewResourceManager(&logger)
	controller := videogen.NewController(client, poller, fetcher, resources, videogen.ControllerOptions{
		Model:  client.Model(),
		Logger: &logger,
		OnProgress: func(p videogen.Progress) {
			if p.Stage == videogen.StagePolling {
				fmt.Fprintf(os.Stderr, "\rwaiting for job... %d/%d", p.Attempt, p.Max)
			}
		},
	})

	batch, err := controller.Submit(ctx, *prompt, image, videogen.Settings{
		Count:          *count,
		Aspect:         videogen.AspectRatio(*aspect),
		NegativePrompt: *negative,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Fatal().Err(err).Msg("veoctl: generation failed")
	}

	for _, res := range batch {
		path, pathErr := store.Path(res.Key)
		if pathErr != nil {
			path = res.Key
		}
		fmt.Println(path)
	}
}

func mimeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
