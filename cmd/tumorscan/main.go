package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brainmri/tumorscan/internal/config"
	"github.com/brainmri/tumorscan/internal/detect"
	"github.com/brainmri/tumorscan/internal/imaging"
	"github.com/brainmri/tumorscan/internal/info"
	"github.com/brainmri/tumorscan/internal/pipeline"
	"github.com/brainmri/tumorscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	fakeMode := flag.Bool("fake", false, "serve with a deterministic fake detector (no model required)")
	scanMode := flag.Bool("scan", false, "scan the given image files and exit instead of serving")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("tumorscan %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	cfg := config.Load()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		log.Fatalf("failed to load descriptions: %v", err)
	}

	detector, closeDetector, err := buildDetector(cfg, *fakeMode, log)
	if err != nil {
		log.Fatalf("failed to open detector: %v", err)
	}
	defer closeDetector()

	runner := pipeline.NewRunner(detector, resolver, pipeline.Options{
		JPEGQuality: cfg.JPEGQuality,
		Log:         log,
	})

	if *scanMode {
		if err := scanFiles(runner, cfg.DefaultThreshold, flag.Args(), log); err != nil {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(runner, server.Config{
		Addr:             cfg.Addr,
		DefaultThreshold: cfg.DefaultThreshold,
		MaxUploadMB:      cfg.MaxUploadMB,
		Log:              log,
	})
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "tumorscan - MRI tumor detection and annotation service")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  tumorscan [flags]            serve the HTTP API")
	fmt.Fprintln(os.Stderr, "  tumorscan -scan file...      scan local files and exit")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Environment variables:")
	fmt.Fprintln(os.Stderr, "  ADDR, MODEL_PATH, ORT_LIB_PATH, LABELS, THRESHOLD,")
	fmt.Fprintln(os.Stderr, "  JPEG_QUALITY, DESCRIPTIONS_PATH, MAX_UPLOAD_MB, LOG_LEVEL")
	fmt.Fprintln(os.Stderr, "  A .env file in the working directory is honored.")
}

func buildResolver(cfg *config.Config) (*info.Resolver, error) {
	if cfg.DescriptionsPath != "" {
		return info.NewResolverFromFile(cfg.DescriptionsPath)
	}
	return info.NewResolver(), nil
}

func buildDetector(cfg *config.Config, fake bool, log *logrus.Logger) (detect.Detector, func(), error) {
	if fake {
		log.Warn("running with the fake detector; results are synthetic")
		return &detect.Static{
			Detections: []detect.Detection{
				{Box: detect.Box{X1: 40, Y1: 40, X2: 200, Y2: 180}, ClassID: 0, Confidence: 0.91},
				{Box: detect.Box{X1: 220, Y1: 120, X2: 360, Y2: 260}, ClassID: 1, Confidence: 0.64},
			},
			Labels: cfg.Labels,
		}, func() {}, nil
	}

	det, err := detect.NewONNXDetector(detect.ONNXConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.LibraryPath,
		Labels:      cfg.Labels,
		Log:         log,
	})
	if err != nil {
		return nil, nil, err
	}
	return det, func() { _ = det.Close() }, nil
}

// scanFiles runs the batch mode: each file is scanned, its annotated
// artifact written next to the input, and findings printed to stdout.
func scanFiles(runner *pipeline.Runner, threshold float64, paths []string, log *logrus.Logger) error {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no input files; usage: tumorscan -scan file...")
		return fmt.Errorf("no input files")
	}

	cache := imaging.NewImageCache()
	items := make([]pipeline.BatchItem, 0, len(paths))
	for _, path := range paths {
		img, err := cache.Load(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Error("skipping unreadable file")
			continue
		}
		items = append(items, pipeline.BatchItem{Name: path, Image: img})
	}

	results := runner.RunBatch(context.Background(), items, threshold)

	var failed bool
	for _, res := range results {
		if res.Err != nil {
			failed = true
			log.WithError(res.Err).WithField("file", res.Name).Error("scan failed")
			continue
		}

		outPath := annotatedPath(res.Name)
		if err := os.WriteFile(outPath, res.Result.AnnotatedJPEG, 0o644); err != nil {
			failed = true
			log.WithError(err).WithField("file", outPath).Error("failed to write artifact")
			continue
		}

		fmt.Printf("%s: %d detection(s)\n", res.Name, res.Result.Detections)
		for _, f := range res.Result.Findings {
			fmt.Printf("  %s (%.2f%%)\n", f.Category, f.Confidence*100)
		}
		fmt.Printf("  annotated: %s\n", outPath)
	}

	if len(items) < len(paths) {
		failed = true
	}
	if failed {
		return fmt.Errorf("one or more files failed")
	}
	return nil
}

// annotatedPath derives the artifact path for an input file:
// scan.png -> scan_annotated.jpg, beside the input.
func annotatedPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_annotated.jpg"
}
