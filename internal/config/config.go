// Package config loads process configuration from the environment, with
// optional .env file support.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/brainmri/tumorscan/internal/detect"
)

// Config carries every runtime knob of the service. It is built once at
// process start and treated as immutable afterwards.
type Config struct {
	Addr string

	// ModelPath points at the ONNX checkpoint; LibraryPath optionally at
	// the onnxruntime shared library.
	ModelPath   string
	LibraryPath string

	// Labels is the model's class id -> name table, parsed from a
	// comma-separated LABELS value in class id order.
	Labels detect.LabelTable

	// DefaultThreshold applies when a scan request carries no threshold.
	DefaultThreshold float64

	JPEGQuality      int
	DescriptionsPath string
	MaxUploadMB      int
	LogLevel         string
}

// Default label space of the tumor detection checkpoints this service
// ships with.
const defaultLabels = "glioma,meningioma,pituitary,tumor"

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present; real environment variables
// win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:             getEnv("ADDR", ":8080"),
		ModelPath:        getEnv("MODEL_PATH", "best.onnx"),
		LibraryPath:      getEnv("ORT_LIB_PATH", ""),
		Labels:           parseLabels(getEnv("LABELS", defaultLabels)),
		DefaultThreshold: getEnvAsFloat("THRESHOLD", 0.25),
		JPEGQuality:      getEnvAsInt("JPEG_QUALITY", 90),
		DescriptionsPath: getEnv("DESCRIPTIONS_PATH", ""),
		MaxUploadMB:      getEnvAsInt("MAX_UPLOAD_MB", 32),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// parseLabels turns "glioma,meningioma" into {0: "glioma", 1: "meningioma"}.
func parseLabels(s string) detect.LabelTable {
	table := make(detect.LabelTable)
	for i, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		table[i] = name
	}
	return table
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
