// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr           string
	DataDir            string // badger store for layouts and settings
	OCRLanguage        string
	OCRPageSegMode     int
	Voice              string
	SpeechRate         int // words per minute
	DefaultPollMs      int
	DedupWindow        int
	SkipUnchangedFrame bool // perceptual-hash skip before OCR
	HashMaxDistance    int
	HotkeysEnabled     bool
	ShutdownTimeout    time.Duration
	Debug              bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8300"),
		DataDir:            getEnv("DATA_DIR", defaultDataDir()),
		OCRLanguage:        getEnv("OCR_LANGUAGE", "eng"),
		OCRPageSegMode:     getEnvInt("OCR_PSM", 3),
		Voice:              getEnv("VOICE", ""),
		SpeechRate:         getEnvInt("SPEECH_RATE", 180),
		DefaultPollMs:      getEnvInt("DEFAULT_POLL_MS", 1000),
		DedupWindow:        getEnvInt("DEDUP_WINDOW", 1),
		SkipUnchangedFrame: getEnvBool("SKIP_UNCHANGED_FRAMES", true),
		HashMaxDistance:    getEnvInt("HASH_MAX_DISTANCE", 3),
		HotkeysEnabled:     getEnvBool("HOTKEYS_ENABLED", true),
		ShutdownTimeout:    time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 5)) * time.Second,
		Debug:              getEnvBool("DEBUG", false),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screenvoice"
	}
	return home + "/.screenvoice"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
