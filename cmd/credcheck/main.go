package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/address-validator/app/config"
	"github.com/address-validator/helpers/utils"
	"github.com/address-validator/internal/swisspost"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	exitOK      = 0
	exitAuth    = 1
	exitMissing = 2
)

// report là dòng JSON duy nhất ghi ra stdout
type report struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// Credcheck thực hiện một lần OAuth exchange để kiểm tra credentials trước khi khởi động service.
func main() {
	configDir := flag.String("config", "", "directory containing app.yaml (default ./config and .)")
	flag.Parse()

	var dirs []string
	if *configDir != "" {
		dirs = append(dirs, *configDir)
	}
	cfg, err := config.Load(dirs...)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger, err := utils.NewStderrLogger(cfg.App.Env, zapcore.WarnLevel)
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v", err)
	}
	defer logger.Sync()

	os.Exit(check(context.Background(), cfg, os.Stdout, logger))
}

func check(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) int {
	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		emit(out, report{Status: "error", Message: "missing environment variables", Missing: missing})
		return exitMissing
	}

	tokens, err := swisspost.NewTokenCache(cfg.OAuth(), nil, nil, logger, nil)
	if err != nil {
		emit(out, report{Status: "error", Message: err.Error()})
		return exitMissing
	}

	timeout := cfg.SwissPost.TokenTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := tokens.Exchange(ctx); err != nil {
		emit(out, report{Status: "error", Message: fmt.Sprintf("OAuth failed: %v", err)})
		return exitAuth
	}

	emit(out, report{Status: "ok", Message: "credentials valid"})
	return exitOK
}

func emit(out io.Writer, r report) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(r)
}
