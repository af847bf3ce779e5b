package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/address-validator/app/config"
	"github.com/address-validator/app/models"
	"github.com/address-validator/app/requests"
	"github.com/address-validator/app/services"
	"github.com/address-validator/helpers/utils"
	"github.com/address-validator/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLineBytes giới hạn độ dài một dòng NDJSON
const maxLineBytes = 1 << 20

// Worker đọc địa chỉ NDJSON từ stdin, ghi kết quả NDJSON ra stdout theo đúng thứ tự.
func main() {
	configDir := flag.String("config", "", "directory containing app.yaml (default ./config and .)")
	chunk := flag.Int("chunk", 0, "addresses per batch (default batch.max_size)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	var dirs []string
	if *configDir != "" {
		dirs = append(dirs, *configDir)
	}
	cfg, err := config.Load(dirs...)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	level := zapcore.InfoLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	logger, err := utils.NewStderrLogger(cfg.App.Env, level)
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v", err)
	}
	defer logger.Sync()

	stack, err := services.NewStack(cfg, logger, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		logger.Fatal("Failed to initialize validation stack", zap.Error(err))
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	size := *chunk
	if size <= 0 {
		size = cfg.Batch.MaxSize
	}

	w := &worker{service: stack.Service, chunkSize: size, logger: logger}
	n, err := w.run(ctx, os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("Worker failed", zap.Int("processed", n), zap.Error(err))
	}
	logger.Info("Worker finished", zap.Int("processed", n))
}

type worker struct {
	service   *services.ValidationService
	chunkSize int
	logger    *zap.Logger
}

// slot giữ vị trí của một dòng: input hợp lệ hoặc kết quả lỗi đã có sẵn
type slot struct {
	input  models.AddressInput
	result *models.ValidationResult
}

// run trả về số kết quả đã ghi
func (w *worker) run(ctx context.Context, r io.Reader, out io.Writer) (int, error) {
	if w.chunkSize <= 0 {
		w.chunkSize = 100
	}
	if limit := w.service.MaxBatchSize(); limit > 0 && w.chunkSize > limit {
		w.chunkSize = limit
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(out)
	enc := json.NewEncoder(bw)

	var (
		pending []slot
		lineNo  int
		written int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		results, err := w.process(ctx, pending)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		}
		written += len(results)
		pending = pending[:0]
		return bw.Flush()
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req requests.ValidateAddressRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			w.logger.Warn("Skipping invalid input line", zap.Int("line", lineNo), zap.Error(err))
			pending = append(pending, slot{result: models.NewErrorResult(models.AddressInput{}, nil,
				fmt.Sprintf("invalid input on line %d: %v", lineNo, err))})
		} else {
			pending = append(pending, slot{input: req.ToInput()})
		}

		if len(pending) >= w.chunkSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return written, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// process validate các slot hợp lệ trong một batch và ghép lại đúng thứ tự
func (w *worker) process(ctx context.Context, slots []slot) ([]*models.ValidationResult, error) {
	var (
		inputs []models.AddressInput
		index  []int
	)
	for i, s := range slots {
		if s.result == nil {
			inputs = append(inputs, s.input)
			index = append(index, i)
		}
	}

	out := make([]*models.ValidationResult, len(slots))
	for i, s := range slots {
		out[i] = s.result
	}
	if len(inputs) == 0 {
		return out, nil
	}

	results, err := w.service.ValidateBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for j, res := range results {
		out[index[j]] = res
	}
	return out, nil
}
