package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oosc/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("OOSC_CLI_TEST=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OOSC_CLI_TEST", "")
	os.Unsetenv("OOSC_CLI_TEST")

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("OOSC_CLI_TEST"); got != "from-file" {
		t.Errorf("OOSC_CLI_TEST = %q", got)
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, slog.LevelWarn, "worker")
	logger.Info("hidden")
	slog.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=worker") {
		t.Errorf("unexpected output %q", out)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "8081")
	if _, err := LoadAndValidateConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	_, err := LoadAndValidateConfig(func(*config.Config) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	t.Setenv("PORT", "nope")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunShutdown(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, slog.LevelInfo, "test")
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{})
	done := runShutdown(ctx, cancel, logger, time.Second, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("cleanup context should carry a deadline")
		}
		close(called)
		return nil
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	select {
	case <-called:
	default:
		t.Fatal("cleanup was not called")
	}
	if !strings.Contains(buf.String(), "Shutdown complete") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestRunShutdownCleanupError(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, slog.LevelInfo, "test")
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := runShutdown(ctx, cancel, logger, time.Second, func(context.Context) error {
		return errors.New("close failed")
	})
	cancel()
	<-done
	if !strings.Contains(buf.String(), "Shutdown cleanup failed") {
		t.Errorf("log = %q", buf.String())
	}
}
