package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	store "quotaflow-go/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "operation mode: get | set | clear")
	value := flag.String("value", "", "override credential for -mode set (reads stdin when empty)")
	configPath := flag.String("config", os.Getenv("QUOTAFLOW_CONFIG"), "path to configuration file")
	timeout := flag.Duration("timeout", 30*time.Second, "operation timeout")
	flag.Parse()

	if *mode == "" {
		fail(errors.New("missing -mode (get|set|clear)"))
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fail(fmt.Errorf("load configuration: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		fail(fmt.Errorf("open preference store: %w", err))
	}
	defer backend.Close()

	key := cfg.Preferences.OverrideKey
	if err := run(ctx, backend, key, *mode, *value, os.Stdin, os.Stdout); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, backend store.PreferenceStore, key, mode, value string, in io.Reader, out io.Writer) error {
	switch strings.ToLower(mode) {
	case "get":
		cred, ok, err := store.NewOverrideReader(backend, key).OverrideCredential(ctx)
		if err != nil {
			return fmt.Errorf("read override: %w", err)
		}
		if !ok {
			fmt.Fprintf(out, "%s: not set\n", key)
			return nil
		}
		fmt.Fprintf(out, "%s: %s\n", key, cred.Masked())
		return nil
	case "set":
		if value == "" {
			data, err := io.ReadAll(io.LimitReader(in, 4096))
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			value = string(data)
		}
		cred := credential.Credential(strings.TrimSpace(value))
		if cred.Empty() {
			return errors.New("override credential must not be blank")
		}
		if err := backend.SetPreference(ctx, key, string(cred)); err != nil {
			return fmt.Errorf("store override: %w", err)
		}
		fmt.Fprintf(out, "%s: set to %s\n", key, cred.Masked())
		return nil
	case "clear":
		if err := backend.DeletePreference(ctx, key); err != nil {
			return fmt.Errorf("clear override: %w", err)
		}
		fmt.Fprintf(out, "%s: cleared\n", key)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (expected get|set|clear)", mode)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "prefs: %v\n", err)
	os.Exit(1)
}
