// Package main provides a CLI tool to seal a plaintext OAuth token file with
// AES-256-GCM so it can be kept at rest encrypted.
//
// Usage:
//
//	seal-token [--dry-run] [--check] [--file token.json]
//
// Flags:
//
//	--dry-run: Report what would change without rewriting the file
//	--check:   Only report whether the file is plaintext or sealed
//	--file:    Token file path (default: YT_TOKEN_FILE or token.json)
//
// Environment Variables:
//
//	ENCRYPTION_KEY: Base64-encoded 32-byte encryption key (required unless --check)
//
// Example:
//
//	export ENCRYPTION_KEY="$(openssl rand -base64 32)"
//	./seal-token --dry-run
//	./seal-token
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/onnwee/chatwarden/crypto"
	"github.com/onnwee/chatwarden/youtubeapi"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Report what would change without rewriting the file")
	check := flag.Bool("check", false, "Only report whether the token file is sealed")
	defaultPath := os.Getenv("YT_TOKEN_FILE")
	if defaultPath == "" {
		defaultPath = "token.json"
	}
	path := flag.String("file", defaultPath, "Token file path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if *check {
		state, err := describe(*path)
		if err != nil {
			slog.Error("check failed", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("token file status", slog.String("file", *path), slog.String("state", state))
		return
	}

	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		slog.Error("ENCRYPTION_KEY environment variable is required")
		os.Exit(1)
	}
	sealer, err := crypto.NewSealer(key)
	if err != nil {
		slog.Error("failed to initialize sealer", slog.Any("err", err))
		os.Exit(1)
	}
	changed, err := sealFile(context.Background(), *path, sealer, *dryRun)
	if err != nil {
		slog.Error("seal failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("seal completed", slog.String("file", *path), slog.Bool("changed", changed), slog.Bool("dry_run", *dryRun))
}

// describe reports "sealed" or "plaintext" for the token file at path.
func describe(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	if crypto.IsSealed(strings.TrimSpace(string(data))) {
		return "sealed", nil
	}
	return "plaintext", nil
}

// sealFile rewrites a plaintext token file in sealed form. It reports whether the file
// needed sealing; an already sealed file is verified against the key and left alone.
func sealFile(ctx context.Context, path string, sealer *crypto.Sealer, dryRun bool) (bool, error) {
	state, err := describe(path)
	if err != nil {
		return false, err
	}
	sealedStore := &youtubeapi.FileTokenStore{Path: path, Sealer: sealer}
	if state == "sealed" {
		if _, err := sealedStore.LoadToken(ctx); err != nil {
			return false, fmt.Errorf("token file is sealed but does not open with this key: %w", err)
		}
		slog.Info("token file already sealed")
		return false, nil
	}

	tok, err := (&youtubeapi.FileTokenStore{Path: path}).LoadToken(ctx)
	if err != nil {
		return false, fmt.Errorf("load plaintext token: %w", err)
	}
	if dryRun {
		slog.Info("would seal token file (dry-run)", slog.Bool("has_refresh_token", tok.RefreshToken != ""))
		return true, nil
	}
	if err := sealedStore.SaveToken(ctx, tok); err != nil {
		return false, fmt.Errorf("write sealed token: %w", err)
	}
	return true, nil
}
