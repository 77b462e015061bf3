// ipmint is the one-shot CLI: it builds the same service the daemon runs
// and drives a single command against it, no RPC hop involved.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ipmint/go-registrar/internal/composition"
	"ipmint/go-registrar/internal/platform/privacylog"
	"ipmint/go-registrar/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	slog.SetDefault(logger)

	var err error
	switch os.Args[1] {
	case "register":
		err = runRegister(ctx, logger, os.Args[2:])
	case "doctor":
		err = runDoctor(ctx, logger, os.Args[2:])
	case "history":
		err = runHistory(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipmint: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ipmint <command> [flags]

commands:
  register  -file <path> [-title t] [-prompt p]   register one asset
  doctor                                          run readiness checks
  history   [-limit n]                            list past registrations

common flags: -config <path> -data-dir <dir>`)
}

func runRegister(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	configPath := fs.String("config", "", "path to registrard.yaml")
	dataDir := fs.String("data-dir", "", "daemon data directory")
	file := fs.String("file", "", "path to the media file")
	title := fs.String("title", "", "asset title")
	prompt := fs.String("prompt", "", "generation prompt, if the asset is AI-generated")
	_ = fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("register: -file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	svc, _, err := composition.BuildService(*configPath, *dataDir, logger)
	if err != nil {
		return err
	}
	result, err := svc.RegisterAsset(ctx, service.RegisterInput{
		Title:      *title,
		Prompt:     *prompt,
		FileName:   filepath.Base(*file),
		MimeType:   mime.TypeByExtension(filepath.Ext(*file)),
		DataBase64: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runDoctor(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to registrard.yaml")
	dataDir := fs.String("data-dir", "", "daemon data directory")
	_ = fs.Parse(args)

	svc, _, err := composition.BuildService(*configPath, *dataDir, logger)
	if err != nil {
		return err
	}
	report := svc.Doctor(ctx)
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Ready {
		return fmt.Errorf("doctor: not ready")
	}
	return nil
}

func runHistory(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to registrard.yaml")
	dataDir := fs.String("data-dir", "", "daemon data directory")
	limit := fs.Int("limit", 20, "maximum records to print")
	_ = fs.Parse(args)

	svc, _, err := composition.BuildService(*configPath, *dataDir, logger)
	if err != nil {
		return err
	}
	return printJSON(svc.ListRegistrations(*limit, 0))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
