package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ipmint/go-registrar/internal/adapters/rpc"
	"ipmint/go-registrar/internal/composition"
	"ipmint/go-registrar/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", rpc.DefaultRPCAddr, "JSON-RPC listen address")
	configPath := flag.String("config", "", "Path to registrard.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for daemon local data (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-IPMINT-RPC-Token (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("registrard version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *rpcToken != "" {
		_ = os.Setenv("IPMINT_RPC_TOKEN", *rpcToken)
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	srv, err := composition.BuildRPCServer(*rpcAddr, *configPath, *dataDir, logger)
	if err != nil {
		log.Fatalf("registrard failed to initialize: %v", err)
	}

	log.Println("registrard starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("registrard failed: %v", err)
	}
	log.Println("registrard stopped")
}
