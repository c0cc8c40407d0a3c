package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielpatrickdp/horizon/go-controller/internal/codec"
	"github.com/danielpatrickdp/horizon/go-controller/internal/config"
	"github.com/danielpatrickdp/horizon/go-controller/internal/eval"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
)

// #region main
func main() {
	configPath := flag.String("config", "configs/defaults.yaml", "evaluation config")
	force := flag.Bool("force", false, "re-encode labels that are already cached")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall encoding deadline")
	flag.Parse()

	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fmt.Println("=== Goal Embedding Bootstrap ===")
	fmt.Printf("  DB: %s | Bridge: %s\n", cfg.Paths.DB, cfg.Bridge.Addr)

	mapping, err := config.LoadGoalMapping(cfg.Paths.GoalMapping)
	if err != nil {
		log.Fatalf("%v", err)
	}
	labels := mapping.Labels()
	fmt.Printf("  Goal labels: %d | Force: %t\n", len(labels), *force)

	store, err := state.NewStore(cfg.Paths.DB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	codecClient, err := codec.NewCodecClient(cfg.Bridge.Addr)
	if err != nil {
		log.Fatalf("failed to connect to bridge at %s: %v", cfg.Bridge.Addr, err)
	}
	defer codecClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	embeddings, err := eval.EnsureEmbeddings(ctx, store, codecClient, labels, *force)
	if err != nil {
		log.Fatalf("bootstrap embeddings: %v", err)
	}

	dim := 0
	for _, v := range embeddings {
		dim = len(v)
		break
	}
	fmt.Printf("\n%d embeddings cached (dim %d). Done.\n", len(embeddings), dim)
}

// #endregion main
