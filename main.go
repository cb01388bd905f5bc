package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fzft/go-mock-mq/config"
	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/node"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-mock-mq v=%s sha=%s build=%s\n", node.Version(), node.GitSHA1(), node.BuildDate())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(1)
	}

	if err := log.InitLogger(cfg.LogLevel, cfg.LogDevelopment); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %s\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Logger.Info("starting go-mock-mq",
		zap.String("version", node.Version()),
		zap.String("data_dir", cfg.DataDir),
		zap.Int("segment_size", cfg.SegmentSize))

	s := node.NewServer(cfg)
	if err := s.Run(); err != nil {
		log.Logger.Error("server exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
