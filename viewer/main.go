// Command viewer serves analytics over the trainer's episode logs.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brensch/snekq/config"
	"github.com/brensch/snekq/logging"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:8090", "HTTP listen address")
	configPath := flag.String("config", os.Getenv("SNEKQ_CONFIG"), "Config file; storage.episode_dir is the default data dir")
	dataDirs := flag.String("data", "", "Comma-separated episode log directories (overrides storage.episode_dir)")
	refresh := flag.Duration("refresh", 10*time.Second, "How often to rescan for new episode logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	roots := parseDataRoots(*dataDirs)
	if len(roots) == 0 {
		roots = []string{cfg.Storage.EpisodeDir}
	}

	server := NewServer(roots, *refresh, logger)
	defer server.Close()

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("viewer listening", "addr", "http://"+*listen, "data", strings.Join(roots, ","))
	log.Fatal(srv.ListenAndServe())
}
