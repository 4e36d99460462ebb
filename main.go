package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/TimoWilhelm/worker-ide-sub005/server"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("fail to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	port := flag.Uint("port", uint(cfg.Port), "port to listen on")
	projectsDir := flag.String("projects-dir", cfg.ProjectsDir, "directory the projects live in")
	flag.Parse()
	cfg.Port = uint16(*port)
	cfg.ProjectsDir = *projectsDir

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := server.New(cfg, log).ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
