package main

import (
	"flag"
	"time"

	"github.com/fieldline-crm/fieldline/internal/devserver"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/server"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		secret     = flag.String("jwt-secret", "", "JWT signing secret; empty disables auth")
		seed       = flag.Int("seed", 25, "records generated per collection at startup")
		failEveryN = flag.Int("fail-every", 0, "fail every Nth mutating request with HTTP 500")
		latency    = flag.Duration("latency", 0, "artificial latency added to every request")
	)
	flag.Parse()

	log := logger.NewLogger("fieldline-devserver")

	backend := devserver.NewServer(devserver.Options{
		JWTSecret:  *secret,
		TokenTTL:   24 * time.Hour,
		FailEveryN: *failEveryN,
		Latency:    *latency,
		Seed:       *seed,
	}, log)

	log.Info().Str("addr", *addr).Int("seed", *seed).Msg("starting devserver")
	server.NewServer(*addr, backend.Routes(), log).RunServer()
}
