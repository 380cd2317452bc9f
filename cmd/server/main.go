package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/server"
	"github.com/matthewbaird/parentref/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret := os.Getenv("HASH_SALT")
	if secret == "" {
		log.Fatal("HASH_SALT is required")
	}

	fieldsFile := os.Getenv("FIELDS_FILE")
	if fieldsFile == "" {
		fieldsFile = "fields.cue"
	}
	defs, err := config.LoadFile(fieldsFile)
	if err != nil {
		log.Fatalf("loading field definitions: %v", err)
	}
	log.Printf("loaded %d forms from %s", len(defs.Forms), fieldsFile)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = store.DefaultDSN
	}
	st, err := store.Open(ctx, dsn)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	if os.Getenv("SEED") == "1" && len(defs.Records) > 0 {
		if err := st.Seed(ctx, defs.Records); err != nil {
			log.Fatalf("seeding records: %v", err)
		}
		log.Printf("seeded %d records", len(defs.Records))
	}

	svc, err := server.NewServices(server.Options{
		Definitions: defs,
		Backend:     st,
		Settings:    st.Settings(),
		Secret:      []byte(secret),
	})
	if err != nil {
		log.Fatalf("wiring services: %v", err)
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	var origins []string
	if o := os.Getenv("ALLOWED_ORIGINS"); o != "" {
		origins = strings.Split(o, ",")
	}

	if err := server.Run(ctx, server.Config{
		Port:           port,
		Services:       svc,
		AllowedOrigins: origins,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
