package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/fixora/gatekeeper/application/usecase/user_management"
	"github.com/fixora/gatekeeper/infrastructure/adapter/store"
	"github.com/fixora/gatekeeper/infrastructure/config"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
	"github.com/fixora/gatekeeper/infrastructure/service/password"
)

// seed creates the demo identities that are missing. Existing accounts,
// including their passwords, are never touched.
func main() {
	verbose := pflag.BoolP("verbose", "v", false, "log each identity considered")
	pflag.Parse()

	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreBackend == config.StoreMemory {
		log.Fatal("STORE_BACKEND=memory has nothing to seed; use postgres or bolt")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{Level: level, Format: "text", Output: os.Stderr})

	ctx := context.Background()
	st, err := store.Open(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	seeder := user_management.NewSeedUseCase(st.Users, password.NewBcryptPasswordService(cfg.BcryptCost), structuredLogger, time.Now)
	created, err := seeder.Execute(ctx, user_management.DemoIdentities)
	if err != nil {
		log.Fatalf("Failed to seed identities: %v", err)
	}

	fmt.Printf("Seeded %d of %d demo identities\n", created, len(user_management.DemoIdentities))
}
