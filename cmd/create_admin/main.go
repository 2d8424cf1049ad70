package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/usecase/user_management"
	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/infrastructure/adapter/store"
	"github.com/fixora/gatekeeper/infrastructure/config"
	"github.com/fixora/gatekeeper/infrastructure/service/password"
)

func main() {
	username := pflag.StringP("username", "u", "admin", "username of the new account")
	email := pflag.StringP("email", "e", "", "email of the new account (required)")
	userPassword := pflag.StringP("password", "p", "", "password of the new account (required)")
	roles := pflag.StringSlice("roles", []string{string(entity.RoleAdmin), string(entity.RoleUser)}, "roles to assign")
	pflag.Parse()

	if *email == "" || *userPassword == "" {
		pflag.Usage()
		log.Fatal("--email and --password are required")
	}

	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	create := user_management.NewCreateUserUseCase(st.Users, password.NewBcryptPasswordService(cfg.BcryptCost), time.Now)
	user, err := create.Execute(ctx, inbound.CreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: *userPassword,
		Roles:    *roles,
	})
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Created user id=%s username=%s roles=%v\n", user.ID, user.Username, user.Roles.Names())
}
