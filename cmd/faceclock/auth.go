package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"faceclock/pkg/credstore"
	"faceclock/pkg/hrapi"
	"faceclock/pkg/logging"
)

func cmdLogin(args []string) error {
	email := cfg.Auth.Email
	if len(args) >= 1 {
		email = args[0]
	}
	if email == "" {
		return fmt.Errorf("email required\nUsage: faceclock login <email>")
	}

	fmt.Printf("Password for %s: ", email)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hr := hrapi.NewClient(cfg.Services.HRBaseURL, cfg.Services.Timeout())
	token, err := hr.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store, err := credstore.New(cfg.Auth.TokenPath, cfg.Auth.EncryptToken)
	if err != nil {
		return fmt.Errorf("opening token store: %w", err)
	}
	if err := store.Save(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	identity := email
	if claims, err := hrapi.DecodeClaims(token); err == nil {
		if id, err := claims.Identity(); err == nil {
			identity = id
		}
	}

	logging.Infof("Logged in as %s", identity)
	fmt.Printf("Logged in as %s. Token stored at %s\n", identity, cfg.Auth.TokenPath)
	return nil
}

func cmdLogout(args []string) error {
	store, err := credstore.New(cfg.Auth.TokenPath, cfg.Auth.EncryptToken)
	if err != nil {
		return fmt.Errorf("opening token store: %w", err)
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}
	fmt.Println("Stored token removed.")
	return nil
}
