package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

func cmdStatus(args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://" + cfg.Server.Listen + "/state")
	if err != nil {
		return fmt.Errorf("agent not reachable at %s: %w", cfg.Server.Listen, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, body)
	}

	var state map[string]interface{}
	if err := json.Unmarshal(body, &state); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}

	pretty, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func cmdConfig(args []string) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
