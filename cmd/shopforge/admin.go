package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// minKeyLength rejects trivially guessable admin keys.
const minKeyLength = 16

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "hash-key":
		return runAdminHashKey(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: shopforge admin <command> [options]

Commands:
  hash-key   Hash an admin API key for admin.api_key_hash
  help       Show this help message

Examples:
  shopforge admin hash-key
  SHOPFORGE_ADMIN_KEY_HASH="$(shopforge admin hash-key)" shopforge
`)
}

func runAdminHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ContinueOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := promptKey("Admin API key: ")
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	confirm, err := promptKey("Confirm key: ")
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}

	hash, err := hashKey(key, confirm, *cost)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// hashKey checks the entered key and returns its bcrypt hash.
func hashKey(key, confirm string, cost int) (string, error) {
	if key != confirm {
		return "", errors.New("keys do not match")
	}
	if len(key) < minKeyLength {
		return "", fmt.Errorf("key must be at least %d characters", minKeyLength)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(b), nil
}

// promptKey reads a secret from the terminal without echoing.
func promptKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
