package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/crash-ph/admin-console/internal/hashing"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var iterations int

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a police office password in the backend's PBKDF2 format",
	Run: func(cmd *cobra.Command, args []string) {
		setLogging(logLevel)

		password, err := promptPassword()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read password")
		}

		encoded, err := hashPassword(password, iterations)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
	hashPasswordCmd.Flags().IntVar(&iterations, "iterations", hashing.DefaultIterations, "PBKDF2 iteration count")
}

// hashPassword encodes password and checks the result verifies before it is
// handed out for direct insertion.
func hashPassword(password string, iterations int) (string, error) {
	encoded, err := hashing.Hash(password, iterations)
	if err != nil {
		return "", err
	}

	ok, err := hashing.Check(password, encoded)
	if err != nil {
		return "", fmt.Errorf("failed to verify hash: %w", err)
	}
	if !ok {
		return "", errors.New("generated hash does not verify")
	}
	return encoded, nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("password is empty")
	}
	return string(first), nil
}
