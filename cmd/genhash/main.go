package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vozip/isp-api/pkg/password"
)

var (
	scheme string
	cost   int
	verify string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "genhash [password]",
	Short: "Hash a staff password for the usuarios table",
	Long: `Prints the hash stored in usuarios.password_hash for a plain password.

The password is read from the first argument, or from stdin when omitted.
With --verify the tool checks the password against an existing hash instead.`,
	Example: `  # Seed an admin account with the legacy digest:
  genhash admin123

  # Produce a bcrypt hash:
  echo -n 's3cret' | genhash --scheme bcrypt --cost 12

  # Check a stored hash:
  genhash admin123 --verify 240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Flags().StringVar(&scheme, "scheme", password.SchemeSHA256, "hash scheme: sha256 or bcrypt")
	rootCmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	rootCmd.Flags().StringVar(&verify, "verify", "", "stored hash to check the password against")
}

func run(cmd *cobra.Command, args []string) error {
	plain, err := readPassword(args)
	if err != nil {
		return err
	}

	hasher := password.NewHasher(scheme, cost)
	if verify != "" {
		if !hasher.Verify(verify, plain) {
			return errors.New("password does not match")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}

	hash, err := hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func readPassword(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	plain := strings.TrimRight(line, "\r\n")
	if plain == "" {
		return "", errors.New("no password given")
	}
	return plain, nil
}
