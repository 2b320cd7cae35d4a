package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/credvault/credvault/pkg/envelope"
)

// secretKeyCmd represents the secret-key command
var secretKeyCmd = &cobra.Command{
	Use:   "secret-key",
	Short: "Manage the master secret",
	Long:  `Manage the master secret`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'secret-key' requires a subcommand generate")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// secretKeyGenerateCmd represents the secret-key > generate command
var secretKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a master secret",
	Long: `
Generate a master secret

The master secret signs access tokens and derives the key that encrypts
every stored credential password. Changing it logs every user out and
makes existing passwords unreadable.

Example:

$ export CREDVAULT_SECRET_KEY="$(credvaultctl secret-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		secret, err := envelope.GenerateSecret()
		if err != nil {
			fail("Unable to generate secret: %v", err)
		}
		fmt.Print(secret)
	},
}

func init() {
	rootCmd.AddCommand(secretKeyCmd)
	secretKeyCmd.AddCommand(secretKeyGenerateCmd)
}
