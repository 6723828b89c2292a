// Package cli implements the s3bridge command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		endpoint string
		profile  string
		output   string
	)

	rootCmd := &cobra.Command{
		Use:           "s3bridge",
		Short:         "Midway-gated AWS credential broker CLI",
		Long:          "Command-line interface for the s3bridge credential broker: fetch service-scoped AWS credentials, inspect the local Midway session, and manage service registrations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Config file is optional.
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}

			p := cfg.ActiveProfile(profile)

			// Precedence: flag > env > profile > default.
			if !cmd.Flags().Changed("endpoint") {
				if v := os.Getenv("S3BRIDGE_ENDPOINT"); v != "" {
					endpoint = v
				} else if p.Endpoint != "" {
					endpoint = p.Endpoint
				}
			}
			if !cmd.Flags().Changed("output") && p.Output != "" {
				output = p.Output
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "broker endpoint URL")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile name")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(
		newCredentialsCmd(&endpoint, &output),
		newWhoamiCmd(&output),
		newServiceCmd(&output),
		newTokenCmd(),
	)
	return rootCmd
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
