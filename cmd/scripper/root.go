package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	authToken  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "scripper",
	Short: "CLI client for the scripper download server",
	Long: `scripper - CLI client for the scripper download server

Submit SoundCloud track and playlist URLs for download,
then list, fetch, and delete the resulting MP3 files.

Run 'scripperd' to start the server daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3001", "Server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token (defaults to SCRIPPER_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("scripper {{.Version}}\n")
}

// token returns the --token flag value, falling back to the environment.
func token() string {
	if authToken != "" {
		return authToken
	}
	return os.Getenv("SCRIPPER_TOKEN")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
