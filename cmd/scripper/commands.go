package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and print a bearer token",
	Long: `Authenticate against the server and print a bearer token.

The password is read from the --password flag, or prompted for
interactively when the flag is absent. Export the printed token as
SCRIPPER_TOKEN to authenticate later commands:

  export SCRIPPER_TOKEN=$(scripper login --password secret)`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a SoundCloud track or playlist",
	Long: `Download a SoundCloud track or playlist as tagged MP3 files.

Examples:
  scripper download https://soundcloud.com/artist/track
  scripper download https://soundcloud.com/artist/sets/album`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <filename>",
	Short: "Fetch a downloaded file",
	Long: `Fetch a downloaded file from the server.

Writes to the same filename in the current directory unless
--output names a different path.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var rmCmd = &cobra.Command{
	Use:   "rm <filename>",
	Short: "Delete a downloaded file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().String("password", "", "Server password (prompted if omitted)")
	getCmd.Flags().StringP("output", "o", "", "Output path")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	client := NewClient(serverURL, "")
	tok, err := client.Login(password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if jsonOutput {
		printJSON(LoginResponse{Token: tok})
		return nil
	}
	fmt.Println(tok)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL, token())

	fmt.Fprintf(os.Stderr, "Downloading %s ...\n", args[0])
	resp, err := client.Download(args[0])
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	succeeded := 0
	for _, r := range resp.Results {
		if r.Success {
			succeeded++
			fmt.Printf("  ok   %s\n", r.Filename)
		} else {
			fmt.Printf("  FAIL %s: %s\n", r.Title, r.Error)
		}
	}
	fmt.Printf("%d/%d tracks downloaded\n", succeeded, resp.Total)

	if succeeded < resp.Total {
		return fmt.Errorf("%d track(s) failed", resp.Total-succeeded)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL, token())

	resp, err := client.List()
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if len(resp.Files) == 0 {
		fmt.Println("No downloads.")
		return nil
	}
	for _, f := range resp.Files {
		fmt.Println(f.Filename)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	filename := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = filename
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}

	client := NewClient(serverURL, token())
	if err := client.Fetch(filename, f); err != nil {
		_ = f.Close()
		_ = os.Remove(output)
		return fmt.Errorf("fetch failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}

	fmt.Fprintf(os.Stderr, "Saved %s\n", output)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL, token())
	if err := client.Remove(args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL, token())

	health, err := client.Health()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if jsonOutput {
		printJSON(health)
		return nil
	}
	fmt.Printf("Server %s: %s\n", serverURL, health.Status)
	return nil
}
