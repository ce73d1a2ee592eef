// Package main implements the archctl CLI for manual operations
// against the archd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the archd HTTP server
	serverURL string
	sessionID string
	version   = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "archctl",
	Short: "CLI for archd HTTP server operations",
	Long: `archctl is a command-line interface for interacting with the archd server.
It analyzes requirements text and requests architecture recommendations.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "archd server URL")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id to carry context across calls")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(sessionCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check archd server health",
	Long: `Check the health status of the archd HTTP server.

Examples:
  # Check health
  archctl health

  # Check health on a different server
  archctl health --server http://localhost:9090`,
	RunE: runHealth,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze requirements text from a file or stdin",
	Long: `Analyze free-form requirements text and print the structured record.

Examples:
  # Analyze a file
  archctl analyze requirements.txt

  # Analyze from stdin
  echo "Users can book rides. Latency must stay under 200ms." | archctl analyze -

  # Keep context across turns
  archctl analyze --session $SID requirements.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend [file]",
	Short: "Get an architecture recommendation for requirements text",
	Long: `Run the full pipeline: analyze the text, map it onto knowledge-base
concepts, and print the ranked patterns with the top-choice stack.

Examples:
  archctl recommend requirements.txt
  cat requirements.txt | archctl recommend -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecommend,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and print its id",
	RunE:  runSessionNew,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}

func readInput(args []string) (string, error) {
	var content []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if len(content) == 0 {
		return "", fmt.Errorf("no requirements text provided")
	}
	return string(content), nil
}

func postJSON(path string, body any, timeout time.Duration) (json.RawMessage, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func printIndented(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(buf.String())
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := serverURL + "/health"
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	return printIndented(raw)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}
	raw, err := postJSON("/api/v1/requirements/analyze", map[string]string{
		"requirements_text": text,
		"session_id":        sessionID,
	}, 60*time.Second)
	if err != nil {
		return err
	}
	return printIndented(raw)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}
	raw, err := postJSON("/api/v1/architecture/recommend", map[string]string{
		"requirements_text": text,
		"session_id":        sessionID,
	}, 120*time.Second)
	if err != nil {
		return err
	}
	return printIndented(raw)
}

func runSessionNew(cmd *cobra.Command, args []string) error {
	raw, err := postJSON("/api/v1/sessions", map[string]string{}, 10*time.Second)
	if err != nil {
		return err
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	fmt.Println(resp.SessionID)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/sessions/%s", serverURL, args[0])
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	return printIndented(raw)
}
