package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evangambit/Gamgee/internal/config"
	"github.com/evangambit/Gamgee/internal/server"
)

const defaultServerURL = "http://localhost:8080"

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(opts.configPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		force, _ := cmd.Flags().GetBool("force")
		if err := initializeConfig(output, force); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "created %s\n\n", output)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  devserver validate -c", output)
		fmt.Fprintln(out, "  devserver -c", output)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, defaults included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), opts.configPath)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running devserver's health endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		return checkStatus(cmd.OutOrStdout(), url)
	},
}

func init() {
	initCmd.Flags().StringP("output", "o", "devserver.yaml", "Output file path")
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)

	statusCmd.Flags().String("url", defaultServerURL, "Base URL of the running server")
}

func initializeConfig(output string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(output, flags, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := io.WriteString(f, starterTemplate); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

func showConfig(w io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func checkStatus(w io.Writer, baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + server.InternalPrefix + "/health")
	if err != nil {
		return fmt.Errorf("devserver is not reachable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	output, _ := json.MarshalIndent(health, "", "  ")
	fmt.Fprintln(w, string(output))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("devserver is unhealthy (%s)", resp.Status)
	}
	return nil
}
