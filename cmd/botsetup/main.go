package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tv0e04k0/sk0ppbot/internal/deps"
	"github.com/tv0e04k0/sk0ppbot/internal/register"
	"github.com/tv0e04k0/sk0ppbot/internal/secrets"
	"github.com/tv0e04k0/sk0ppbot/internal/verify"
)

var rootCmd = &cobra.Command{
	Use:   "botsetup [project-path]",
	Short: "botsetup - registers the Telegram bot analyzer for bot projects",
	Long: `Inspects a project directory, decides whether it hosts a Telegram bot and,
if so, registers the bot analyzer MCP server in the project's .cursor/mcp.json.
Without an argument the current working directory is inspected.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		} else if cwd, err := os.Getwd(); err == nil {
			path = cwd
		}

		name, _ := cmd.Flags().GetString("analyzer-name")
		url, _ := cmd.Flags().GetString("analyzer-url")
		r := register.NewRegistrarWithOptions(register.Options{
			AnalyzerName: name,
			AnalyzerURL:  url,
		})

		handled, err := r.ProcessProject(path)
		switch {
		case !handled:
			fmt.Printf("%s: not a bot project, nothing to do\n", path)
		case err != nil:
			// A bot project we could not configure is reported, not fatal.
			fmt.Printf("Warning: %s: %v\n", path, err)
		default:
			fmt.Printf("%s: bot project, analyzer registered in %s\n", path, r.ConfigPath(path))
		}
	},
}

func NewSecretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets [project-path]",
		Short: "Scan a bot project for committed credentials",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			maxFileSize, _ := cmd.Flags().GetInt64("max-file-size")
			config := secrets.DefaultConfig()
			if maxFileSize > 0 {
				config.MaxFileSize = maxFileSize
			}

			findings, err := secrets.NewScanner(path, config).Scan(context.Background())
			if err != nil {
				fmt.Println("Error scanning project:", err)
				os.Exit(1)
			}

			for _, f := range findings {
				fmt.Printf("%s:%d: %s (%s)\n", f.File, f.Line, f.Description, f.RuleID)
			}
			fmt.Printf("Found %d potential secrets\n", len(findings))

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath != "" {
				jsonBytes, err := json.MarshalIndent(findings, "", "  ")
				if err != nil {
					fmt.Println("Error marshaling findings:", err)
					os.Exit(1)
				}
				if err := os.WriteFile(outputPath, jsonBytes, 0o644); err != nil {
					fmt.Printf("Error writing to output file %s: %v\n", outputPath, err)
					os.Exit(1)
				}
				fmt.Printf("Findings written to %s\n", outputPath)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path for findings JSON")
	cmd.Flags().Int64("max-file-size", 0, "Maximum file size in bytes to scan (0 uses default: 1MB)")
	return cmd
}

func NewDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps [project-path]",
		Short: "Check a bot project's dependencies against the OSV database",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			findings, err := deps.NewScanner(path).Scan(context.Background())
			if err != nil {
				fmt.Println("Error scanning dependencies:", err)
				os.Exit(1)
			}

			for _, f := range findings {
				line := fmt.Sprintf("%s %s: %s [%s] %s", f.Package, f.Version, f.ID, f.Severity, f.Summary)
				if f.Fixed != "" {
					line += fmt.Sprintf(" (fixed in %s)", f.Fixed)
				}
				fmt.Println(line)
			}
			fmt.Printf("Found %d known vulnerabilities\n", len(findings))

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath != "" {
				jsonBytes, err := json.MarshalIndent(findings, "", "  ")
				if err != nil {
					fmt.Println("Error marshaling findings:", err)
					os.Exit(1)
				}
				if err := os.WriteFile(outputPath, jsonBytes, 0o644); err != nil {
					fmt.Printf("Error writing to output file %s: %v\n", outputPath, err)
					os.Exit(1)
				}
				fmt.Printf("Findings written to %s\n", outputPath)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path for findings JSON")
	return cmd
}

func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [project-path]",
		Short: "Check that the MCP servers registered for a project respond",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			configPath := filepath.Join(path, ".cursor", "mcp.json")

			results, err := verify.NewVerifier(configPath).Verify(cmd.Context())
			if err != nil {
				fmt.Printf("Error: cannot read %s: %v\n", configPath, err)
				os.Exit(1)
			}
			if len(results) == 0 {
				fmt.Println("No MCP servers registered")
				return
			}

			for _, r := range results {
				switch r.State {
				case verify.StateConnected:
					fmt.Printf("%s: %s (%d tools)\n", r.Server, r.State, r.Tools)
				case verify.StateFailed:
					fmt.Printf("%s: %s: %v\n", r.Server, r.State, r.Err)
				default:
					fmt.Printf("%s: %s\n", r.Server, r.State)
				}
			}
		},
	}
}

func init() {
	rootCmd.Flags().String("analyzer-name", register.DefaultAnalyzerName, "Server name to register")
	rootCmd.Flags().String("analyzer-url", register.DefaultAnalyzerURL, "Server URL to register")
	rootCmd.AddCommand(NewSecretsCommand())
	rootCmd.AddCommand(NewDepsCommand())
	rootCmd.AddCommand(NewVerifyCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
