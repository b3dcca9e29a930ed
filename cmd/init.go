package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillmate/quillmate/internal/config"
	"github.com/quillmate/quillmate/internal/provider"
)

const defaultOllamaURL = "http://localhost:11434"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up quillmate: choose a provider, enter its endpoint and API key, and save the config.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return fmt.Errorf("get config path: %w", err)
				}
				path = p
			}
			return runInit(os.Stdin, cmd.OutOrStdout(), path)
		},
	}
}

func runInit(in io.Reader, out io.Writer, cfgPath string) error {
	reader := bufio.NewReader(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	fmt.Fprintln(out, "Welcome to the quillmate configuration wizard!")
	fmt.Fprintln(out)

	kinds := provider.Kinds
	fmt.Fprintln(out, "Available providers:")
	for i, k := range kinds {
		fmt.Fprintf(out, "  %d. %s\n", i+1, k)
	}
	kind := kinds[0]
	if input := ask(fmt.Sprintf("\nSelect provider (1-%d) [1]: ", len(kinds))); input != "" {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(kinds) {
			return fmt.Errorf("invalid selection %q", input)
		}
		kind = kinds[n-1]
	}
	fmt.Fprintf(out, "Selected: %s\n\n", kind)

	defs := config.LoadProviderDefaults()[string(kind)]
	pc := config.ProviderConfig{}

	// Endpoint
	if kind.SelfHosted() {
		def := defs.BaseURL
		if kind == provider.KindOllama && def == "" {
			def = defaultOllamaURL
		}
		hint := ""
		if def != "" {
			hint = " [" + def + "]"
		}
		pc.BaseURL = ask(fmt.Sprintf("Endpoint URL for %s%s: ", kind, hint))
		if pc.BaseURL == "" {
			pc.BaseURL = def
		}
		normalized, err := provider.NormalizeURL(pc.BaseURL, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Requests will go to %s\n", normalized)
	}

	// API key
	if kind.NeedsKey() {
		pc.APIKey = ask(fmt.Sprintf("Enter API key for %s: ", kind))
		if pc.APIKey == "" {
			return fmt.Errorf("API key cannot be empty")
		}
	}

	// Model
	hint := ""
	if defs.DefaultModel != "" {
		hint = " [" + defs.DefaultModel + "]"
	}
	pc.Model = ask(fmt.Sprintf("Model%s: ", hint))

	// Check if config already exists
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(out, "\nConfig file already exists at %s; only the %s section and the active provider change.\n", cfgPath, kind)
	}

	if err := config.SaveProviderToFile(cfgPath, string(kind), pc); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig saved to %s\n", cfgPath)
	fmt.Fprintln(out, "Check it with: quillmate test")
	return nil
}
