package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaizengine/shopfloor/internal/config"
	"github.com/kaizengine/shopfloor/internal/sop"
)

var sopsCmd = &cobra.Command{
	Use:   "sops",
	Short: "List available standard operating procedures",
	RunE:  runSopsList,
}

var sopsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a procedure's instructions and verification commands",
	Args:  cobra.ExactArgs(1),
	RunE:  runSopsShow,
}

func init() {
	rootCmd.AddCommand(sopsCmd)
	sopsCmd.AddCommand(sopsShowCmd)
}

// loadConfiguredSOPs registers any procedures from sop.dir on top of the
// built-ins so list and show see the same set the run command uses.
func loadConfiguredSOPs() error {
	cfg := config.Get()
	if cfg.SOP.Dir == "" {
		return nil
	}
	loaded, err := sop.LoadDir(cfg.SOP.Dir)
	if err != nil {
		return fmt.Errorf("failed to load procedures from %s: %w", cfg.SOP.Dir, err)
	}
	for _, s := range loaded {
		sop.Register(s)
	}
	return nil
}

func runSopsList(cmd *cobra.Command, args []string) error {
	if err := loadConfiguredSOPs(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range sop.Names() {
		s := sop.Lookup(name)
		marker := " "
		if s.HasVerification() {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	fmt.Fprintln(out, "\n* includes verification commands")
	return nil
}

func runSopsShow(cmd *cobra.Command, args []string) error {
	if err := loadConfiguredSOPs(); err != nil {
		return err
	}

	s := sop.Lookup(args[0])
	if s == nil {
		return fmt.Errorf("unknown procedure %q: known procedures are %v", args[0], sop.Names())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s\n\n", s.Name)
	fmt.Fprintln(out, s.Instructions)

	if len(s.PreConditions) > 0 {
		fmt.Fprintln(out, "Pre-conditions:")
		for _, c := range s.PreConditions {
			fmt.Fprintf(out, "  - %s\n", c)
		}
		fmt.Fprintln(out)
	}

	if len(s.VerificationCommands) > 0 {
		fmt.Fprintln(out, "Verification commands:")
		for _, c := range s.VerificationCommands {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}

	if len(s.Hooks) > 0 {
		fmt.Fprintln(out, "Hooks:")
		for _, h := range s.Hooks {
			fmt.Fprintf(out, "  - %s [%s]: %s\n", h.Event, h.Matcher, h.Command)
		}
	}

	return nil
}
