// Package cli implements keyctl, the support-staff tool for features,
// activation keys and grants.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"pos-activation/internal/app"
	"pos-activation/internal/config"
	"pos-activation/internal/infra/logging"

	"github.com/spf13/cobra"
)

// session is the state shared by every subcommand of one invocation.
type session struct {
	cfgPath string
	dev     bool
	jsonOut bool

	cfg *config.Config
	svc *app.Services
}

// Execute creates the root command tree and runs it.
func Execute(version, commit string) error {
	cmd, s := newRootCmd(version, commit)
	defer s.close()
	return cmd.Execute()
}

func newRootCmd(version, commit string) (*cobra.Command, *session) {
	s := &session{}
	cmd := &cobra.Command{
		Use:   "keyctl",
		Short: "Manage POS features, activation keys and grants",
		Long: `keyctl talks to the activation store directly. It registers and toggles
features, issues activation keys, grants or revokes features and can redeem a
key on a business's behalf.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Annotations["store"] {
			case "none":
				return nil
			case "config":
				return s.loadConfig()
			}
			return s.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&s.cfgPath, "config", config.DefaultPath, "path to YAML config file")
	cmd.PersistentFlags().BoolVar(&s.dev, "dev", false, "developer mode (verbose logs, dev secret)")
	cmd.PersistentFlags().BoolVar(&s.jsonOut, "json", false, "print machine-readable JSON")

	cmd.AddCommand(newFeatureCmd(s))
	cmd.AddCommand(newKeyCmd(s))
	cmd.AddCommand(newGrantCmd(s))
	cmd.AddCommand(newRedeemCmd(s))
	cmd.AddCommand(newCheckCmd(s))
	cmd.AddCommand(newTokenCmd(s))
	cmd.AddCommand(newVersionCmd(version, commit))

	return cmd, s
}

func (s *session) close() {
	if s.svc != nil {
		s.svc.Close()
		s.svc = nil
	}
}

func (s *session) loadConfig() error {
	cfg, err := config.LoadConfig(s.cfgPath, s.dev)
	if err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *session) open(ctx context.Context, logOut io.Writer) error {
	if err := s.loadConfig(); err != nil {
		return err
	}
	cfg := s.cfg

	// Use cases log every action at info; keep the terminal quiet unless asked.
	logCfg := cfg.Log
	if !s.dev {
		logCfg.Level = "warn"
	}
	logger := logging.NewWithWriter(logOut, logCfg, s.dev)

	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	s.svc = svc
	return nil
}

// print writes v as indented JSON with --json, or calls text otherwise.
func (s *session) print(w io.Writer, v any, text func(w io.Writer)) error {
	if s.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func newVersionCmd(version, commit string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{"store": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyctl %s (%s)\n", version, commit)
		},
	}
}
