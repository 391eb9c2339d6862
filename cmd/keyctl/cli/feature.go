package cli

import (
	"fmt"
	"io"

	"pos-activation/internal/domain/model"

	"github.com/spf13/cobra"
)

func newFeatureCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Manage the feature registry",
	}

	cmd.AddCommand(newFeatureAddCmd(s))
	cmd.AddCommand(newFeatureToggleCmd(s, "enable", true))
	cmd.AddCommand(newFeatureToggleCmd(s, "disable", false))
	cmd.AddCommand(newFeatureListCmd(s))

	return cmd
}

// ---------- feature add ----------

func newFeatureAddCmd(s *session) *cobra.Command {
	var (
		description  string
		noActivation bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new feature",
		Long:  "Register a feature. Names are lower-case letters, digits and underscores. New features are enabled.",
		Example: `  keyctl feature add advanced_reporting --description "Advanced sales reports"
  keyctl feature add barcode_labels --no-activation`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := s.svc.Features.RegisterFeature(cmd.Context(), args[0], description, !noActivation)
			if err != nil {
				return fmt.Errorf("register feature: %w", err)
			}
			return s.print(cmd.OutOrStdout(), f, func(w io.Writer) {
				fmt.Fprintf(w, "Registered feature %s (id=%s)\n", f.Name, f.ID)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Human-readable description")
	cmd.Flags().BoolVar(&noActivation, "no-activation", false, "Allow direct grants without an activation key")

	return cmd
}

// ---------- feature enable|disable ----------

func newFeatureToggleCmd(s *session, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: "Globally " + verb + " a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := s.svc.Features.SetEnabled(cmd.Context(), args[0], enabled)
			if err != nil {
				return fmt.Errorf("%s feature: %w", verb, err)
			}
			return s.print(cmd.OutOrStdout(), f, func(w io.Writer) {
				fmt.Fprintf(w, "Feature %s is now %s\n", f.Name, enabledLabel(f.Enabled))
			})
		},
	}
}

// ---------- feature list ----------

func newFeatureListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all features",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := s.svc.Features.ListFeatures(cmd.Context())
			if err != nil {
				return fmt.Errorf("list features: %w", err)
			}
			if list == nil {
				list = []*model.Feature{}
			}
			return s.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No features registered.")
					return
				}
				fmt.Fprintf(w, "%-24s %-9s %-10s %s\n", "NAME", "STATE", "KEY", "DESCRIPTION")
				for _, f := range list {
					key := "required"
					if !f.RequiresActivation {
						key = "optional"
					}
					fmt.Fprintf(w, "%-24s %-9s %-10s %s\n", f.Name, enabledLabel(f.Enabled), key, f.Description)
				}
			})
		},
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
