package cli

import (
	"fmt"
	"io"

	"pos-activation/internal/infra/api"

	"github.com/spf13/cobra"
)

// ---------- grant ----------

func newGrantCmd(s *session) *cobra.Command {
	var (
		businessID string
		feature    string
		revoke     bool
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant or revoke a feature for a business",
		Long:  "Directly activate a feature that does not require a key, or with --revoke deactivate any feature for a business.",
		Example: `  keyctl grant --business demo-store --feature barcode_labels
  keyctl grant --business demo-store --feature advanced_reporting --revoke`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if revoke {
				if err := s.svc.Ledger.Revoke(cmd.Context(), businessID, feature); err != nil {
					return fmt.Errorf("revoke: %w", err)
				}
				return s.print(cmd.OutOrStdout(), map[string]any{"business_id": businessID, "feature": feature, "active": false}, func(w io.Writer) {
					fmt.Fprintf(w, "Revoked %s for %s\n", feature, businessID)
				})
			}
			row, err := s.svc.Ledger.GrantDirect(cmd.Context(), businessID, feature)
			if err != nil {
				return fmt.Errorf("grant: %w", err)
			}
			return s.print(cmd.OutOrStdout(), row, func(w io.Writer) {
				fmt.Fprintf(w, "Granted %s to %s\n", feature, businessID)
			})
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Business id (required)")
	cmd.Flags().StringVar(&feature, "feature", "", "Feature name (required)")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Deactivate instead of granting")
	_ = cmd.MarkFlagRequired("business")
	_ = cmd.MarkFlagRequired("feature")

	return cmd
}

// ---------- redeem ----------

func newRedeemCmd(s *session) *cobra.Command {
	var businessID string

	cmd := &cobra.Command{
		Use:   "redeem <key>",
		Short: "Redeem an activation key on behalf of a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := s.svc.Redemption.Redeem(cmd.Context(), businessID, args[0])
			if err != nil {
				return fmt.Errorf("redeem: %w", err)
			}
			return s.print(cmd.OutOrStdout(), map[string]string{"business_id": businessID, "feature": f.Name}, func(w io.Writer) {
				fmt.Fprintf(w, "Activated %s for %s\n", f.Name, businessID)
			})
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Business presenting the key (required)")
	_ = cmd.MarkFlagRequired("business")

	return cmd
}

// ---------- check ----------

func newCheckCmd(s *session) *cobra.Command {
	var businessID string

	cmd := &cobra.Command{
		Use:   "check <feature>",
		Short: "Answer the feature gate for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active := s.svc.Gate.IsFeatureActive(cmd.Context(), businessID, args[0])
			return s.print(cmd.OutOrStdout(), map[string]any{"business_id": businessID, "feature": args[0], "active": active}, func(w io.Writer) {
				state := "inactive"
				if active {
					state = "active"
				}
				fmt.Fprintf(w, "%s is %s for %s\n", args[0], state, businessID)
			})
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Business id (required)")
	_ = cmd.MarkFlagRequired("business")

	return cmd
}

// ---------- token ----------

func newTokenCmd(s *session) *cobra.Command {
	var (
		role       string
		businessID string
	)

	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Mint an API session token",
		Annotations: map[string]string{"store": "config"},
		Example: `  keyctl token --role admin
  keyctl token --role owner --business demo-store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := api.NewAuthManager(s.cfg.Auth).Mint(role, businessID)
			if err != nil {
				return err
			}
			return s.print(cmd.OutOrStdout(), map[string]string{"token": tok}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", api.RoleAdmin, "admin|owner|manager|cashier")
	cmd.Flags().StringVar(&businessID, "business", "", "Business id (required for non-admin roles)")

	return cmd
}
