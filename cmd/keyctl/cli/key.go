package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"pos-activation/internal/domain/model"
	"pos-activation/internal/usecase"

	"github.com/spf13/cobra"
)

func newKeyCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Issue and audit activation keys",
	}

	cmd.AddCommand(newKeyIssueCmd(s))
	cmd.AddCommand(newKeyListCmd(s))

	return cmd
}

// ---------- key issue ----------

func newKeyIssueCmd(s *session) *cobra.Command {
	var (
		businessID string
		feature    string
		days       int
		expires    string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an activation key",
		Long:  "Issue a single-use activation key for one business and feature. The key is shown once and cannot be retrieved again.",
		Example: `  keyctl key issue --business demo-store --feature advanced_reporting --days 30
  keyctl key issue --business demo-store --feature multi_payment --expires 2030-01-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days != 0 && expires != "" {
				return errors.New("--days and --expires are mutually exclusive")
			}
			var (
				issued *usecase.IssuedKey
				err    error
			)
			if expires != "" {
				at, perr := time.Parse(time.RFC3339, expires)
				if perr != nil {
					return fmt.Errorf("--expires: %w", perr)
				}
				issued, err = s.svc.Keys.Issue(cmd.Context(), businessID, feature, &at)
			} else {
				issued, err = s.svc.Keys.IssueForDays(cmd.Context(), businessID, feature, days)
			}
			if err != nil {
				return fmt.Errorf("issue key: %w", err)
			}
			return s.print(cmd.OutOrStdout(), issued, func(w io.Writer) {
				fmt.Fprintln(w, "Activation key issued:")
				fmt.Fprintln(w)
				fmt.Fprintf(w, "  Key:      %s\n", issued.Plaintext)
				fmt.Fprintf(w, "  Business: %s\n", businessID)
				fmt.Fprintf(w, "  Feature:  %s\n", model.NormalizeFeatureName(feature))
				if issued.Key.ExpiresAt != nil {
					fmt.Fprintf(w, "  Expires:  %s\n", issued.Key.ExpiresAt.Format(time.RFC3339))
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "  Save this key now - it cannot be retrieved again.")
			})
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Business the key is bound to (required)")
	cmd.Flags().StringVar(&feature, "feature", "", "Feature the key activates (required)")
	cmd.Flags().IntVar(&days, "days", 0, "Days until the key expires (0 = never)")
	cmd.Flags().StringVar(&expires, "expires", "", "Absolute expiry, RFC3339")
	_ = cmd.MarkFlagRequired("business")
	_ = cmd.MarkFlagRequired("feature")

	return cmd
}

// ---------- key list ----------

func newKeyListCmd(s *session) *cobra.Command {
	var businessID string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List activation keys with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list []model.KeyView
				err  error
			)
			if businessID != "" {
				list, err = s.svc.Keys.ListForBusiness(cmd.Context(), businessID)
			} else {
				list, err = s.svc.Keys.ListAll(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			if list == nil {
				list = []model.KeyView{}
			}
			return s.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No activation keys found.")
					return
				}
				fmt.Fprintf(w, "%-10s %-20s %-24s %-8s %s\n", "PREFIX", "BUSINESS", "FEATURE", "STATUS", "EXPIRES")
				for _, k := range list {
					exp := "never"
					if k.ExpiresAt != nil {
						exp = k.ExpiresAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%-10s %-20s %-24s %-8s %s\n", k.KeyPrefix, k.BusinessID, k.FeatureName, k.Status, exp)
				}
			})
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Only keys of this business")

	return cmd
}
