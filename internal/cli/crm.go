package cli

import (
	"fmt"
	"net/http"

	"callbridge/internal/config"
	"callbridge/internal/crm"
	"callbridge/pkg/utils"

	"github.com/spf13/cobra"
)

func loadCRMClient() (*crm.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return crm.NewClient(crm.Config{
		BaseURL:         cfg.SalesManago.BaseURL,
		ClientID:        cfg.SalesManago.ClientID,
		APIKey:          cfg.SalesManago.APIKey,
		Signature:       cfg.SalesManago.Signature,
		Owner:           cfg.SalesManago.Owner,
		SessionProperty: cfg.SalesManago.SessionProperty,
	}, &http.Client{}), nil
}

func newLookupEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-email <email>",
		Short: "Fetch the CRM enrichment for a contact email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadCRMClient()
			if err != nil {
				return err
			}
			md, err := client.LookupByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, md.Fields())
		},
	}
}

func newLookupPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-phone <phone>",
		Short: "Find contact rows in the phone-indexed store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := utils.OpenDB(cmd.Context(), cfg.DB.Driver, cfg.ContactDSN(), utils.DBPoolConfig{MaxOpenConns: 1})
			if err != nil {
				return err
			}
			defer db.Close()

			recs, err := crm.NewStore(db, cfg.DB.Driver, cfg.DB.ContactTable).LookupByPhoneCandidates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no contact found")
				return nil
			}
			rows := make([]map[string]any, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, r.Columns)
			}
			return printJSON(cmd, rows)
		},
	}
}

func newTagCmd() *cobra.Command {
	var (
		email  string
		tags   []string
		callID string
	)
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Write tags or the call session property to a CRM contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tags) == 0 && callID == "" {
				return fmt.Errorf("at least one --tag or --call-id is required")
			}
			client, err := loadCRMClient()
			if err != nil {
				return err
			}
			if err := client.Upsert(cmd.Context(), crm.TagUpdate{Email: email, Tags: tags, CallID: callID}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to add (repeatable)")
	cmd.Flags().StringVar(&callID, "call-id", "", "Call session id to store on the contact")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
