package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/nullprofile/internal/idp/app"
	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/spf13/cobra"
)

func newRPCmd() *cobra.Command {
	rp := &cobra.Command{
		Use:   "rp",
		Short: "Manage relying parties",
	}
	rp.AddCommand(newRPCreateCmd())
	return rp
}

func newRPCreateCmd() *cobra.Command {
	var (
		name         string
		redirectURIs []string
		sectorID     string
		owner        string
		database     string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a relying party",
		Long: `Register a relying party directly in the database and print its client_id.

Examples:
  nullprofile rp create --name "My App" --redirect-uri https://app.example.com/callback
  nullprofile rp create --name CLI --redirect-uri http://localhost:3000/cb --sector-id example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenStore(app.Config{DatabaseFile: database})
			if err != nil {
				return err
			}
			defer db.Close()

			logger := slogx.New(slogx.Config{
				Service: "nullprofile",
				Version: app.BuildVersion,
				Level:   getEnv("LOG_LEVEL", "warn"),
				Format:  "text",
				Output:  cmd.ErrOrStderr(),
			})
			ctx := slogx.WithContext(cmd.Context(), logger)
			rp, err := service.NewRelyingPartyService(db).Create(ctx, owner, service.RelyingPartyInput{
				Name:         name,
				RedirectURIs: redirectURIs,
				SectorID:     sectorID,
			})
			if err != nil {
				return fmt.Errorf("create relying party: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"id":           rp.ID,
					"clientId":     rp.RPID,
					"name":         rp.Name,
					"sectorId":     rp.SectorID,
					"redirectUris": rp.RedirectURIs,
				})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%s\n", rp.ID)
			fmt.Fprintf(w, "Client ID:\t%s\n", rp.RPID)
			fmt.Fprintf(w, "Name:\t%s\n", rp.Name)
			fmt.Fprintf(w, "Sector:\t%s\n", rp.SectorID)
			fmt.Fprintf(w, "Redirect URIs:\t%s\n", strings.Join(rp.RedirectURIs, ", "))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name shown on the login page")
	cmd.Flags().StringArrayVar(&redirectURIs, "redirect-uri", nil, "allowed redirect URI (repeatable)")
	cmd.Flags().StringVar(&sectorID, "sector-id", "", "pairwise sector (default: host of the first redirect URI)")
	cmd.Flags().StringVar(&owner, "owner", "", "user id that manages the relying party")
	cmd.Flags().StringVar(&database, "database", getEnv("NP_DATABASE_FILE", "nullprofile.db"), "SQLite database file (env NP_DATABASE_FILE)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
