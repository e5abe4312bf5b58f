package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestroSwift/villarbolsillo/internal/catalog"
	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/config"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage professions, characters, merchants and products",
	}
	cmd.AddCommand(catalogImportCmd())
	cmd.AddCommand(catalogProductsCmd())
	return cmd
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML catalog into the ledger",
		Long: `Load professions, characters, merchants and products from a YAML file.

Importing is idempotent: entries already present are updated in place.`,
		Example: `  villar catalog import town.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolveFile(args[0])
			if err != nil {
				return err
			}
			f, err := catalog.Load(path)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := catalog.Import(cmd.Context(), a.store, f)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Catalog imported: %d professions, %d characters, %d merchants, %d products (%d updated)",
				summary.Professions, summary.Characters, summary.Merchants, summary.Products, summary.Updated)))
			return nil
		},
	}
}

func catalogProductsCmd() *cobra.Command {
	var merchant string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the products for sale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			merchants, err := a.ledger.Merchants(ctx)
			if err != nil {
				return err
			}
			names := make(map[string]string, len(merchants))
			merchantID := ""
			for _, m := range merchants {
				names[m.ID] = m.Name
				if merchant != "" && strings.EqualFold(m.Name, merchant) {
					merchantID = m.ID
				}
			}
			if merchant != "" && merchantID == "" {
				return fmt.Errorf("no merchant named %q", merchant)
			}

			products, err := a.ledger.Products(ctx, merchantID)
			if err != nil {
				return err
			}
			a.println(productsTable(products, names))
			return nil
		},
	}
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "only list this merchant's products")
	return cmd
}
