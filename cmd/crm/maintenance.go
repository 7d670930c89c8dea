package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"crm/internal/adapters/export"
	web "crm/internal/adapters/http"
	dealStore "crm/internal/adapters/storage/deal"
	"crm/internal/application/orchestrators"
	"crm/internal/domain/audit"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		return db.Close()
	},
}

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and, with --demo, one record set per portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		stores := web.NewStores(db)
		ctx := cmd.Context()
		if err := seedAdmin(ctx, stores); err != nil {
			return err
		}
		if !seedDemo {
			return nil
		}
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to seed demo data in production")
		}
		return orchestrators.ExecuteSeedDemo(ctx, demoDeps(stores))
	},
}

func demoDeps(s *web.Stores) orchestrators.SeedDemoDeps {
	return orchestrators.SeedDemoDeps{
		Accounts:    orchestrators.CreateAccountDeps{AccountStore: s.AccountStore, AuditStore: s.AuditStore},
		Instructors: orchestrators.InstructorDeps{InstructorStore: s.InstructorStore, Accounts: s.AccountStore},
		Studios:     orchestrators.StudioDeps{StudioStore: s.StudioStore, AuditStore: s.AuditStore, DefaultRadiusKm: cfg.Studio.DefaultRadiusKm},
		Classes: orchestrators.ClassDeps{
			ClassStore: s.ClassStore, Studios: s.StudioStore, Instructors: s.InstructorStore, AuditStore: s.AuditStore,
		},
		Deals:   orchestrators.DealDeps{DealStore: s.DealStore, ClassStore: s.ClassStore, AuditStore: s.AuditStore},
		Tickets: orchestrators.TicketDeps{TicketStore: s.TicketStore, Accounts: s.AccountStore, AuditStore: s.AuditStore},
	}
}

var (
	importDryRun bool
	importUpdate bool
)

var importDealsCmd = &cobra.Command{
	Use:   "import-deals <file.csv|file.xlsx>",
	Short: "Import deals from a spreadsheet as the configured admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := export.ReadRows(f, filepath.Base(args[0]))
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		stores := web.NewStores(db)
		ctx := cmd.Context()
		if err := seedAdmin(ctx, stores); err != nil {
			return err
		}
		admin, err := stores.AccountStore.GetByEmail(ctx, cfg.Admin.Email)
		if err != nil {
			return fmt.Errorf("load admin %s: %w", cfg.Admin.Email, err)
		}

		result, err := orchestrators.ExecuteImportDeals(ctx, orchestrators.ImportDealsInput{
			Rows:       rows,
			Actor:      audit.Actor{ID: admin.ID, Email: admin.Email, Role: admin.Role},
			DryRun:     importDryRun,
			UpdateMode: importUpdate,
		}, orchestrators.ImportDealsDeps{DealStore: stores.DealStore, ClassStore: stores.ClassStore, AuditStore: stores.AuditStore})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rows %d, created %d, updated %d, skipped %d, errors %d\n",
			result.Total, result.Created, result.Updated, result.Skipped, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Message)
		}
		if len(result.Unknown) > 0 {
			fmt.Fprintf(out, "ignored columns: %v\n", result.Unknown)
		}
		return nil
	},
}

var exportDealsCmd = &cobra.Command{
	Use:   "export-deals <file.xlsx>",
	Short: "Write every deal to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		deals, err := web.NewStores(db).DealStore.List(cmd.Context(), dealStore.ListFilter{})
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := export.WriteDeals(&buf, deals); err != nil {
			return err
		}
		if err := os.WriteFile(args[0], buf.Bytes(), 0o644); err != nil {
			return err
		}
		slog.Info("deal_event", "event", "exported", "rows", len(deals), "path", args[0])
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create demo accounts, studios, classes, deals and tickets")
	importDealsCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate without writing")
	importDealsCmd.Flags().BoolVar(&importUpdate, "update", false, "update deals whose email already exists")
}
