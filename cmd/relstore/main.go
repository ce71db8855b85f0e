package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tordrt/relstore"
	"github.com/tordrt/relstore/internal/config"
)

var (
	configPath string
	dialect    string
	dbURL      string
)

var rootCmd = &cobra.Command{
	Use:   "relstore",
	Short: "Derive and create relational schemas from entity declarations",
	Long: `relstore reads entity declarations from a YAML file and derives the
relational schema the store would use: a main table per entity, dependent
tables for collection fields, and foreign keys for references.`,
}

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print the CREATE script for a dialect",
	RunE:  runDDL,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the derived tables in a database",
	RunE:  runCreate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Entity declaration file (YAML)")
	ddlCmd.Flags().StringVarP(&dialect, "dialect", "d", "sqlite", "Target dialect: postgres, mysql, or sqlite")
	createCmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (postgres://, mysql://, or sqlite://)")
	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(createCmd)
}

func loadDefs() ([]relstore.EntityDef, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config must be specified")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg.EntityDefs()
}

func runDDL(cmd *cobra.Command, args []string) error {
	defs, err := loadDefs()
	if err != nil {
		return err
	}
	stmts, err := relstore.Statements(dialect, defs)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), script(stmts))
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url must be specified")
	}
	defs, err := loadDefs()
	if err != nil {
		return err
	}

	store, err := relstore.Open(context.Background(), dbURL, defs, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close connection: %v\n", err)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "created tables for %d entities: %s\n",
		len(store.Names()), strings.Join(store.Names(), ", "))
	return nil
}

// script renders statements as an executable SQL script, one statement per
// paragraph.
func script(stmts []string) string {
	var b strings.Builder
	for _, stmt := range stmts {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	return b.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
