package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"node.town/attacca/db"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the reading history schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.Flags().String("database-url", "", "Postgres connection URL")
	rootCmd.Flags().BoolP("yes", "y", false, "Apply without asking")
	rootCmd.Flags().Bool("rollback", false, "Revert the last applied migration")
	viper.BindPFlag("database_url", rootCmd.Flags().Lookup("database-url"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout)
	sqlLogger := logger.WithPrefix("data")

	url := viper.GetString("database_url")
	if url == "" {
		return fmt.Errorf("missing DATABASE_URL or --database-url=")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	if rollback, _ := cmd.Flags().GetBool("rollback"); rollback {
		return db.Rollback(ctx, pool, sqlLogger)
	}

	var confirm db.ConfirmFunc
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm = func(m db.Migration) (bool, error) {
			ok := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("New migration found: %s", m.ID)).
				Description(m.Description).
				Value(&ok).
				Run()
			return ok, err
		}
	}

	logger.Info("Starting database migration process...")
	if err := db.Migrate(ctx, pool, confirm, sqlLogger); err != nil {
		return err
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
