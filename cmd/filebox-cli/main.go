// filebox-cli runs maintenance tasks against a filebox data directory
// without starting the web server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "filebox-cli",
	Short:        "Maintenance commands for a filebox installation",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, extractCmd, unlockCmd)
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
