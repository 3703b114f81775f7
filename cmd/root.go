package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vellumdb/vellum/cmd/docs"
	"github.com/vellumdb/vellum/cmd/serve"
	"github.com/vellumdb/vellum/cmd/util"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vellum",
		Short: "document store client runtime and server",
		Long: fmt.Sprintf(`vellum (v%s)

A document store with a unit-of-work client runtime: tracked sessions,
optimistic concurrency and batched atomic writes over pluggable RPC
transports.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vellum",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vellum v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(docs.DocumentCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
