package docs

import (
	"github.com/spf13/cobra"
	"github.com/vellumdb/vellum/cmd/util"
	"github.com/vellumdb/vellum/lib/executor"
)

var (
	rpcExec     executor.IExecutor
	rpcReserver executor.IRangeReserver

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:               "docs",
		Short:             "Perform document store operations",
		PersistentPreRunE: setupDocsClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the docs command
	util.SetupRPCClientFlags(DocumentCommands)

	DocumentCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	DocumentCommands.AddCommand(putCmd)
	DocumentCommands.AddCommand(getCmd)
	DocumentCommands.AddCommand(delCmd)
	DocumentCommands.AddCommand(hasCmd)
	DocumentCommands.AddCommand(reserveCmd)
	DocumentCommands.AddCommand(perfTestCmd)
}

// setupDocsClient initializes the RPC executor and range reserver clients
func setupDocsClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if rpcExec, err = util.ConnectExecutor(); err != nil {
		return err
	}
	rpcReserver, err = util.ConnectReserver()
	return err
}
