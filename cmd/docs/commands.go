package docs

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vellumdb/vellum/cmd/util"
	"github.com/vellumdb/vellum/lib/document"
	"github.com/vellumdb/vellum/lib/executor"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [id] [body]",
		Short: "Stores a document under an identifier",
		Long:  "Stores a document under an identifier. With --if-version the write only succeeds if the stored version matches, with --if-absent only if no document exists yet.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			body := args[1]

			constraint := executor.ConstraintNone
			var expected document.VersionToken
			if v, _ := cmd.Flags().GetString("if-version"); v != "" {
				constraint = executor.ConstraintMatchVersion
				expected = document.VersionToken(v)
			} else if absent, _ := cmd.Flags().GetBool("if-absent"); absent {
				constraint = executor.ConstraintMustNotExist
			}

			results, err := rpcExec.SubmitBatch([]executor.Command{{
				Kind:       executor.CommandPut,
				ID:         id,
				Body:       document.Body(body),
				Constraint: constraint,
				Expected:   expected,
			}})
			if err != nil {
				return err
			}
			r := results[0]
			fmt.Printf("id=%s, status=%s, version=%s\n", r.ID, r.Status, r.Version)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [id]",
		Short: "Reads the document stored under an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if doc, ok, err := rpcExec.Load(id); err != nil {
				return err
			} else if !ok {
				fmt.Printf("id=%s, found=false\n", id)
			} else {
				fmt.Printf("id=%s, version=%s, body=%s\n", doc.ID, doc.Version, doc.Body)
				for k, v := range doc.Metadata {
					fmt.Printf("  %s=%s\n", k, v)
				}
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [id]",
		Short: "Deletes the document stored under an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			constraint := executor.ConstraintNone
			var expected document.VersionToken
			if v, _ := cmd.Flags().GetString("if-version"); v != "" {
				constraint = executor.ConstraintMatchVersion
				expected = document.VersionToken(v)
			}

			results, err := rpcExec.SubmitBatch([]executor.Command{{
				Kind:       executor.CommandDelete,
				ID:         id,
				Constraint: constraint,
				Expected:   expected,
			}})
			if err != nil {
				return err
			}
			fmt.Printf("id=%s, status=%s\n", results[0].ID, results[0].Status)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [id]",
		Short: "Checks if a document exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if found, err := rpcExec.Has(id); err != nil {
				return err
			} else {
				fmt.Printf("id=%s, found=%t\n", id, found)
			}
			return nil
		},
	}
	reserveCmd = &cobra.Command{
		Use:   "reserve [collection] [capacity]",
		Short: "Reserves an identifier range for a collection",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			capacity := util.GetRangeCapacity()
			if len(args) == 2 {
				var err error
				capacity, err = strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("capacity must be a number: %w", err)
				}
			}
			rng, err := rpcReserver.ReserveRange(collection, capacity)
			if err != nil {
				return err
			}
			fmt.Printf("collection=%s, low=%d, high=%d, lease=%s\n", rng.Collection, rng.Low, rng.High, rng.Lease)
			return nil
		},
	}
)

func init() {
	putCmd.Flags().String("if-version", "", "only write if the stored version matches this token")
	putCmd.Flags().Bool("if-absent", false, "only write if no document exists under the identifier")
	delCmd.Flags().String("if-version", "", "only delete if the stored version matches this token")
}
