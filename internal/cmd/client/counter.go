package client

import (
	"fmt"
	"strconv"

	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/resources/counter"
	"github.com/spf13/cobra"
)

// NewCounterCommand constructs the `counter` command group and subcommands.
func NewCounterCommand() *cobra.Command {
	counterCmd := &cobra.Command{Use: "counter", Short: "Distributed counter operations"}
	counterCmd.PersistentFlags().String("name", "", "Counter name")
	_ = counterCmd.MarkPersistentFlagRequired("name")

	counterCmd.AddCommand(
		newCounterGetCommand(),
		newCounterIncrCommand(),
		newCounterSetCommand(),
		newCounterDeleteCommand(),
	)
	return counterCmd
}

func newCounterGetCommand() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Read the counter value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				c, err := counter.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				v, err := c.Get(cmd.Context(), consistencyFlag(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	getCmd.Flags().String("consistency", "strict", "Read consistency: strict|lease")
	return getCmd
}

func newCounterIncrCommand() *cobra.Command {
	incrCmd := &cobra.Command{
		Use:   "incr",
		Short: "Add to the counter and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			delta, _ := cmd.Flags().GetInt64("delta")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				c, err := counter.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				v, err := c.Increment(cmd.Context(), delta)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	incrCmd.Flags().Int64("delta", 1, "Amount to add (may be negative)")
	return incrCmd
}

func newCounterSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <value>",
		Short: "Replace the counter value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", args[0])
			}
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				c, err := counter.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				return c.Set(cmd.Context(), value)
			})
		},
	}
}

func newCounterDeleteCommand() *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Destroy the counter cluster-wide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("delete requires --confirm")
			}
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				c, err := counter.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				return c.Delete(cmd.Context())
			})
		},
	}
	deleteCmd.Flags().Bool("confirm", false, "Confirm deleting the counter")
	return deleteCmd
}
