package client

import (
	"context"
	"fmt"
	"time"

	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/resources/lock"
	"github.com/spf13/cobra"
)

// NewLockCommand constructs the `lock` command group and subcommands.
func NewLockCommand() *cobra.Command {
	lockCmd := &cobra.Command{Use: "lock", Short: "Distributed lock operations"}
	lockCmd.PersistentFlags().String("name", "", "Lock name")
	_ = lockCmd.MarkPersistentFlagRequired("name")

	lockCmd.AddCommand(
		newLockAcquireCommand(),
		newLockStatusCommand(),
		newLockDeleteCommand(),
	)
	return lockCmd
}

func newLockAcquireCommand() *cobra.Command {
	acquireCmd := &cobra.Command{
		Use:   "acquire",
		Short: "Acquire the lock and hold it until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			hold, _ := cmd.Flags().GetDuration("hold")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				l, err := lock.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				if err := l.Acquire(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "acquired %q\n", name)
				ctx := cmd.Context()
				if hold > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, hold)
					defer cancel()
				}
				<-ctx.Done()
				// The lock is held by this process's session; release it
				// before the session goes away.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return l.Release(releaseCtx)
			})
		},
	}
	acquireCmd.Flags().Duration("hold", 0, "Release after this duration instead of waiting for an interrupt")
	return acquireCmd
}

func newLockStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report lock ownership",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				l, err := lock.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				status, err := l.Get(cmd.Context(), consistencyFlag(cmd))
				if err != nil {
					return err
				}
				if !status.Locked {
					fmt.Fprintln(cmd.OutOrStdout(), "unlocked")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "locked by session %d\n", status.Holder)
				return nil
			})
		},
	}
	statusCmd.Flags().String("consistency", "strict", "Read consistency: strict|lease")
	return statusCmd
}

func newLockDeleteCommand() *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Destroy the lock cluster-wide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("delete requires --confirm")
			}
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				l, err := lock.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				return l.Delete(cmd.Context())
			})
		},
	}
	deleteCmd.Flags().Bool("confirm", false, "Confirm deleting the lock")
	return deleteCmd
}
