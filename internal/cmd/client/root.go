package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the client. It registers the
// map, counter and lock command groups.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "atomix",
		Short: "Atomix client commands",
	}
	root.AddCommand(NewMapCommand())
	root.AddCommand(NewCounterCommand())
	root.AddCommand(NewLockCommand())
	return root
}
