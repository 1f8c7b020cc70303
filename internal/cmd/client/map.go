package client

import (
	"encoding/json"
	"fmt"

	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/resources/kvmap"
	"github.com/spf13/cobra"
)

// NewMapCommand constructs the `map` command group and subcommands.
func NewMapCommand() *cobra.Command {
	mapCmd := &cobra.Command{Use: "map", Short: "Distributed map operations"}
	mapCmd.PersistentFlags().String("name", "", "Map name")
	_ = mapCmd.MarkPersistentFlagRequired("name")

	mapCmd.AddCommand(
		newMapGetCommand(),
		newMapPutCommand(),
		newMapRemoveCommand(),
		newMapSizeCommand(),
		newMapClearCommand(),
		newMapWatchCommand(),
		newMapDeleteCommand(),
	)
	return mapCmd
}

func newMapGetCommand() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a map entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				value, found, err := m.Get(cmd.Context(), args[0], consistencyFlag(cmd))
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("key %q not found", args[0])
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(decodedValue(value))
			})
		},
	}
	getCmd.Flags().String("consistency", "strict", "Read consistency: strict|lease")
	return getCmd
}

func newMapPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Write a map entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				prev, found, err := m.Put(cmd.Context(), args[0], []byte(args[1]))
				if err != nil {
					return err
				}
				if found {
					fmt.Fprintf(cmd.OutOrStdout(), "replaced %q\n", prev)
				}
				return nil
			})
		},
	}
}

func newMapRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a map entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				_, found, err := m.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("key %q not found", args[0])
				}
				return nil
			})
		},
	}
}

func newMapSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Count map entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				size, err := m.Size(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), size)
				return nil
			})
		},
	}
}

func newMapClearCommand() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all map entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("clear requires --confirm")
			}
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				return m.Clear(cmd.Context())
			})
		},
	}
	clearCmd.Flags().Bool("confirm", false, "Confirm clearing the map")
	return clearCmd
}

func newMapWatchCommand() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream put and remove events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			filter, _ := cmd.Flags().GetString("filter")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				print := func(kind string) func(kvmap.EventPayload) {
					return func(ev kvmap.EventPayload) {
						out := decodedValue(ev.Value)
						out["event"] = kind
						out["key"] = ev.Key
						_ = enc.Encode(out)
					}
				}
				if filter != "" {
					if _, err := m.OnPutWhere(filter, print("put")); err != nil {
						return err
					}
				} else {
					m.OnPut(print("put"))
				}
				m.OnRemove(print("remove"))
				<-cmd.Context().Done()
				return nil
			})
		},
	}
	watchCmd.Flags().String("filter", "", "CEL filter over put events (vars: event, resource, size, text, json)")
	return watchCmd
}

func newMapDeleteCommand() *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Destroy the map cluster-wide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("delete requires --confirm")
			}
			name, _ := cmd.Flags().GetString("name")
			return withFactory(cmd.Context(), func(f *instance.Factory) error {
				m, err := kvmap.New(cmd.Context(), f, name)
				if err != nil {
					return err
				}
				return m.Delete(cmd.Context())
			})
		},
	}
	deleteCmd.Flags().Bool("confirm", false, "Confirm deleting the map")
	return deleteCmd
}
