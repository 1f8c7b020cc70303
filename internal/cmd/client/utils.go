package client

import (
	"context"
	"encoding/json"
	"os"
	"unicode/utf8"

	grpcclient "github.com/baymaxhuang/atomix/internal/client/grpc"
	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/log"
	"github.com/spf13/cobra"
)

// serverAddrFromEnv returns the server address from ATOMIX_ADDR or a default.
func serverAddrFromEnv() string {
	if addr := os.Getenv("ATOMIX_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:5678"
}

// withFactory establishes a session, hands a resource factory to fn and
// closes the session afterwards.
func withFactory(ctx context.Context, fn func(*instance.Factory) error) error {
	c, err := grpcclient.Dial(ctx, grpcclient.Options{Target: serverAddrFromEnv(), Logger: log.FromEnv()})
	if err != nil {
		return err
	}
	f := instance.NewFactory(c, log.FromEnv())
	defer func() { _ = f.Close() }()
	return fn(f)
}

// consistencyFlag reads the --consistency flag ("strict" or "lease").
func consistencyFlag(cmd *cobra.Command) protocol.Consistency {
	v, _ := cmd.Flags().GetString("consistency")
	if v == "lease" {
		return protocol.ConsistencyLease
	}
	return protocol.ConsistencyStrict
}

// decodedValue returns value as JSON when it parses, as text when printable,
// otherwise omitted with only its length reported.
func decodedValue(value []byte) map[string]any {
	out := map[string]any{}
	if len(value) > 0 && (value[0] == '{' || value[0] == '[') {
		var v any
		if json.Unmarshal(value, &v) == nil {
			out["value_json"] = v
			return out
		}
	}
	if utf8.Valid(value) {
		out["value_text"] = string(value)
		return out
	}
	out["value_len"] = len(value)
	return out
}
