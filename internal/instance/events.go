package instance

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/baymaxhuang/atomix/internal/client"
)

// eventGroup is the per-event-name listener set. One upstream subscription
// serves all listeners of the group; the group is removed together with the
// upstream subscription when the last listener closes.
type eventGroup struct {
	upstream  client.Listener
	listeners map[uint64]func([]byte)
}

// eventRegistration detaches one listener from its owning client. Detachment
// goes through an explicit unregister call rather than a captured closure so
// the handle holds no reference to the listener map itself.
type eventRegistration struct {
	client *Client
	event  string
	id     uint64
}

func (r *eventRegistration) Close() {
	r.client.unregister(r.event, r.id)
}

// eventFilter wraps a compiled CEL program gating event delivery. When
// disabled, Eval always returns true.
type eventFilter struct {
	prog    cel.Program
	enabled bool
}

func newEventFilter(expr string) (eventFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return eventFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("event", cel.StringType),
		cel.Variable("resource", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		// Parsed JSON payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
	)
	if err != nil {
		return eventFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return eventFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return eventFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return eventFilter{}, err
	}
	return eventFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against an event. When disabled,
// returns true.
func (f eventFilter) Eval(event string, resource uint64, payload []byte) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"event":    event,
		"resource": int64(resource),
		"size":     int64(len(payload)),
		"text":     string(payload),
		"json":     jsonObj,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
