package protocol

import "encoding/json"

// Manager operations. The manager is the resource-id-0 state machine that
// resolves resource names to ids and owns per-resource session bookkeeping.

const (
	OpGetResource    = "resource.get"
	OpCloseResource  = "resource.close"
	OpDeleteResource = "resource.delete"
)

// GetResource resolves (creating if absent) a resource id for a name/type
// pair.
type GetResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GetResourceResult carries the resolved resource id.
type GetResourceResult struct {
	Resource uint64 `json:"resource"`
}

// CloseResource releases this session's per-resource state on the server.
type CloseResource struct {
	Resource uint64 `json:"resource"`
}

// DeleteResource removes a resource after its delete command committed.
type DeleteResource struct {
	Resource uint64 `json:"resource"`
}

// GetResourceCommand builds the manager command resolving name/type.
func GetResourceCommand(name, typ string) Command {
	input, _ := json.Marshal(GetResource{Name: name, Type: typ})
	return Command{Op: OpGetResource, Input: input}
}

// CloseResourceCommand builds the control command releasing resource state.
func CloseResourceCommand(resource uint64) Command {
	input, _ := json.Marshal(CloseResource{Resource: resource})
	return Command{Op: OpCloseResource, Input: input}
}

// DeleteResourceCommand builds the control command removing a resource.
func DeleteResourceCommand(resource uint64) Command {
	input, _ := json.Marshal(DeleteResource{Resource: resource})
	return Command{Op: OpDeleteResource, Input: input}
}
