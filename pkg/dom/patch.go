package dom

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = 0x01 // Update text content
	PatchAddClass    PatchOp = 0x02 // Add a class
	PatchRemoveClass PatchOp = 0x03 // Remove a class
	PatchSetStyle    PatchOp = 0x04 // Set inline style property
	PatchSetAttr     PatchOp = 0x05 // Set/update attribute
	PatchRemoveNode  PatchOp = 0x06 // Remove node
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchAddClass:
		return "AddClass"
	case PatchRemoveClass:
		return "RemoveClass"
	case PatchSetStyle:
		return "SetStyle"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveNode:
		return "RemoveNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single document mutation to apply on the client.
type Patch struct {
	Op     PatchOp // Operation type
	NodeID string  // Target element ID
	Key    string  // Class name or style property (op dependent)
	Value  string  // New value
}
