// Package ui holds the dialog component tree snaps use to talk to the user,
// plain-text and HTML renderers for it, and the presenters a headless host
// uses to answer dialogs.
package ui

// NodeType identifies a UI component.
type NodeType string

const (
	NodePanel    NodeType = "panel"
	NodeHeading  NodeType = "heading"
	NodeText     NodeType = "text"
	NodeDivider  NodeType = "divider"
	NodeCopyable NodeType = "copyable"
)

// Component is a node of the dialog content tree. Text values are markdown.
type Component struct {
	Type     NodeType    `json:"type"`
	Value    string      `json:"value,omitempty"`
	Children []Component `json:"children,omitempty"`
}

func Panel(children ...Component) Component {
	return Component{Type: NodePanel, Children: children}
}

func Heading(value string) Component { return Component{Type: NodeHeading, Value: value} }

func Text(value string) Component { return Component{Type: NodeText, Value: value} }

func Divider() Component { return Component{Type: NodeDivider} }

func Copyable(value string) Component { return Component{Type: NodeCopyable, Value: value} }

// DialogType selects the kind of user interaction.
type DialogType string

const (
	DialogConfirmation DialogType = "confirmation"
	DialogAlert        DialogType = "alert"
	DialogPrompt       DialogType = "prompt"
)

// Dialog is the payload of snap_dialog.
type Dialog struct {
	Type        DialogType `json:"type"`
	Content     Component  `json:"content"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// Confirmation builds a confirmation dialog around content.
func Confirmation(content Component) Dialog {
	return Dialog{Type: DialogConfirmation, Content: content}
}

// Alert builds an alert dialog around content.
func Alert(content Component) Dialog {
	return Dialog{Type: DialogAlert, Content: content}
}
