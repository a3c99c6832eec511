package engine

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/graph"
)

type CommandKind uint8

const (
	// SetChannel installs Stack at Channel, replacing whatever was there.
	SetChannel CommandKind = iota
	// ReplaceNodes swaps the node list of Channel, keeping its registers.
	ReplaceNodes
	// RemoveChannel empties Channel.
	RemoveChannel
	// ResetData zeroes the registers of every active channel.
	ResetData
	// AddNode appends Node to the node list of Channel.
	AddNode
)

func (k CommandKind) String() string {
	switch k {
	case SetChannel:
		return "SetChannel"
	case ReplaceNodes:
		return "ReplaceNodes"
	case RemoveChannel:
		return "RemoveChannel"
	case ResetData:
		return "ResetData"
	case AddNode:
		return "AddNode"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Command is a one-shot structural edit sent from a controller goroutine.
// Whatever it points to is handed over: the sender must not touch Stack,
// Nodes or Node after a successful send.
type Command struct {
	Kind    CommandKind
	Channel int
	Stack   *graph.Stack
	Nodes   *graph.NodeList
	Node    *graph.Node
}

func SetChannelCommand(channel int, s *graph.Stack) Command {
	return Command{Kind: SetChannel, Channel: channel, Stack: s}
}

func ReplaceNodesCommand(channel int, nodes *graph.NodeList) Command {
	return Command{Kind: ReplaceNodes, Channel: channel, Nodes: nodes}
}

func RemoveChannelCommand(channel int) Command {
	return Command{Kind: RemoveChannel, Channel: channel}
}

func ResetDataCommand() Command {
	return Command{Kind: ResetData}
}

func AddNodeCommand(channel int, n *graph.Node) Command {
	return Command{Kind: AddNode, Channel: channel, Node: n}
}

func (c Command) String() string {
	if c.Kind == ResetData {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", c.Kind, c.Channel)
}
