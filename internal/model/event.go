// Package model defines the core data structures for the tally application.
package model

import (
	"strings"
	"time"
)

// EventKind identifies which platform observer produced a SourceEvent.
type EventKind string

const (
	// EventScreen is a content snapshot from the screen observer.
	EventScreen EventKind = "screen"
	// EventNotification is a posted system notification.
	EventNotification EventKind = "notification"
)

// TextNode is one node of an on-screen content tree.
type TextNode interface {
	Text() string
	Children() []TextNode
}

// Node is the JSON representation of a TextNode as delivered by the platform adapter.
type Node struct {
	Value       string  `json:"text,omitempty"`
	Description string  `json:"desc,omitempty"`
	Nodes       []*Node `json:"children,omitempty"`
}

// Text returns the node text, falling back to its content description.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.Value != "" {
		return n.Value
	}
	return n.Description
}

// Children returns the non-nil child nodes.
func (n *Node) Children() []TextNode {
	if n == nil || len(n.Nodes) == 0 {
		return nil
	}
	children := make([]TextNode, 0, len(n.Nodes))
	for _, child := range n.Nodes {
		if child != nil {
			children = append(children, child)
		}
	}
	return children
}

// SourceEvent is a single snapshot pushed by a platform observer. It is consumed once.
type SourceEvent struct {
	Timestamp time.Time
	Root      TextNode
	Kind      EventKind
	SourceApp string
	Title     string
	Body      string
}

// NotificationText joins the notification title and body.
func (e SourceEvent) NotificationText() string {
	return e.Title + " " + e.Body
}

// Walk visits root and its descendants depth-first, pre-order.
// Returning false from fn stops the walk.
func Walk(root TextNode, fn func(TextNode) bool) {
	walk(root, fn)
}

func walk(node TextNode, fn func(TextNode) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node) {
		return false
	}
	for _, child := range node.Children() {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// Fragments returns every non-empty text in the tree in pre-order.
func Fragments(root TextNode) []string {
	var out []string
	Walk(root, func(n TextNode) bool {
		if text := n.Text(); text != "" {
			out = append(out, text)
		}
		return true
	})
	return out
}

// Flatten joins all fragments of the tree with newlines.
func Flatten(root TextNode) string {
	return strings.Join(Fragments(root), "\n")
}
