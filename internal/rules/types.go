package rules

import "strings"

// Direction is the traffic direction a rule matches.
type Direction string

const (
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
	DirectionForward Direction = "FORWARD"
)

// Directions lists every valid direction in display order.
var Directions = []Direction{DirectionIn, DirectionOut, DirectionForward}

// ParseDirection accepts a direction name in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DirectionIn, DirectionOut, DirectionForward:
		return d, nil
	}
	return "", &ValidationError{Field: "direction", Value: s, Reason: "must be one of IN, OUT, FORWARD"}
}

// Protocol is the transport protocol a rule matches.
type Protocol string

const (
	ProtocolTCP  Protocol = "TCP"
	ProtocolUDP  Protocol = "UDP"
	ProtocolICMP Protocol = "ICMP"
)

// Protocols lists every valid protocol in display order.
var Protocols = []Protocol{ProtocolTCP, ProtocolUDP, ProtocolICMP}

// ParseProtocol accepts a protocol name in any case.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP:
		return p, nil
	}
	return "", &ValidationError{Field: "protocol", Value: s, Reason: "must be one of TCP, UDP, ICMP"}
}

// HasPorts reports whether the protocol carries port numbers.
func (p Protocol) HasPorts() bool {
	return p != ProtocolICMP
}

// Lower returns the protocol name as the filter tools spell it.
func (p Protocol) Lower() string {
	return strings.ToLower(string(p))
}

// Action is the verdict applied to matching traffic.
type Action string

const (
	ActionAllow  Action = "ALLOW"
	ActionDeny   Action = "DENY"
	ActionReject Action = "REJECT"
)

// Actions lists every valid action in display order.
var Actions = []Action{ActionAllow, ActionDeny, ActionReject}

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionAllow, ActionDeny, ActionReject:
		return a, nil
	}
	return "", &ValidationError{Field: "action", Value: s, Reason: "must be one of ALLOW, DENY, REJECT"}
}
