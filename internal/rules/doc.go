// Package rules holds the firewall rule model.
//
// A Rule is one filter intent: traffic direction, protocol, destination port
// and the verdict to apply. Rules are only ever built through New or Restore,
// both of which validate every field, so an invalid Rule never exists in
// memory. Rendering a Rule into a concrete filter command is the job of the
// firewall package; this package knows nothing about iptables or netsh.
package rules
