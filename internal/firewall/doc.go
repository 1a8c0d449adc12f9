// Package firewall applies phoque rules to the host packet filter.
//
// # Overview
//
// A [Manager] owns the ordered rule collection, persists every change through
// a [Store] and installs the collection through a [Backend]. Apply is
// clean-slate: every rule phoque applied earlier is removed first, then one
// add command per rule runs in collection order.
//
// # Backends
//
//   - [IPTables]: Linux. Rules carry their tag in an iptables comment.
//   - [Netsh]: Windows. Rules are named after their tag.
//
// [NewBackend] picks one from the OS name; there is no fallback.
//
// # Tags
//
// Every rule phoque writes is marked with brand.TagPrefix followed by the
// rule's short id. Cleanup and [Manager.Diff] only ever look at tagged rules,
// so rules managed by anything else are left alone.
//
// # Example
//
//	backend, _ := firewall.DetectBackend()
//	mgr, _ := firewall.NewManager(store, backend)
//	commands, err := mgr.Apply(false) // dry run
package firewall
