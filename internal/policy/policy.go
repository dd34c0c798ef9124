// Package policy holds the protection rule evaluators. Each evaluator is a
// pure predicate over message content and group settings; exemption checks
// and enforcement (delete, kick, notice) live in the dispatcher, which owns
// the transport and the permission resolver.
package policy

// Verdict is the outcome of one policy evaluation.
type Verdict struct {
	Matched bool
	Kick    bool
	Reason  string
}

var noMatch = Verdict{}
