// Package feature validates the transport selections that switch optional
// parts of the extension on.
package feature

import (
	"fmt"
	"strings"

	"github.com/bcube-dev/bcube-setup/internal/config"
)

// Transport is the communication mechanism selected for one collective
// operation. The zero value means the operation is not offloaded.
type Transport string

const (
	TransportUnset Transport = ""
	TransportTCP   Transport = "TCP"
	TransportRDMA  Transport = "RDMA"
)

// Accepted lists every valid value, in the order shown to users.
var Accepted = []Transport{TransportUnset, TransportTCP, TransportRDMA}

// Enabled reports whether a transport was selected.
func (t Transport) Enabled() bool {
	return t != TransportUnset
}

// Selector is the single-character value the extension's sources switch on.
func (t Transport) Selector() string {
	if !t.Enabled() {
		return ""
	}
	return "'" + string(t)[:1] + "'"
}

// ConfigError reports a variable set to a value outside the accepted set.
type ConfigError struct {
	Variable string
	Value    string
	Accepted []Transport
}

func (e *ConfigError) Error() string {
	quoted := make([]string, len(e.Accepted))
	for i, a := range e.Accepted {
		quoted[i] = fmt.Sprintf("%q", string(a))
	}
	return fmt.Sprintf("%s=%s is invalid, supported values are %s.",
		e.Variable, e.Value, strings.Join(quoted, ", "))
}

// Parse validates value for variable. Empty means the feature is disabled.
func Parse(variable, value string) (Transport, error) {
	for _, t := range Accepted {
		if value == string(t) {
			return t, nil
		}
	}
	return TransportUnset, &ConfigError{Variable: variable, Value: value, Accepted: Accepted}
}

// Operation is a collective operation whose transport can be selected.
type Operation struct {
	// Name is the operation, e.g. "allreduce".
	Name string

	// Variable is the environment variable that selects its transport.
	Variable string

	// Macro is the preprocessor macro carrying the selector.
	Macro string
}

// Operations lists the selectable operations in descriptor order.
var Operations = []Operation{
	{Name: "allreduce", Variable: config.EnvGPUAllreduce, Macro: "BCUBE_GPU_ALLREDUCE"},
	{Name: "allgather", Variable: config.EnvGPUAllgather, Macro: "BCUBE_GPU_ALLGATHER"},
	{Name: "broadcast", Variable: config.EnvGPUBroadcast, Macro: "BCUBE_GPU_BROADCAST"},
}

// Selection binds an operation to its validated transport.
type Selection struct {
	Operation Operation
	Transport Transport
}

// Selections is the validated transport choice for every operation.
type Selections []Selection

// Select validates every operation's variable in env. The first invalid
// value aborts with a *ConfigError.
func Select(env config.Env) (Selections, error) {
	sels := make(Selections, 0, len(Operations))
	for _, op := range Operations {
		t, err := Parse(op.Variable, env.Get(op.Variable))
		if err != nil {
			return nil, err
		}
		sels = append(sels, Selection{Operation: op, Transport: t})
	}
	return sels, nil
}

// AnyEnabled reports whether any operation selected a transport.
func (s Selections) AnyEnabled() bool {
	for _, sel := range s {
		if sel.Transport.Enabled() {
			return true
		}
	}
	return false
}

// Of returns the transport selected for the named operation.
func (s Selections) Of(name string) Transport {
	for _, sel := range s {
		if sel.Operation.Name == name {
			return sel.Transport
		}
	}
	return TransportUnset
}
