// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package bridge

// Extra describes one optional framework integration, installable as
// a package extra (pip install perceval-interop[<name>]). The doctor
// command probes each extra's Python module to report which bridges
// are usable on this machine.
type Extra struct {
	// Name is the install extra, e.g. "qiskit_bridge".
	Name string

	// Framework is the human name of the bridged framework.
	Framework string

	// Module is the Python module whose importability proves the
	// extra is installed.
	Module string
}

// Extras returns the optional framework integrations, in the order
// they are documented. The "all" meta-extra on the Python side is the
// union of these.
func Extras() []Extra {
	return []Extra{
		{Name: "qiskit_bridge", Framework: "Qiskit", Module: "qiskit"},
		{Name: "qutip_bridge", Framework: "QuTiP", Module: "qutip"},
		{Name: "myqlm_bridge", Framework: "myQLM", Module: "qat"},
		{Name: "cqasm_bridge", Framework: "cQASM", Module: "cqasm"},
	}
}
