// SPDX-License-Identifier: MPL-2.0

// Package hostinfo reports facts about the build host: CPU family, machine
// hardware name and hostname.
package hostinfo

import (
	"os"
	"strings"
)

type (
	// Info is the system information collaborator consulted by the
	// packagers. Implementations must be safe for concurrent use.
	Info interface {
		// IsIntel reports whether the host is an Intel-family (x86) machine.
		IsIntel() bool
		// IsSparc reports whether the host is a SPARC-family machine.
		IsSparc() bool
		// Machine is the raw machine hardware name (uname -m).
		Machine() string
		// Hostname is the network name of the host.
		Hostname() string
	}

	// Static is an Info with fixed values.
	Static struct {
		MachineName string
		HostName    string
	}
)

var (
	intelMachines = []string{"i86pc", "i386", "i486", "i586", "i686", "x86", "x86_64", "amd64", "i86xpv"}
	sparcPrefixes = []string{"sun4", "sparc"}
)

// IsIntelMachine classifies a uname machine string as Intel-family.
func IsIntelMachine(machine string) bool {
	m := strings.ToLower(machine)
	for _, candidate := range intelMachines {
		if m == candidate {
			return true
		}
	}
	return false
}

// IsSparcMachine classifies a uname machine string as SPARC-family
// (sun4u, sun4v, sparc, sparc64, ...).
func IsSparcMachine(machine string) bool {
	m := strings.ToLower(machine)
	for _, prefix := range sparcPrefixes {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func (s Static) IsIntel() bool    { return IsIntelMachine(s.MachineName) }
func (s Static) IsSparc() bool    { return IsSparcMachine(s.MachineName) }
func (s Static) Machine() string  { return s.MachineName }
func (s Static) Hostname() string { return s.HostName }

// Detect inspects the running host.
func Detect() (Info, error) {
	machine, err := machineName()
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	return Static{MachineName: machine, HostName: host}, nil
}
