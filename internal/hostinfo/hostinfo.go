// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hostinfo supplies the host identifier used to namespace buffer
// keys and the decoration tags attached to every status line. Real
// enrollment (obtaining a node key from a remote collector) is treated as
// an external collaborator; this package only covers what the forwarder
// needs locally.
package hostinfo

import (
	"fmt"
	"os"
	"runtime"
)

// Provider supplies the identifiers and tags the envelope builder and
// allocator need. Implementations may read these from a config management
// daemon, an enrollment response, or (the default) the local OS.
type Provider interface {
	// InstanceName names this forwarder for buffer-key namespacing; it must
	// be stable across restarts so Allocator.Seed can find this instance's
	// prior keys during recovery.
	InstanceName() string
	// Decorations returns the tags attached to every status line.
	Decorations() map[string]string
}

// Local reads the hostname and OS from the running process. It is the
// default Provider and the one a stand-alone agent uses outside of a
// managed fleet.
type Local struct {
	name string
}

// NewLocal captures the current hostname once; a hostname change mid-run
// does not retroactively rename already-buffered keys.
func NewLocal() (*Local, error) {
	name, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostinfo: read hostname: %w", err)
	}
	return &Local{name: name}, nil
}

// InstanceName returns the captured hostname.
func (l *Local) InstanceName() string { return l.name }

// Decorations reports the hostname, OS and architecture.
func (l *Local) Decorations() map[string]string {
	return map[string]string{
		"hostname": l.name,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
	}
}

var _ Provider = (*Local)(nil)

// Static returns a Provider with a fixed name and decoration set, for tests
// and for deployments that already know their identity (e.g. supplied via
// enrollment) and don't want it read off the live host.
type Static struct {
	Name string
	Deco map[string]string
}

func (s Static) InstanceName() string            { return s.Name }
func (s Static) Decorations() map[string]string { return s.Deco }

var _ Provider = Static{}
