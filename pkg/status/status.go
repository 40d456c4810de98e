// Package status provides live-status snapshots used to seed the state of
// subjects that have no log evidence at report time.
package status

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/availog/pkg/subject"
)

// Lookup returns the current concrete state of a subject, if known.
type Lookup interface {
	State(kind subject.Kind, host, service string) (subject.State, bool)
}

// Map is an in-memory Lookup keyed by subject name.
type Map map[string]subject.State

// State implements Lookup.
func (m Map) State(kind subject.Kind, host, service string) (subject.State, bool) {
	st, ok := m[key(kind, host, service)]
	if !ok || !st.IsConcrete() || st.Kind() != kind {
		return subject.NoData, false
	}
	return st, true
}

// Set records the state of a subject.
func (m Map) Set(kind subject.Kind, host, service string, st subject.State) {
	m[key(kind, host, service)] = st
}

func key(kind subject.Kind, host, service string) string {
	if kind == subject.KindService {
		return host + ";" + service
	}
	return host
}

// snapshot is the YAML layout of a status file:
//
//	hosts:
//	  - name: web1
//	    state: UP
//	services:
//	  - host: web1
//	    service: HTTP
//	    state: OK
type snapshot struct {
	Hosts []struct {
		Name  string `yaml:"name"`
		State string `yaml:"state"`
	} `yaml:"hosts"`
	Services []struct {
		Host    string `yaml:"host"`
		Service string `yaml:"service"`
		State   string `yaml:"state"`
	} `yaml:"services"`
}

// Parse decodes a YAML status snapshot.
func Parse(data []byte) (Map, error) {
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing status snapshot: %w", err)
	}

	m := make(Map)
	for i, h := range snap.Hosts {
		if h.Name == "" {
			return nil, fmt.Errorf("hosts[%d]: name is required", i)
		}
		st, ok := subject.ParseState(subject.KindHost, h.State)
		if !ok {
			return nil, fmt.Errorf("hosts[%d]: unknown host state %q", i, h.State)
		}
		m.Set(subject.KindHost, h.Name, "", st)
	}
	for i, s := range snap.Services {
		if s.Host == "" || s.Service == "" {
			return nil, fmt.Errorf("services[%d]: host and service are required", i)
		}
		st, ok := subject.ParseState(subject.KindService, s.State)
		if !ok {
			return nil, fmt.Errorf("services[%d]: unknown service state %q", i, s.State)
		}
		m.Set(subject.KindService, s.Host, s.Service, st)
	}
	return m, nil
}

// LoadFile reads a YAML status snapshot from disk.
func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading status file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
