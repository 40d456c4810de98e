package subject

import "sort"

// Authorizer decides whether the caller may see a subject. Authorization
// itself happens elsewhere; the registry only asks.
type Authorizer func(kind Kind, host, service string) bool

// Option configures a Registry.
type Option func(*Registry)

// WithAuthorizer filters subjects on admission.
func WithAuthorizer(a Authorizer) Option {
	return func(r *Registry) {
		r.authorize = a
	}
}

type key struct {
	kind    Kind
	host    string
	service string
}

// Registry is the ordered set of subjects of one report. It is not safe
// for concurrent mutation; ingestion writes from a single goroutine.
type Registry struct {
	subjects  []*Subject
	index     map[key]*Subject
	authorize Authorizer
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{index: make(map[key]*Subject)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add admits a subject. Adding an existing subject is a no-op that returns
// the existing one; unauthorized subjects are refused with nil.
func (r *Registry) Add(kind Kind, host, service string) *Subject {
	if kind == KindHost {
		service = ""
	}
	k := key{kind, host, service}
	if s, ok := r.index[k]; ok {
		return s
	}
	if r.authorize != nil && !r.authorize(kind, host, service) {
		return nil
	}

	s := New(kind, host, service)
	r.index[k] = s

	// Keep hosts ahead of their services, then order services by name.
	i := sort.Search(len(r.subjects), func(i int) bool {
		return less(s, r.subjects[i])
	})
	r.subjects = append(r.subjects, nil)
	copy(r.subjects[i+1:], r.subjects[i:])
	r.subjects[i] = s
	return s
}

// Find looks up a subject by exact identity.
func (r *Registry) Find(kind Kind, host, service string) *Subject {
	if kind == KindHost {
		service = ""
	}
	return r.index[key{kind, host, service}]
}

// Subjects returns all subjects ordered by host name.
func (r *Registry) Subjects() []*Subject {
	return r.subjects
}

// Len returns the number of subjects.
func (r *Registry) Len() int {
	return len(r.subjects)
}

// ServicesOf returns the service subjects that belong to host.
func (r *Registry) ServicesOf(host string) []*Subject {
	var out []*Subject
	for _, s := range r.subjects {
		if s.Kind == KindService && s.Host == host {
			out = append(out, s)
		}
	}
	return out
}

// Broadcast appends a copy of ev to every subject's timeline. It is used
// for program lifecycle markers, which concern all subjects.
func (r *Registry) Broadcast(ev StateEvent) {
	for _, s := range r.subjects {
		s.AddEvent(ev)
	}
}

func less(a, b *Subject) bool {
	if a.Host != b.Host {
		return a.Host < b.Host
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Service < b.Service
}
