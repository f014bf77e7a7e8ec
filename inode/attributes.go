package inode

import (
	"strings"

	"github.com/google/gomemfs/vfserr"
)

// Provider is a single attribute view (basic, owner, posix, unix, dos,
// acl, user). It owns a fixed set of attribute names, may answer read
// requests for attributes owned by the views it inherits, stamps default
// values on a fresh inode, and validates get/set requests. This models an
// inheritance-heavy provider class hierarchy as a single interface with a
// static inherits list; see DESIGN.md.
type Provider interface {
	// ViewName is this provider's view, e.g. "posix".
	ViewName() string

	// Attributes lists the names this provider owns (as opposed to merely
	// inheriting read access to).
	Attributes() []string

	// Inherits lists view names whose owned attributes this provider also
	// answers read requests for.
	Inherits() []string

	// InitialAttributes stamps default values for this view's owned
	// attributes onto a freshly created inode.
	InitialAttributes(in *Inode)

	// Get returns the value of name, which must be one of Attributes().
	Get(in *Inode, name string) (interface{}, error)

	// Set stores value for name. create indicates this call is part of
	// initial creation-time attribute application (some attributes are
	// only settable at creation).
	Set(in *Inode, name string, value interface{}, create bool) error
}

// Service composes a registered set of Providers and dispatches
// get/set/read by "view:name" key.
type Service struct {
	providers map[string]Provider
	order     []string
}

// NewService builds a Service from the given providers. Order is
// preserved for SetInitialAttributes and wildcard ReadAttributes.
func NewService(providers ...Provider) *Service {
	s := &Service{providers: make(map[string]Provider)}
	for _, p := range providers {
		s.providers[p.ViewName()] = p
		s.order = append(s.order, p.ViewName())
	}
	return s
}

func splitKey(key string) (view, name string, err error) {
	i := strings.IndexByte(key, ':')
	if i < 0 {
		return "", "", vfserr.NewError(vfserr.InvalidArgument, "attribute-key", key)
	}
	return key[:i], key[i+1:], nil
}

// provider looks up the provider registered for the literal view name,
// failing UNSUPPORTED_OPERATION if it isn't registered. Set always routes
// to this (writes only ever go to the literal owner named in the key);
// Get routes through resolveReader instead, which additionally walks
// Inherits() when the named view doesn't itself own the attribute.
func (s *Service) provider(view string) (Provider, error) {
	p, ok := s.providers[view]
	if !ok {
		return nil, vfserr.NewError(vfserr.UnsupportedOperation, "attribute-view", view)
	}
	return p, nil
}

// ownsAttribute reports whether p's own Attributes() (not counting
// anything it inherits) includes name.
func ownsAttribute(p Provider, name string) bool {
	for _, n := range p.Attributes() {
		if n == name {
			return true
		}
	}
	return false
}

// resolveReader finds the provider that should answer a read of
// "view:name": p itself if it owns name directly, otherwise the first
// provider reachable through p's (possibly multi-level) Inherits() chain
// that owns it. This is what makes GetAttribute(in, "posix:size") and
// ReadAttributes(in, "posix") see basic's "size" the way spec section 4.2
// says a provider may answer read requests for attributes owned by its
// inherits.
func (s *Service) resolveReader(p Provider, name string) (Provider, error) {
	if ownsAttribute(p, name) {
		return p, nil
	}
	for _, parent := range p.Inherits() {
		pp, ok := s.providers[parent]
		if !ok {
			continue
		}
		if found, err := s.resolveReader(pp, name); err == nil {
			return found, nil
		}
	}
	return nil, errAttributeNotFound(p.ViewName(), name)
}

// SetInitialAttributes stamps every registered provider's defaults onto a
// freshly created inode, then applies create (user-supplied creation
// attributes, "view:name" -> value).
func (s *Service) SetInitialAttributes(in *Inode, create map[string]interface{}) error {
	for _, name := range s.order {
		s.providers[name].InitialAttributes(in)
	}
	for key, value := range create {
		if err := s.SetAttribute(in, key, value, true); err != nil {
			return err
		}
	}
	return nil
}

// SetAttribute dispatches to the owning provider.
func (s *Service) SetAttribute(in *Inode, key string, value interface{}, create bool) error {
	view, name, err := splitKey(key)
	if err != nil {
		return err
	}
	p, err := s.provider(view)
	if err != nil {
		return err
	}
	return p.Set(in, name, value, create)
}

// GetAttribute dispatches to the provider that owns name, falling back
// through the named view's Inherits() chain when the view itself doesn't
// own it directly (e.g. "posix:size" is answered by basic).
func (s *Service) GetAttribute(in *Inode, key string) (interface{}, error) {
	view, name, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	p, err := s.provider(view)
	if err != nil {
		return nil, err
	}
	owner, err := s.resolveReader(p, name)
	if err != nil {
		return nil, err
	}
	return owner.Get(in, name)
}

// ReadAttributes returns a map of "owningView:name" -> value for the
// given view's own attributes plus every attribute owned by a view it
// inherits (spec section 4.2: "posix: ...inherits basic and owner"), or
// every attribute of every registered view if view == "*".
func (s *Service) ReadAttributes(in *Inode, view string) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	emit := func(p Provider) error {
		for _, name := range p.Attributes() {
			v, err := p.Get(in, name)
			if err != nil {
				return err
			}
			out[p.ViewName()+":"+name] = v
		}
		return nil
	}

	var emitWithInherited func(p Provider) error
	emitWithInherited = func(p Provider) error {
		if err := emit(p); err != nil {
			return err
		}
		for _, parent := range p.Inherits() {
			pp, ok := s.providers[parent]
			if !ok {
				continue
			}
			if err := emitWithInherited(pp); err != nil {
				return err
			}
		}
		return nil
	}

	if view == "*" {
		for _, name := range s.order {
			if err := emit(s.providers[name]); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	p, err := s.provider(view)
	if err != nil {
		return nil, err
	}
	if err := emitWithInherited(p); err != nil {
		return nil, err
	}
	return out, nil
}

// Views returns the registered view names.
func (s *Service) Views() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// AttributeView is a handle bound to one inode and one registered view —
// a dispatch table keyed by view name, in place of reflective per-class
// view objects.
type AttributeView struct {
	service *Service
	in      *Inode
	view    string
}

// View returns a handle for reading/writing in's attributes in the given
// view, failing UNSUPPORTED_OPERATION if the view isn't registered.
func (s *Service) View(in *Inode, view string) (*AttributeView, error) {
	if _, err := s.provider(view); err != nil {
		return nil, err
	}
	return &AttributeView{service: s, in: in, view: view}, nil
}

// Name returns the view's name, e.g. "posix".
func (v *AttributeView) Name() string { return v.view }

// Get returns the value of name within this view.
func (v *AttributeView) Get(name string) (interface{}, error) {
	return v.service.GetAttribute(v.in, v.view+":"+name)
}

// Set stores value for name within this view.
func (v *AttributeView) Set(name string, value interface{}) error {
	return v.service.SetAttribute(v.in, v.view+":"+name, value, false)
}

// ReadAll returns every attribute this view owns, plus those owned by the
// registered views it inherits, keyed "owningView:name".
func (v *AttributeView) ReadAll() (map[string]interface{}, error) {
	return v.service.ReadAttributes(v.in, v.view)
}
