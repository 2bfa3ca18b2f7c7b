// Package registry is the measurement and calibration object database: the
// application's calibration segments, events, typedefs and instances, plus
// the freeze lifecycle and sort order the A2L writer and the XCP protocol
// glue both depend on.
package registry

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/clog"
	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
)

var log = clog.NewLogger("registry")

// TransportLayer is the XCP transport layer's protocol/address/port, used
// to emit the A2L XCP_ON_{PROTO}_IP block.
type TransportLayer struct {
	ProtocolName string
	Addr         net.IP
	Port         uint16
}

// Application carries the identity and EPK software-version fields of the
// application hosting this registry.
type Application struct {
	AppID       uint8
	Name        mcid.Identifier
	Description mcid.Text
	Version     mcid.Text
	VersionAddr uint32
}

// Registry is the measurement and calibration object database. It starts
// Mutable and moves one-way to Frozen on the first tool connection or an
// explicit Freeze call; no instance, event, segment or typedef may be added
// afterwards.
type Registry struct {
	VectorXCPMode   bool
	FlattenTypedefs bool
	PrefixNames     bool

	Application Application
	TLParams    *TransportLayer

	Events   *EventList
	CalSegs  *CalSegList
	TypeDefs *TypeDefList
	Instances *InstanceList

	frozen uint32 // atomic bool, 0=mutable 1=frozen
}

// New creates an empty, mutable Registry.
func New() *Registry {
	r := &Registry{VectorXCPMode: true, TypeDefs: NewTypeDefList()}
	r.Events = NewEventList(&r.frozen)
	r.CalSegs = NewCalSegList(&r.frozen)
	r.Instances = NewInstanceList(&r.frozen)
	return r
}

// IsFrozen reports whether the registry has been frozen.
func (r *Registry) IsFrozen() bool { return atomic.LoadUint32(&r.frozen) == 1 }

func (r *Registry) checkMutable() {
	if r.IsFrozen() {
		panic("registry: registry is frozen")
	}
}

// Freeze moves the registry to the Frozen state, flattening typedefs first
// if FlattenTypedefs is set. Freezing is one-way and idempotent.
func (r *Registry) Freeze() {
	if r.IsFrozen() {
		log.Warn("registry already frozen")
		return
	}
	if r.FlattenTypedefs {
		r.Flatten()
	}
	atomic.StoreUint32(&r.frozen, 1)
	log.Debug("registry frozen")
}

// SetAppInfo sets the application name, description and id.
func (r *Registry) SetAppInfo(name mcid.Identifier, description string, id uint8) {
	log.Debug("set application info: name=%s id=%d", name, id)
	r.Application.AppID = id
	r.Application.Name = name
	r.Application.Description = mcid.NewText(description)
}

// AppName returns the application name.
func (r *Registry) AppName() string { return r.Application.Name.String() }

// SetAppVersion sets the EPK version string and its virtual memory address.
func (r *Registry) SetAppVersion(epk string, versionAddr uint32) {
	r.Application.Version = mcid.NewText(epk)
	r.Application.VersionAddr = versionAddr
}

// SetXCPParams enables the A2L IF_DATA XCP transport-layer block.
func (r *Registry) SetXCPParams(protocolName string, addr net.IP, port uint16) {
	r.TLParams = &TransportLayer{ProtocolName: protocolName, Addr: addr, Port: port}
}

// HasXCPParams reports whether transport layer parameters are set.
func (r *Registry) HasXCPParams() bool { return r.TLParams != nil }

// AddTypeDefComponent adds a field to an existing typedef.
func (r *Registry) AddTypeDefComponent(typeName mcid.Identifier, field TypeDefField) error {
	r.checkMutable()
	t, ok := r.TypeDefs.Find(typeName)
	if !ok {
		return errNotFound(typeName.String())
	}
	return t.AddField(field.Name, field.DimType, field.Offset)
}

// AddTypeDef registers a new struct typedef of the given size in bytes.
func (r *Registry) AddTypeDef(typeName mcid.Identifier, size int) (*TypeDef, error) {
	r.checkMutable()
	if _, ok := r.TypeDefs.Find(typeName); ok {
		log.Warn("duplicate typedef name %s, equality not checked", typeName)
		return nil, errDuplicate(typeName.String())
	}
	t := NewTypeDef(typeName, size)
	r.TypeDefs.Push(t)
	return t, nil
}

// CalSegIndex satisfies mcaddr.SegIndexLookup.
func (r *Registry) CalSegIndex(name mcid.Identifier) (uint16, bool) {
	return r.CalSegs.CalSegIndex(name)
}

var _ mcaddr.SegIndexLookup = (*Registry)(nil)

// WriteJSON serializes the registry to a pretty-printed JSON file.
func (r *Registry) WriteJSON(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal json: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadJSON replaces the registry's contents with what's stored at path.
func (r *Registry) LoadJSON(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read json: %w", err)
	}
	var loaded Registry
	if err := json.Unmarshal(b, &loaded); err != nil {
		return fmt.Errorf("registry: unmarshal json: %w", err)
	}
	*r = loaded
	return nil
}
