package codec

import (
	"bytes"
	"fmt"
)

// Registry is a static discriminator to layout table.
type Registry struct {
	byDisc map[Discriminator]*Layout
	byName map[string]*Layout
}

// NewRegistry builds a registry from layouts. It panics on duplicate discriminators.
func NewRegistry(layouts ...*Layout) *Registry {
	r := &Registry{
		byDisc: make(map[Discriminator]*Layout, len(layouts)),
		byName: make(map[string]*Layout, len(layouts)),
	}
	for _, l := range layouts {
		if prev, ok := r.byDisc[l.Discriminator]; ok {
			panic(fmt.Sprintf("codec: discriminator %s shared by %s and %s", l.Discriminator, prev.Name, l.Name))
		}
		r.byDisc[l.Discriminator] = l
		r.byName[l.Name] = l
	}
	return r
}

var defaultRegistry = NewRegistry(Layouts()...)

// DefaultRegistry returns the registry of the bonding-curve program.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup returns the layout registered for d.
func (r *Registry) Lookup(d Discriminator) (*Layout, bool) {
	l, ok := r.byDisc[d]
	return l, ok
}

// Layout returns the layout registered under name.
func (r *Registry) Layout(name string) (*Layout, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// Identify returns the layout of an instruction payload without decoding its arguments.
func (r *Registry) Identify(data []byte) (*Layout, error) {
	d, ok := PeekDiscriminator(data)
	if !ok {
		return nil, shortPayload(data, 0)
	}
	l, ok := r.byDisc[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, d)
	}
	return l, nil
}

// NameAccounts maps the leading positional accounts to the names of layout.
func (r *Registry) NameAccounts(l *Layout, accounts []string) (map[string]string, error) {
	if len(accounts) < len(l.Accounts) {
		return nil, &DecodeError{
			Layout:        l.Name,
			Discriminator: l.Discriminator,
			Field:         "accounts",
			Offset:        DiscriminatorSize,
			Err:           fmt.Errorf("%w: want %d, got %d", ErrMissingAccounts, len(l.Accounts), len(accounts)),
		}
	}
	named := make(map[string]string, len(l.Accounts))
	for i, name := range l.Accounts {
		named[name] = accounts[i]
	}
	return named, nil
}

// DecodeInstruction decodes an instruction payload and names its accounts.
func (r *Registry) DecodeInstruction(data []byte, accounts []string) (*Instruction, error) {
	l, err := r.Identify(data)
	if err != nil {
		return nil, err
	}
	if l.Kind != KindInstruction {
		return nil, fmt.Errorf("%w: %s is an event layout", ErrUnrecognized, l.Name)
	}

	named, err := r.NameAccounts(l, accounts)
	if err != nil {
		return nil, err
	}

	rd := newReader(l, data[DiscriminatorSize:], DiscriminatorSize)
	args := l.decode(rd)
	if rd.err != nil {
		return nil, rd.err
	}

	return &Instruction{
		Name:          l.Name,
		Discriminator: l.Discriminator,
		Accounts:      named,
		Args:          args,
	}, nil
}

// DecodeEvent decodes an event payload. A leading EventInstructionTag is stripped.
func (r *Registry) DecodeEvent(data []byte) (*Event, error) {
	base := 0
	if len(data) >= 2*DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], EventInstructionTag[:]) {
		base = DiscriminatorSize
	}

	d, ok := PeekDiscriminator(data[base:])
	if !ok {
		return nil, shortPayload(data[base:], base)
	}
	l, ok := r.byDisc[d]
	if !ok || l.Kind != KindEvent {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, d)
	}

	start := base + DiscriminatorSize
	rd := newReader(l, data[start:], start)
	ev := l.decode(rd)
	if rd.err != nil {
		return nil, rd.err
	}

	return &Event{
		Name:          l.Name,
		Discriminator: l.Discriminator,
		Data:          ev,
	}, nil
}

// IsEventPayload reports whether data carries the self-CPI event tag.
func IsEventPayload(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], EventInstructionTag[:])
}

// EncodeInstruction encodes args with the discriminator of the named instruction.
func (r *Registry) EncodeInstruction(name string, args interface{}) ([]byte, error) {
	l, ok := r.byName[name]
	if !ok || l.Kind != KindInstruction {
		return nil, fmt.Errorf("%w: instruction %q", ErrUnrecognized, name)
	}
	w := newWriter(l.Discriminator)
	if err := l.encode(w, args); err != nil {
		return nil, err
	}
	return w.bytes()
}

// EncodeEvent encodes an event, optionally prefixed with EventInstructionTag.
func (r *Registry) EncodeEvent(name string, ev interface{}, tagged bool) ([]byte, error) {
	l, ok := r.byName[name]
	if !ok || l.Kind != KindEvent {
		return nil, fmt.Errorf("%w: event %q", ErrUnrecognized, name)
	}
	var w *writer
	if tagged {
		w = newWriter(EventInstructionTag, l.Discriminator)
	} else {
		w = newWriter(l.Discriminator)
	}
	if err := l.encode(w, ev); err != nil {
		return nil, err
	}
	return w.bytes()
}
