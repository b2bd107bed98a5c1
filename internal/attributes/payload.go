package attributes

// Option is one (attribute name, option value) contribution.
type Option struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// Payload is an ordered mapping of attribute name to a deduplicated option
// list. Names and options keep the order in which they were first added.
type Payload struct {
	names   []string
	options map[string][]string
	seen    map[Option]struct{}
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{
		options: make(map[string][]string),
		seen:    make(map[Option]struct{}),
	}
}

// Add appends option to the named attribute unless it is already present.
// Empty names or options are ignored. It reports whether the payload changed.
func (p *Payload) Add(name, option string) bool {
	if name == "" || option == "" {
		return false
	}
	key := Option{Name: name, Option: option}
	if _, ok := p.seen[key]; ok {
		return false
	}
	if _, ok := p.options[name]; !ok {
		p.names = append(p.names, name)
	}
	p.seen[key] = struct{}{}
	p.options[name] = append(p.options[name], option)
	return true
}

// Merge adds every option of a list-normalized attribute map. Names are
// visited in the supplied order so callers control determinism.
func (p *Payload) Merge(order []string, values map[string][]string) {
	for _, name := range order {
		for _, option := range values[name] {
			p.Add(name, option)
		}
	}
}

// Names returns attribute names in insertion order.
func (p *Payload) Names() []string {
	return append([]string(nil), p.names...)
}

// Options returns the options recorded for name.
func (p *Payload) Options(name string) []string {
	return append([]string(nil), p.options[name]...)
}

// Len reports the number of attributes.
func (p *Payload) Len() int {
	return len(p.names)
}

// Map returns a copy of the payload as a plain map.
func (p *Payload) Map() map[string][]string {
	out := make(map[string][]string, len(p.names))
	for _, name := range p.names {
		out[name] = p.Options(name)
	}
	return out
}
