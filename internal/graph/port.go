package graph

import "fmt"

const (
	// BlockSize is the number of samples every node processes per chunk.
	BlockSize = 256
	// Registers is the number of audio and of control registers in a StackData.
	Registers = 256
	// MaxPorts bounds a Ports collection.
	MaxPorts = 32
)

// StackData is the register file shared by every node of one Stack. Registers
// are untyped: reading an audio register as control or the other way around is
// a wiring mistake and is not detected.
type StackData struct {
	Audio   [Registers][BlockSize]float32
	Control [Registers]float32
}

// Reset zeroes every register.
func (d *StackData) Reset() {
	*d = StackData{}
}

// PortKind selects whether a port carries a block of samples or one scalar.
type PortKind uint8

const (
	AudioRate PortKind = iota
	ControlRate
)

func (k PortKind) String() string {
	switch k {
	case AudioRate:
		return "audio"
	case ControlRate:
		return "control"
	default:
		return fmt.Sprintf("PortKind(%d)", uint8(k))
	}
}

// Port is a typed signal slot of a node. An unbound port holds a node-local
// value; a bound port is refreshed from register Register() before the node
// runs and committed back after it ran.
type Port struct {
	Name    string
	Kind    PortKind
	index   uint8
	bound   bool
	audio   [BlockSize]float32
	control float32
}

func AudioPort(name string) Port {
	return Port{Name: name, Kind: AudioRate}
}

func ControlPort(name string, value float32) Port {
	return Port{Name: name, Kind: ControlRate, control: value}
}

func NewPort(name string, kind PortKind) Port {
	return Port{Name: name, Kind: kind}
}

// Bind attaches the port to register k of its kind's bank.
func (p *Port) Bind(k uint8) *Port {
	p.index = k
	p.bound = true
	return p
}

func (p *Port) Unbind() *Port {
	p.bound = false
	p.index = 0
	return p
}

// Register reports the bound register, if any.
func (p *Port) Register() (uint8, bool) {
	return p.index, p.bound
}

// SetKind switches the port between audio and control rate. The local value
// is kept for control ports and zeroed for audio ports.
func (p *Port) SetKind(kind PortKind) *Port {
	if p.Kind != kind {
		p.Kind = kind
		p.audio = [BlockSize]float32{}
	}
	return p
}

// SetConstant stores v as the port's local value: the scalar for a control
// port, every sample for an audio port.
func (p *Port) SetConstant(v float32) *Port {
	if p.Kind == ControlRate {
		p.control = v
		return p
	}
	for i := range p.audio {
		p.audio[i] = v
	}
	return p
}

// At returns sample i of an audio port, or the scalar of a control port.
func (p *Port) At(i int) float32 {
	if p.Kind == ControlRate {
		return p.control
	}
	return p.audio[i]
}

// Set stores v at sample i of an audio port, or as the scalar of a control port.
func (p *Port) Set(i int, v float32) {
	if p.Kind == ControlRate {
		p.control = v
		return
	}
	p.audio[i] = v
}

// Read copies the bound register into the port. Unbound ports are left alone.
func (p *Port) Read(data *StackData) {
	if !p.bound {
		return
	}
	if p.Kind == ControlRate {
		p.control = data.Control[p.index]
		return
	}
	p.audio = data.Audio[p.index]
}

// Write commits the port into its bound register. Unbound ports are left alone.
func (p *Port) Write(data *StackData) {
	if !p.bound {
		return
	}
	if p.Kind == ControlRate {
		data.Control[p.index] = p.control
		return
	}
	data.Audio[p.index] = p.audio
}

func (p *Port) String() string {
	if p.bound {
		return fmt.Sprintf("%s(%s@%d)", p.Name, p.Kind, p.index)
	}
	return fmt.Sprintf("%s(%s)", p.Name, p.Kind)
}

// Ports is a bounded, ordered list of references to node ports.
type Ports struct {
	ports [MaxPorts]*Port
	n     int
}

func (ps *Ports) add(p *Port) {
	if ps.n == MaxPorts {
		panic("graph: too many ports")
	}
	ps.ports[ps.n] = p
	ps.n++
}

func (ps *Ports) Len() int { return ps.n }

// At returns the i-th port.
func (ps *Ports) At(i int) *Port {
	if i < 0 || i >= ps.n {
		panic(fmt.Sprintf("graph: port index %d out of range [0,%d)", i, ps.n))
	}
	return ps.ports[i]
}

// Lookup finds a port by name.
func (ps *Ports) Lookup(name string) (*Port, bool) {
	for _, p := range ps.ports[:ps.n] {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ByName finds a port by name and panics when there is none; asking for a
// port a node does not have is a programming error.
func (ps *Ports) ByName(name string) *Port {
	p, ok := ps.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("graph: no port named %q", name))
	}
	return p
}

// Names lists the port names in order.
func (ps *Ports) Names() []string {
	names := make([]string, ps.n)
	for i, p := range ps.ports[:ps.n] {
		names[i] = p.Name
	}
	return names
}
