package ccond

import (
	"crypto/rand"
	"io"

	"xdao.co/ccond/compliance"
)

// Options controls parsing strictness and the types a Codec accepts.
//
// Default behavior is Permissive with DefaultRegistry when Options{} is used.
type Options struct {
	Mode compliance.ComplianceMode

	// Registry restricts the accepted condition types. Nil means DefaultRegistry.
	Registry *Registry

	// Rand is the randomness source for RSA-PSS salts. Nil means crypto/rand.
	Rand io.Reader
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = DefaultRegistry
	}
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	// compliance.Permissive is the zero value.
	return o
}

// maxNestingDepth bounds recursion through prefix and threshold children
// while decoding untrusted input.
const maxNestingDepth = 64

type decoder struct {
	reg   *Registry
	mode  compliance.ComplianceMode
	depth int
}

func newDecoder(o Options) *decoder {
	o = o.withDefaults()
	return &decoder{reg: o.Registry, mode: o.Mode}
}

func (d *decoder) strict() bool { return d.mode == compliance.Strict }

func (d *decoder) enter() error {
	d.depth++
	if d.depth > maxNestingDepth {
		return newError(KindParse, "CC-DEC-001", "fulfillment nesting too deep")
	}
	return nil
}

func (d *decoder) leave() { d.depth-- }
