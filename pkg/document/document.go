// Package document reads CellDL XML documents into diagrams.
//
// A document has a single <cell-diagram> root in the CellDL namespace. Its
// <diagram> child holds the physical layout (compartments, quantities and
// transporters, nested as in the drawing) and its <bond-graph> child holds
// the potentials and flows, with each flow listing its fluxes:
//
//	<cell-diagram xmlns="http://www.cellml.org/celldl/1.0#" width="800" height="500">
//	  <diagram>
//	    <compartment id="cell" pos="(100, 100)" size="50%, 60%">
//	      <quantity id="q_Na" pos="30%, 50%"/>
//	      <transporter id="NaK" pos="right 40%"/>
//	    </compartment>
//	    <quantity id="q_Na_o" pos="(600, 250)"/>
//	  </diagram>
//	  <bond-graph>
//	    <potential id="u_Na" quantity="q_Na"/>
//	    <potential id="u_Na_o" quantity="q_Na_o"/>
//	    <flow id="v_Na" transporter="NaK">
//	      <flux from="u_Na" to="u_Na_o" count="3"/>
//	    </flow>
//	  </bond-graph>
//	</cell-diagram>
//
// The geometric attributes pos, size, line-start and line-end may also be
// given as declarations of an inline style attribute. Declaring one twice
// is a structural error. Other style declarations are kept on the element.
// <style> sheets are skipped.
package document

import (
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/errors"
)

// Namespace is the CellDL XML namespace.
const Namespace = "http://www.cellml.org/celldl/1.0#"

const (
	// DefaultWidth is the diagram width used when the document gives none.
	DefaultWidth = 1000.0

	// DefaultHeight is the diagram height used when the document gives none.
	DefaultHeight = 600.0
)

// Options configures reading.
type Options struct {
	// Width and Height are the diagram size when the document's root does
	// not set one. Zero means the package default.
	Width  float64
	Height float64
}

// geometric are the attributes that may also appear as style declarations.
var geometric = []string{"pos", "size", "line-start", "line-end"}

// ReadFile reads and parses the CellDL document at path.
func ReadFile(path string, opts Options) (*diagram.Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return Parse(data, opts)
}

// Read parses a CellDL document from r.
func Read(r io.Reader, opts Options) (*diagram.Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read document")
	}
	return Parse(data, opts)
}

// Parse parses a CellDL document and builds its diagram.
func Parse(data []byte, opts Options) (*diagram.Diagram, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSyntax, err, "malformed XML")
	}
	root := doc.Root()
	if root == nil || !isCellDL(root, "cell-diagram") {
		return nil, errors.New(errors.ErrCodeStructure, "root element is not <cell-diagram>")
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	var err error
	if width, err = dimension(root, "width", width); err != nil {
		return nil, err
	}
	if height, err = dimension(root, "height", height); err != nil {
		return nil, err
	}

	var diagramEl, bondGraphEl *etree.Element
	for _, child := range root.ChildElements() {
		switch {
		case isCellDL(child, "diagram"):
			if diagramEl != nil {
				return nil, errors.New(errors.ErrCodeStructure, "only one <diagram> is allowed")
			}
			diagramEl = child
		case isCellDL(child, "bond-graph"):
			if bondGraphEl != nil {
				return nil, errors.New(errors.ErrCodeStructure, "only one <bond-graph> is allowed")
			}
			bondGraphEl = child
		case isCellDL(child, "style"):
		default:
			return nil, unexpected(child, root)
		}
	}

	p := &parser{b: diagram.NewBuilder(width, height)}
	if diagramEl != nil {
		if err := p.container(diagramEl, diagram.Root); err != nil {
			return nil, err
		}
	}
	if bondGraphEl != nil {
		if err := p.bondGraph(bondGraphEl); err != nil {
			return nil, err
		}
	}
	return p.b.Build()
}

type parser struct {
	b *diagram.Builder
}

func (p *parser) container(el *etree.Element, parent diagram.Handle) error {
	for _, child := range el.ChildElements() {
		var kind diagram.Kind
		switch {
		case isCellDL(child, "compartment"):
			kind = diagram.KindCompartment
		case isCellDL(child, "quantity"):
			kind = diagram.KindQuantity
		case isCellDL(child, "transporter"):
			kind = diagram.KindTransporter
		default:
			return unexpected(child, el)
		}

		spec, err := specOf(child, kind)
		if err != nil {
			return err
		}
		spec.Container = parent
		h, err := p.b.Add(spec)
		if err != nil {
			return err
		}
		if kind == diagram.KindCompartment {
			if err := p.container(child, h); err != nil {
				return err
			}
		} else if len(child.ChildElements()) > 0 {
			return unexpected(child.ChildElements()[0], child)
		}
	}
	return nil
}

func (p *parser) bondGraph(el *etree.Element) error {
	for _, child := range el.ChildElements() {
		switch {
		case isCellDL(child, "potential"):
			spec, err := specOf(child, diagram.KindPotential)
			if err != nil {
				return err
			}
			spec.Quantity = child.SelectAttrValue("quantity", "")
			if _, err := p.b.Add(spec); err != nil {
				return err
			}
		case isCellDL(child, "flow"):
			if err := p.flow(child); err != nil {
				return err
			}
		default:
			return unexpected(child, el)
		}
	}
	return nil
}

func (p *parser) flow(el *etree.Element) error {
	spec, err := specOf(el, diagram.KindFlow)
	if err != nil {
		return err
	}
	spec.Transporter = el.SelectAttrValue("transporter", "")
	flow, err := p.b.Add(spec)
	if err != nil {
		return err
	}

	for _, child := range el.ChildElements() {
		if !isCellDL(child, "flux") {
			return unexpected(child, el)
		}
		spec, err := specOf(child, diagram.KindFlux)
		if err != nil {
			return err
		}
		spec.Flow = flow
		spec.From = child.SelectAttrValue("from", "")
		spec.To = strings.FieldsFunc(child.SelectAttrValue("to", ""), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if spec.From == "" || len(spec.To) == 0 {
			return errors.New(errors.ErrCodeStructure, "flux requires 'from' and 'to' potentials").
				WithElement(spec.ID)
		}
		if text := child.SelectAttrValue("count", ""); text != "" {
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || n < 1 {
				return errors.New(errors.ErrCodeSyntax, "count must be a positive integer").
					WithElement(spec.ID).WithText(text)
			}
			spec.Count = n
		}
		if _, err := p.b.Add(spec); err != nil {
			return err
		}
	}
	return nil
}

// specOf reads the attributes common to every element.
func specOf(el *etree.Element, kind diagram.Kind) (diagram.Spec, error) {
	spec := diagram.Spec{
		Kind:  kind,
		ID:    el.SelectAttrValue("id", ""),
		Label: el.SelectAttrValue("label", ""),
	}

	style, err := ParseStyle(el.SelectAttrValue("style", ""))
	if err != nil {
		return spec, errors.Annotate(err, spec.ID, el.SelectAttrValue("style", ""))
	}

	values := make(map[string]string, len(geometric))
	for _, name := range geometric {
		attr := el.SelectAttr(name)
		decl, declared := style[name]
		switch {
		case attr != nil && declared:
			return spec, errors.New(errors.ErrCodeStructure, "%s is declared both as attribute and in style", name).
				WithElement(spec.ID)
		case attr != nil:
			values[name] = attr.Value
		case declared:
			values[name] = decl
		}
		delete(style, name)
	}
	spec.Pos = values["pos"]
	spec.Size = values["size"]
	spec.LineStart = values["line-start"]
	spec.LineEnd = values["line-end"]

	if class := el.SelectAttrValue("class", ""); class != "" {
		style["class"] = class
	}
	if len(style) > 0 {
		spec.Style = style
	}
	return spec, nil
}

// declaration matches a segment that starts a style declaration: a
// property name, a colon and the rest of the segment untouched.
var declaration = regexp.MustCompile(`(?s)^\s*([A-Za-z][A-Za-z0-9_-]*)\s*:(.*)$`)

// ParseStyle parses an inline style attribute into its declarations.
// Declarations are separated by ';'. A segment that does not start with a
// property name and ':' continues the previous declaration, so two-clause
// positions survive intact, even when an id contains ':':
//
//	pos: 20 above #a; above #ns:b; fill: red
func ParseStyle(text string) (map[string]string, error) {
	style := make(map[string]string)
	last := ""
	for _, part := range strings.Split(text, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m := declaration.FindStringSubmatch(part)
		if m == nil {
			if last == "" {
				return nil, errors.New(errors.ErrCodeSyntax, "expected 'name: value' declaration").WithText(text)
			}
			style[last] += ";" + part
			continue
		}
		name := strings.ToLower(m[1])
		if _, dup := style[name]; dup {
			return nil, errors.New(errors.ErrCodeStructure, "%s is declared twice", name).WithText(text)
		}
		style[name] = m[2]
		last = name
	}
	for name, value := range style {
		style[name] = strings.TrimSpace(value)
	}
	return style, nil
}

func isCellDL(el *etree.Element, tag string) bool {
	if el.Tag != tag {
		return false
	}
	ns := el.NamespaceURI()
	return ns == Namespace || ns == ""
}

func unexpected(el, parent *etree.Element) error {
	return errors.New(errors.ErrCodeStructure, "unexpected <%s> in <%s>", el.Tag, parent.Tag).
		WithElement(el.SelectAttrValue("id", ""))
}

func dimension(el *etree.Element, name string, dflt float64) (float64, error) {
	text := strings.TrimSpace(el.SelectAttrValue(name, ""))
	if text == "" {
		return dflt, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(text, "px"), 64)
	if err != nil || v <= 0 {
		return 0, errors.New(errors.ErrCodeSyntax, "%s must be a positive number of pixels", name).WithText(text)
	}
	return v, nil
}
