package constraint

import (
	"strings"

	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/units"
)

// Direction is the relation keyword of a position clause.
type Direction int

const (
	Left Direction = iota
	Right
	Above
	Below
	Centre
)

var directionNames = map[string]Direction{
	"left":   Left,
	"right":  Right,
	"above":  Above,
	"below":  Below,
	"centre": Centre,
	"center": Centre,
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Above:
		return "above"
	case Below:
		return "below"
	default:
		return "centre"
	}
}

// Axis returns the axis along which d offsets. Centre has no axis and
// reports false.
func (d Direction) Axis() (units.Axis, bool) {
	switch d {
	case Left, Right:
		return units.X, true
	case Above, Below:
		return units.Y, true
	default:
		return 0, false
	}
}

// Sign is -1 for left and above, +1 for right and below, 0 for centre.
func (d Direction) Sign() float64 {
	switch d {
	case Left, Above:
		return -1
	case Right, Below:
		return 1
	default:
		return 0
	}
}

// Side is a compartment boundary.
type Side int

const (
	Top Side = iota
	Bottom
	LeftSide
	RightSide
)

var sideNames = map[string]Side{
	"top":    Top,
	"bottom": Bottom,
	"left":   LeftSide,
	"right":  RightSide,
}

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case LeftSide:
		return "left"
	default:
		return "right"
	}
}

// Tangent is the axis running along the boundary.
func (s Side) Tangent() units.Axis {
	if s == Top || s == Bottom {
		return units.X
	}
	return units.Y
}

// Normal is the axis perpendicular to the boundary.
func (s Side) Normal() units.Axis { return s.Tangent().Other() }

// Far reports whether the boundary is the bottom or right one, i.e. sits at
// 100% of the container on its normal axis.
func (s Side) Far() bool { return s == Bottom || s == RightSide }

// Outward is the direction pointing out of the compartment through s.
func (s Side) Outward() Direction {
	switch s {
	case Top:
		return Above
	case Bottom:
		return Below
	case LeftSide:
		return Left
	default:
		return Right
	}
}

// Clause is one relational constraint of a position: an optional offset,
// a direction and zero or more referenced element ids (without '#').
type Clause struct {
	Offset    *units.Length
	Direction Direction
	Refs      []string
}

// Axis is the coordinate the clause fixes. A clause without an offset in a
// two-clause position aligns with its references on the other axis.
func (c Clause) Axis(clauses int) units.Axis {
	a, _ := c.Direction.Axis()
	if c.Offset == nil && clauses > 1 {
		return a.Other()
	}
	return a
}

// Position is a parsed `pos` value: literal coordinates or 1-2 clauses.
type Position struct {
	Coords  *units.Pair
	Clauses []Clause
}

// IsLiteral reports whether p is a literal coordinate pair.
func (p Position) IsLiteral() bool { return p.Coords != nil }

// Boundary is a parsed transporter `pos` value.
type Boundary struct {
	Side   Side
	Offset *units.Length
	Refs   []string
}

// ParsePosition parses the position grammar:
//
//	"(" length "," length ")"
//	length "," length
//	clause [";" clause]
//	clause = [length] ("left"|"right"|"above"|"below"|"centre") {"#id"}
func ParsePosition(text string) (Position, error) {
	s, err := newStream(text)
	if err != nil {
		return Position{}, err
	}

	if s.peek().Kind == TokenEOF {
		return Position{}, s.errorf("empty position")
	}

	if s.peek().Kind == TokenLParen || (s.peek().IsNumeric() && s.tokens[s.pos+1].Kind == TokenComma) {
		pair, err := parsePair(s)
		if err != nil {
			return Position{}, err
		}
		if t := s.next(); t.Kind != TokenEOF {
			return Position{}, s.unexpected(t, "end of position")
		}
		return Position{Coords: &pair}, nil
	}

	var clauses []Clause
	for {
		c, err := parseClause(s)
		if err != nil {
			return Position{}, err
		}
		clauses = append(clauses, c)
		t := s.next()
		if t.Kind == TokenEOF {
			break
		}
		if t.Kind != TokenSemicolon {
			return Position{}, s.unexpected(t, "';' or end of position")
		}
	}

	if err := checkClauses(text, clauses); err != nil {
		return Position{}, err
	}
	return Position{Clauses: clauses}, nil
}

func parseClause(s *stream) (Clause, error) {
	var offset *units.Length
	var offsetTok Token
	if s.peek().IsNumeric() {
		offsetTok = s.next()
	}

	t := s.next()
	if t.Kind != TokenIdent {
		return Clause{}, s.unexpected(t, "direction")
	}
	dir, ok := directionNames[strings.ToLower(t.Text)]
	if !ok {
		return Clause{}, s.errorf("unknown direction %q", t.Text)
	}

	if offsetTok.Kind != TokenEOF {
		axis, ok := dir.Axis()
		if !ok {
			return Clause{}, s.errorf("%q cannot take an offset", t.Text)
		}
		l, err := lengthOf(s, offsetTok, axis)
		if err != nil {
			return Clause{}, err
		}
		offset = &l
	}

	refs, err := parseRefs(s, t.Text)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Offset: offset, Direction: dir, Refs: refs}, nil
}

// parseRefs reads "#id" tokens up to a clause separator or the end.
func parseRefs(s *stream, after string) ([]string, error) {
	var refs []string
	for {
		t := s.peek()
		switch t.Kind {
		case TokenHash:
			s.next()
			refs = append(refs, t.Text[1:])
		case TokenSemicolon, TokenEOF:
			return refs, nil
		default:
			return nil, s.errorf("expected #id after %q, got %s", after, t)
		}
	}
}

func checkClauses(text string, clauses []Clause) error {
	if len(clauses) > 2 {
		return errors.New(errors.ErrCodeStructure, "at most two clauses allowed, got %d", len(clauses)).WithText(text)
	}
	used := map[units.Axis]bool{}
	for _, c := range clauses {
		if c.Direction == Centre {
			if len(clauses) > 1 {
				return syntaxError(text, "'centre' cannot be combined with another clause")
			}
			continue
		}
		axis := c.Axis(len(clauses))
		if used[axis] {
			return syntaxError(text, "multiple %s constraints", axis)
		}
		used[axis] = true
	}
	return nil
}

// ParseBoundary parses a transporter position:
//
//	("top"|"bottom"|"left"|"right") [length] {"#id"}
//
// A percentage offset runs along the boundary.
func ParseBoundary(text string) (Boundary, error) {
	s, err := newStream(text)
	if err != nil {
		return Boundary{}, err
	}

	t := s.next()
	if t.Kind != TokenIdent {
		return Boundary{}, s.unexpected(t, "compartment boundary")
	}
	side, ok := sideNames[strings.ToLower(t.Text)]
	if !ok {
		return Boundary{}, s.errorf("invalid compartment boundary %q", t.Text)
	}

	b := Boundary{Side: side}
	if s.peek().IsNumeric() {
		l, err := lengthOf(s, s.next(), side.Tangent())
		if err != nil {
			return Boundary{}, err
		}
		b.Offset = &l
	}

	for s.peek().Kind == TokenHash {
		b.Refs = append(b.Refs, s.next().Text[1:])
	}
	if t := s.next(); t.Kind != TokenEOF {
		return Boundary{}, s.unexpected(t, "#id or end of position")
	}
	return b, nil
}

// ParseSize parses a width and height pair, with or without parentheses.
func ParseSize(text string) (units.Pair, error) {
	s, err := newStream(text)
	if err != nil {
		return units.Pair{}, err
	}
	pair, err := parsePair(s)
	if err != nil {
		return units.Pair{}, err
	}
	if t := s.next(); t.Kind != TokenEOF {
		return units.Pair{}, s.unexpected(t, "end of size")
	}
	return pair, nil
}

// ParseLength parses a single length whose bare percentages refer to axis.
func ParseLength(text string, axis units.Axis) (units.Length, error) {
	s, err := newStream(text)
	if err != nil {
		return units.Length{}, err
	}
	t := s.next()
	if !t.IsNumeric() {
		return units.Length{}, s.unexpected(t, "length")
	}
	l, err := lengthOf(s, t, axis)
	if err != nil {
		return units.Length{}, err
	}
	if t := s.next(); t.Kind != TokenEOF {
		return units.Length{}, s.unexpected(t, "end of length")
	}
	return l, nil
}

// parsePair reads `"(" length "," length ")"` or `length "," length`.
func parsePair(s *stream) (units.Pair, error) {
	paren := s.accept(TokenLParen)

	var pair units.Pair
	for i, axis := range []units.Axis{units.X, units.Y} {
		if i == 1 {
			if _, err := s.expect(TokenComma); err != nil {
				return pair, err
			}
		}
		t := s.next()
		if !t.IsNumeric() {
			return pair, s.unexpected(t, "length")
		}
		l, err := lengthOf(s, t, axis)
		if err != nil {
			return pair, err
		}
		pair[i] = l
	}

	if paren {
		if _, err := s.expect(TokenRParen); err != nil {
			return pair, err
		}
	}
	return pair, nil
}

// lengthOf converts a numeric token; bare percentages refer to axis.
func lengthOf(s *stream, t Token, axis units.Axis) (units.Length, error) {
	switch t.Kind {
	case TokenNumber:
		return units.Px(t.Value), nil
	case TokenPercentage:
		switch t.Unit {
		case "":
			return units.Percent(t.Value, axis), nil
		case "x":
			return units.Length{Value: t.Value, Unit: units.LocalX}, nil
		case "y":
			return units.Length{Value: t.Value, Unit: units.LocalY}, nil
		}
		return units.Length{}, s.errorf("percentage modifier must be 'x' or 'y', got %q", t.Text)
	case TokenDimension:
		switch t.Unit {
		case "px":
			return units.Px(t.Value), nil
		case "vw":
			return units.Length{Value: t.Value, Unit: units.GlobalX}, nil
		case "vh":
			return units.Length{Value: t.Value, Unit: units.GlobalY}, nil
		}
		return units.Length{}, s.errorf("unknown unit in %q", t.Text)
	}
	return units.Length{}, s.unexpected(t, "length")
}
