package constraint

import (
	"strings"

	"github.com/matzehuels/celldl/pkg/units"
)

// Segment is one leg of a routed line. The leg leaves the previous point on
// bearing Angle (degrees, 0 is +x, 90 is up) and stops where it reaches the
// Until coordinate of the target: the centroid of Refs shifted by From.
// Offset, when set, moves the computed end point.
type Segment struct {
	Angle  float64
	Until  units.Axis
	From   *units.Pair
	Refs   []string
	Offset *units.Pair
}

// ParseRoute parses a routed-line expression:
//
//	segment {"," segment}
//	segment = angle ("until-x"|"until-y") ["(" dx "," dy ")" "from"] "#id"+
//	          ["offset" "(" dx "," dy ")"]
//
// An empty expression yields no segments.
func ParseRoute(text string) ([]Segment, error) {
	s, err := newStream(text)
	if err != nil {
		return nil, err
	}
	if s.peek().Kind == TokenEOF {
		return nil, nil
	}

	var segments []Segment
	for {
		seg, err := parseSegment(s)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)

		t := s.next()
		if t.Kind == TokenEOF {
			return segments, nil
		}
		if t.Kind != TokenComma {
			return nil, s.unexpected(t, "',' or end of line")
		}
	}
}

func parseSegment(s *stream) (Segment, error) {
	var seg Segment

	t := s.next()
	switch {
	case t.Kind == TokenNumber:
	case t.Kind == TokenDimension && t.Unit == "deg":
	default:
		return seg, s.unexpected(t, "angle")
	}
	seg.Angle = t.Value

	t = s.next()
	if t.Kind != TokenIdent {
		return seg, s.unexpected(t, "'until-x' or 'until-y'")
	}
	switch strings.ToLower(t.Text) {
	case "until-x":
		seg.Until = units.X
	case "until-y":
		seg.Until = units.Y
	default:
		return seg, s.unexpected(t, "'until-x' or 'until-y'")
	}

	if s.peek().Kind == TokenLParen {
		from, err := parsePair(s)
		if err != nil {
			return seg, err
		}
		t := s.next()
		if t.Kind != TokenIdent || strings.ToLower(t.Text) != "from" {
			return seg, s.unexpected(t, "'from'")
		}
		seg.From = &from
	}

	for s.peek().Kind == TokenHash {
		seg.Refs = append(seg.Refs, s.next().Text[1:])
	}
	if len(seg.Refs) == 0 {
		return seg, s.errorf("expected #id after %q, got %s", t.Text, s.peek())
	}

	if t := s.peek(); t.Kind == TokenIdent && strings.ToLower(t.Text) == "offset" {
		s.next()
		if s.peek().Kind != TokenLParen {
			return seg, s.unexpected(s.peek(), "'('")
		}
		off, err := parsePair(s)
		if err != nil {
			return seg, err
		}
		seg.Offset = &off
	}
	return seg, nil
}
