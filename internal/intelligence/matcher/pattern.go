package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/FloraTraits/pkg/errors"
)

// unbounded marks an element with no repetition cap.
const unbounded = -1

type element struct {
	word string
	pred *Pred
	min  int
	max  int
}

var braceOp = regexp.MustCompile(`^(.+)\{(\d+)(?:,(\d*))?\}$`)

// compilePattern turns "missing? 99-99+ count_suffix+" into elements. A
// word is looked up whole first, so decoder keys may themselves end in an
// operator character.
func compilePattern(pattern string, dec Decoder) ([]element, error) {
	words := strings.Fields(pattern)
	if len(words) == 0 {
		return nil, errors.New(errors.ErrCodePipelineBadPattern, "empty pattern")
	}

	elems := make([]element, 0, len(words))
	for _, w := range words {
		el, err := compileWord(w, dec)
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
	}
	return elems, nil
}

func compileWord(w string, dec Decoder) (element, error) {
	if p, ok := lookup(dec, w); ok {
		return withOp(w, p, p.Op)
	}

	if m := braceOp.FindStringSubmatch(w); m != nil {
		p, ok := lookup(dec, m[1])
		if !ok {
			return element{}, errors.Newf(errors.ErrCodePipelineBadDecoder, "unknown decoder key %q", m[1])
		}
		lo, _ := strconv.Atoi(m[2])
		hi := lo
		switch {
		case strings.Contains(w, ",") && m[3] == "":
			hi = unbounded
		case m[3] != "":
			hi, _ = strconv.Atoi(m[3])
		}
		if hi != unbounded && hi < lo {
			return element{}, errors.Newf(errors.ErrCodePipelineBadPattern, "bad repeat range in %q", w)
		}
		return element{word: m[1], pred: p, min: lo, max: hi}, nil
	}

	last := w[len(w)-1:]
	if len(w) > 1 && strings.Contains("?*+", last) {
		key := w[:len(w)-1]
		p, ok := lookup(dec, key)
		if !ok {
			return element{}, errors.Newf(errors.ErrCodePipelineBadDecoder, "unknown decoder key %q", key)
		}
		return withOp(key, p, last)
	}

	return element{}, errors.Newf(errors.ErrCodePipelineBadDecoder, "unknown decoder key %q", w)
}

func withOp(word string, p *Pred, op string) (element, error) {
	el := element{word: word, pred: p}
	switch op {
	case "":
		el.min, el.max = 1, 1
	case "?":
		el.min, el.max = 0, 1
	case "*":
		el.min, el.max = 0, unbounded
	case "+":
		el.min, el.max = 1, unbounded
	default:
		return element{}, errors.Newf(errors.ErrCodePipelineBadPattern, "bad operator %q on %q", op, word)
	}
	return el, nil
}

var (
	defaultOpen  = &Pred{Text: Open}
	defaultClose = &Pred{Text: Close}
)

func lookup(dec Decoder, key string) (*Pred, bool) {
	if p, ok := dec[key]; ok {
		return p, true
	}
	switch key {
	case "(":
		return defaultOpen, true
	case ")":
		return defaultClose, true
	}
	return nil, false
}
