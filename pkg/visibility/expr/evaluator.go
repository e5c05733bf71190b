package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Evaluator compiles visibleWhen rules such as
//
//	accountType == "business"
//	newsletter && frequency != "never"
//	age >= 18 || !(country == "US")
//
// Identifiers read form values by field id, with dot-path traversal into
// nested maps. Rules are parsed once; evaluation never fails, so type
// mismatches compare as unequal.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]node
}

var _ visibility.Compiler = (*Evaluator)(nil)

// New returns an Evaluator with an empty compile cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]node)}
}

// Compile parses rule. A blank rule yields visibility.Always.
func (e *Evaluator) Compile(rule string) (model.VisibilityCondition, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return visibility.Always, nil
	}
	root, err := e.parse(trimmed)
	if err != nil {
		return nil, err
	}
	return func(values map[string]any) bool {
		return root.eval(values)
	}, nil
}

// Eval compiles and evaluates rule in one step.
func (e *Evaluator) Eval(rule string, values map[string]any) (bool, error) {
	cond, err := e.Compile(rule)
	if err != nil {
		return false, err
	}
	return cond(values), nil
}

func (e *Evaluator) parse(rule string) (node, error) {
	e.mu.RLock()
	cached, ok := e.cache[rule]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	toks, err := lex(rule)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, fmt.Errorf("visibility/expr: unexpected %q at position %d", tok.text, tok.pos)
	}

	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]node)
	}
	e.cache[rule] = root
	e.mu.Unlock()
	return root, nil
}

type kind int

const (
	kIdent kind = iota
	kString
	kNumber
	kBool
	kNull
	kEq
	kNeq
	kLt
	kLte
	kGt
	kGte
	kAnd
	kOr
	kNot
	kLParen
	kRParen
)

type tok struct {
	kind kind
	text string
	pos  int
}

var operators = []struct {
	text string
	kind kind
}{
	{"==", kEq}, {"!=", kNeq}, {"<=", kLte}, {">=", kGte},
	{"&&", kAnd}, {"||", kOr},
	{"<", kLt}, {">", kGt}, {"!", kNot}, {"(", kLParen}, {")", kRParen},
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDelim(c byte) bool {
	return isSpace(c) || strings.IndexByte("()!=<>&|\"'", c) >= 0
}

func lex(input string) ([]tok, error) {
	var out []tok
	i := 0
scan:
	for i < len(input) {
		c := input[i]
		if isSpace(c) {
			i++
			continue
		}
		for _, op := range operators {
			if strings.HasPrefix(input[i:], op.text) {
				out = append(out, tok{kind: op.kind, text: op.text, pos: i})
				i += len(op.text)
				continue scan
			}
		}
		switch c {
		case '=':
			return nil, fmt.Errorf("visibility/expr: single '=' at position %d; use '=='", i)
		case '&', '|':
			return nil, fmt.Errorf("visibility/expr: single %q at position %d; use %q", c, i, string([]byte{c, c}))
		case '"', '\'':
			end := i + 1
			for end < len(input) && input[end] != c {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, fmt.Errorf("visibility/expr: unterminated string at position %d", i)
			}
			body := input[i+1 : end]
			if c == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			text, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, fmt.Errorf("visibility/expr: invalid string at position %d: %w", i, err)
			}
			out = append(out, tok{kind: kString, text: text, pos: i})
			i = end + 1
			continue
		}

		start := i
		for i < len(input) && !isDelim(input[i]) {
			i++
		}
		word := input[start:i]
		t := tok{kind: kIdent, text: word, pos: start}
		switch lower := strings.ToLower(word); {
		case lower == "true" || lower == "false":
			t.kind, t.text = kBool, lower
		case lower == "null" || lower == "nil":
			t.kind = kNull
		case isNumber(word):
			t.kind = kNumber
		}
		out = append(out, t)
	}
	return out, nil
}

func isNumber(word string) bool {
	if word == "" || strings.IndexByte("0123456789+-.", word[0]) < 0 {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) peek() (tok, bool) {
	if p.pos >= len(p.toks) {
		return tok{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) accept(k kind) bool {
	if t, ok := p.peek(); ok && t.kind == k {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(kOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(kAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(kNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(kLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(kRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	t, ok := p.peek()
	if !ok {
		return nil, errors.New("visibility/expr: unexpected end of rule")
	}
	if t.kind != kIdent {
		return nil, fmt.Errorf("visibility/expr: expected field name at position %d, got %q", t.pos, t.text)
	}
	p.pos++

	op, ok := p.peek()
	if !ok || op.kind < kEq || op.kind > kGte {
		return truthyNode{path: t.text}, nil
	}
	p.pos++

	lit, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("visibility/expr: missing value after %q", op.text)
	}
	p.pos++
	return newCompare(t.text, op, lit)
}

func newCompare(path string, op, lit tok) (node, error) {
	cmp := compareNode{path: path, op: op.kind}
	switch lit.kind {
	case kString, kIdent:
		// bare words compare as strings
		cmp.want = lit.text
	case kNumber:
		f, _ := strconv.ParseFloat(lit.text, 64)
		cmp.want = f
	case kBool:
		cmp.want = lit.text == "true"
	case kNull:
		cmp.want = nil
	default:
		return nil, fmt.Errorf("visibility/expr: expected value at position %d, got %q", lit.pos, lit.text)
	}

	ordered := op.kind >= kLt && op.kind <= kGte
	if ordered {
		if _, ok := cmp.want.(float64); !ok {
			return nil, fmt.Errorf("visibility/expr: %q needs a number, got %q", op.text, lit.text)
		}
	}
	return cmp, nil
}

type node interface {
	eval(values map[string]any) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) bool { return n.left.eval(values) || n.right.eval(values) }

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) bool {
	return n.left.eval(values) && n.right.eval(values)
}

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) bool { return !n.inner.eval(values) }

type truthyNode struct{ path string }

func (n truthyNode) eval(values map[string]any) bool {
	v, _ := resolve(values, n.path)
	return visibility.Truthy(v)
}

type compareNode struct {
	path string
	op   kind
	want any
}

func (n compareNode) eval(values map[string]any) bool {
	got, _ := resolve(values, n.path)

	switch want := n.want.(type) {
	case nil:
		isNull := got == nil
		return isNull == (n.op == kEq)
	case bool:
		return (asBool(got) == want) == (n.op == kEq)
	case string:
		return (asString(got) == want) == (n.op == kEq)
	case float64:
		num, ok := asNumber(got)
		switch n.op {
		case kEq:
			return ok && num == want
		case kNeq:
			return !ok || num != want
		case kLt:
			return ok && num < want
		case kLte:
			return ok && num <= want
		case kGt:
			return ok && num > want
		case kGte:
			return ok && num >= want
		}
	}
	return false
}

func resolve(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

func asBool(value any) bool {
	if s, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return visibility.Truthy(value)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}
