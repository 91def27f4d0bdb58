package gateway

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/relaygate/validation"
)

// RouteRule maps an inbound method and path pattern to a destination
// service. Pattern and Rewrite use :name segments; Rewrite may only use
// params captured by Pattern. An empty Rewrite forwards the path unchanged.
type RouteRule struct {
	Method       string `json:"method" mapstructure:"method" validate:"required,httpmethod"`
	Pattern      string `json:"pattern" mapstructure:"pattern" validate:"required,urlpath"`
	Destination  string `json:"destination" mapstructure:"destination" validate:"required"`
	Rewrite      string `json:"rewrite,omitempty" mapstructure:"rewrite" validate:"omitempty,urlpath"`
	AuthRequired bool   `json:"authRequired" mapstructure:"auth_required"`
}

// Match is a matched rule with its captured params and the rewritten
// downstream path.
type Match struct {
	Rule   RouteRule
	Params map[string]string
	Path   string
}

type routeList struct {
	Routes []RouteRule `json:"routes" validate:"required,min=1,dive"`
}

type segment struct {
	literal string
	param   string
}

type compiledRule struct {
	rule     RouteRule
	segments []segment
	rewrite  []segment
}

// RouteTable is an immutable, validated set of rules.
type RouteTable struct {
	rules []compiledRule
}

// NewRouteTable validates rules and compiles them. It rejects unknown
// methods, relative paths, rewrite params missing from the pattern,
// repeated params and two rules that would match the same requests.
func NewRouteTable(rules []RouteRule) (*RouteTable, error) {
	normalized := make([]RouteRule, len(rules))
	for i, r := range rules {
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		r.Destination = strings.TrimSpace(r.Destination)
		normalized[i] = r
	}

	if err := validation.Validate(routeList{Routes: normalized}); err != nil {
		return nil, err
	}

	table := &RouteTable{rules: make([]compiledRule, 0, len(normalized))}
	shapes := make(map[string]int, len(normalized))
	for i, r := range normalized {
		cr, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		shape := r.Method + " " + cr.shape()
		if prev, dup := shapes[shape]; dup {
			return nil, fmt.Errorf("routes[%d]: %s %s conflicts with routes[%d]", i, r.Method, r.Pattern, prev)
		}
		shapes[shape] = i
		table.rules = append(table.rules, cr)
	}
	return table, nil
}

// MustRouteTable is NewRouteTable for tables known to be valid.
func MustRouteTable(rules []RouteRule) *RouteTable {
	t, err := NewRouteTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

func compileRule(r RouteRule) (compiledRule, error) {
	cr := compiledRule{rule: r, segments: splitPattern(r.Pattern)}
	params := make(map[string]bool)
	for _, s := range cr.segments {
		if s.param == "" {
			continue
		}
		if params[s.param] {
			return cr, fmt.Errorf("pattern %s repeats param :%s", r.Pattern, s.param)
		}
		params[s.param] = true
	}
	if r.Rewrite != "" {
		cr.rewrite = splitPattern(r.Rewrite)
		for _, s := range cr.rewrite {
			if s.param != "" && !params[s.param] {
				return cr, fmt.Errorf("rewrite %s uses :%s, which pattern %s does not capture", r.Rewrite, s.param, r.Pattern)
			}
		}
	}
	return cr, nil
}

func splitPattern(p string) []segment {
	parts := splitPath(p)
	segs := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			segs[i] = segment{param: part[1:]}
		} else {
			segs[i] = segment{literal: part}
		}
	}
	return segs
}

// splitPath drops the leading and trailing slash. "/" has no segments.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// shape renders the pattern with param names erased, so /a/:x and /a/:y
// collide.
func (cr compiledRule) shape() string {
	var b strings.Builder
	for _, s := range cr.segments {
		b.WriteByte('/')
		if s.param != "" {
			b.WriteByte(':')
		} else {
			b.WriteString(s.literal)
		}
	}
	return b.String()
}

// Rules returns a copy of the table's rules in declaration order.
func (t *RouteTable) Rules() []RouteRule {
	out := make([]RouteRule, len(t.rules))
	for i, cr := range t.rules {
		out[i] = cr.rule
	}
	return out
}

// Match finds the rule for method and the decoded request path. When
// several patterns match, the one with a literal at the first differing
// segment wins, so /api/items/search beats /api/items/:id in any order.
func (t *RouteTable) Match(method, path string) (Match, bool) {
	parts := splitPath(path)
	var (
		best       *compiledRule
		bestParams map[string]string
	)
	for i := range t.rules {
		cr := &t.rules[i]
		if cr.rule.Method != method || len(cr.segments) != len(parts) {
			continue
		}
		params, ok := cr.match(parts)
		if !ok {
			continue
		}
		if best == nil || moreSpecific(cr, best) {
			best, bestParams = cr, params
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{
		Rule:   best.rule,
		Params: bestParams,
		Path:   best.target(parts, bestParams),
	}, true
}

func (cr *compiledRule) match(parts []string) (map[string]string, bool) {
	var params map[string]string
	for i, s := range cr.segments {
		if s.param == "" {
			if s.literal != parts[i] {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[s.param] = parts[i]
	}
	return params, true
}

func moreSpecific(a, b *compiledRule) bool {
	for i := range a.segments {
		aLit, bLit := a.segments[i].param == "", b.segments[i].param == ""
		if aLit != bLit {
			return aLit
		}
	}
	return false
}

// target builds the downstream path. Captured values are re-escaped.
func (cr *compiledRule) target(parts []string, params map[string]string) string {
	var b strings.Builder
	if cr.rule.Rewrite == "" {
		for _, p := range parts {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(p))
		}
	} else {
		for _, s := range cr.rewrite {
			b.WriteByte('/')
			if s.param != "" {
				b.WriteString(url.PathEscape(params[s.param]))
			} else {
				b.WriteString(s.literal)
			}
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Service names of the backends fronted by the default table.
const (
	UserService  = "user-service"
	ItemService  = "item-service"
	ListService  = "list-service"
	MediaService = "media-service"
)

// DefaultRoutes is the table for the shopping-list backends.
func DefaultRoutes() []RouteRule {
	r := func(method, pattern, dest, rewrite string, auth bool) RouteRule {
		return RouteRule{Method: method, Pattern: pattern, Destination: dest, Rewrite: rewrite, AuthRequired: auth}
	}
	return []RouteRule{
		r("POST", "/api/auth/register", UserService, "/auth/register", false),
		r("POST", "/api/auth/login", UserService, "/auth/login", false),
		r("GET", "/api/users/:id", UserService, "/users/:id", true),
		r("PUT", "/api/users/:id", UserService, "/users/:id", true),

		r("GET", "/api/items", ItemService, "/items", false),
		r("GET", "/api/items/search", ItemService, "/search", false),
		r("GET", "/api/items/categories", ItemService, "/categories", false),
		r("GET", "/api/items/:id", ItemService, "/items/:id", false),
		r("POST", "/api/items", ItemService, "/items", true),
		r("PUT", "/api/items/:id", ItemService, "/items/:id", true),

		r("POST", "/api/lists", ListService, "/lists", true),
		r("GET", "/api/lists", ListService, "/lists", true),
		r("GET", "/api/lists/:id", ListService, "/lists/:id", true),
		r("PUT", "/api/lists/:id", ListService, "/lists/:id", true),
		r("DELETE", "/api/lists/:id", ListService, "/lists/:id", true),
		r("POST", "/api/lists/:id/items", ListService, "/lists/:id/items", true),
		r("PUT", "/api/lists/:id/items/:itemId", ListService, "/lists/:id/items/:itemId", true),
		r("DELETE", "/api/lists/:id/items/:itemId", ListService, "/lists/:id/items/:itemId", true),
		r("GET", "/api/lists/:id/summary", ListService, "/lists/:id/summary", true),

		r("POST", "/api/media/upload", MediaService, "/upload", true),
	}
}
