package static

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/evangambit/Gamgee/internal/config"
)

// Resolver maps request paths to files under the served root.
type Resolver struct {
	root  string
	rules []config.RewriteRule
}

func NewResolver(root string, rules []config.RewriteRule) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	return &Resolver{root: abs, rules: rules}, nil
}

// Root is the absolute served directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins the request path onto the root and applies the first
// matching rewrite. The request path is cleaned as an absolute path first,
// so ".." segments cannot climb above the root; only a rewrite can map a
// request outside it.
func (r *Resolver) Resolve(requestPath string) string {
	cleaned := path.Clean("/" + requestPath)
	resolved := filepath.Join(r.root, filepath.FromSlash(cleaned))

	for _, rule := range r.rules {
		if rewritten, ok := applyRewrite(rule, resolved); ok {
			return rewritten
		}
	}
	return resolved
}

// applyRewrite replaces every whole-segment occurrence of rule.From in p
// with rule.To when p ends in rule.Suffix.
func applyRewrite(rule config.RewriteRule, p string) (string, bool) {
	if !strings.HasSuffix(p, rule.Suffix) {
		return p, false
	}

	sep := string(filepath.Separator)
	from := sep + filepath.FromSlash(strings.Trim(rule.From, "/")) + sep
	to := sep
	if seg := strings.Trim(rule.To, "/"); seg != "" {
		to = sep + filepath.FromSlash(seg) + sep
	}

	if !strings.Contains(p, from) {
		return p, false
	}
	return strings.ReplaceAll(p, from, to), true
}
