package cache

import (
	"sort"
	"strings"

	"github.com/valyala/fasthttp"
)

// BuildKey derives a deterministic cache key from the request shape.
// Query parameters are sorted by name so two requests that differ only in
// parameter order share one entry. Keys always start with "METHOD:path",
// which is what prefix invalidation relies on.
func BuildKey(method, path string, args *fasthttp.Args) string {
	var b strings.Builder
	b.Grow(len(method) + len(path) + 64)
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(path)

	if args == nil || args.Len() == 0 {
		return b.String()
	}

	params := make([]string, 0, args.Len())
	args.VisitAll(func(key, value []byte) {
		params = append(params, string(key)+"="+string(value))
	})
	sort.Strings(params)

	b.WriteByte('?')
	for i, param := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(param)
	}

	return b.String()
}

// ReadPrefix is the invalidation prefix covering every cached read under a
// resource path, including descendant paths and all query variants.
func ReadPrefix(path string) string {
	return fasthttp.MethodGet + ":" + strings.TrimSuffix(path, "/")
}
