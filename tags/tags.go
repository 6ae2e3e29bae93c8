// Package tags holds the fixed blog tag and user interest vocabularies and the
// filter that reduces free-form input to them.
package tags

// Blog is the allow-list for blog tags.
var Blog = []string{
	"technology",
	"programming",
	"web-development",
	"data-science",
	"machine-learning",
	"artificial-intelligence",
	"life",
	"fiction",
	"business",
	"startup",
	"marketing",
	"design",
	"lifestyle",
	"health",
	"travel",
	"food",
	"education",
}

// Interests is the allow-list for profile interests: every blog tag plus a few topics
// that only make sense as reader interests.
var Interests = append(append([]string{}, Blog...),
	"music",
	"gaming",
	"sports",
	"photography",
	"science",
	"finance",
	"parenting",
	"books",
)

// Filter returns the candidates present in allowList, in their original order, keeping
// the first occurrence of duplicates. Unknown values are dropped without error.
// The result is never nil.
func Filter(candidates, allowList []string) []string {
	allowed := make(map[string]struct{}, len(allowList))
	for _, a := range allowList {
		allowed[a] = struct{}{}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := allowed[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// FilterBlog is Filter against Blog.
func FilterBlog(candidates []string) []string {
	return Filter(candidates, Blog)
}

// FilterInterests is Filter against Interests.
func FilterInterests(candidates []string) []string {
	return Filter(candidates, Interests)
}
