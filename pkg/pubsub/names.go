package pubsub

import (
	"fmt"
	"strings"
)

// resourceKind is the collection segment of a Pub/Sub resource path.
type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

// qualify expands a bare ID into projects/<project>/<kind>/<id>. Names that
// are already fully qualified for kind pass through untouched.
func qualify(project string, kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(name, "projects/"); ok {
		if _, id, found := strings.Cut(rest, "/"+string(kind)+"/"); found && id != "" {
			return name
		}
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, name)
}

// configured drops blank entries.
func configured(names ...string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
