// linehist is a command-line tool for inspecting and manipulating line
// history logs, tree manifests, and link-revision caches.
package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	mbp "go.linehist.dev/core/mainboilerplate"
)

// baseCfg is the top-level configuration of the linehist tool.
var baseCfg = new(struct {
	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

func main() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	var addCmd = func(name, short, long string, cmd interface{}) {
		var _, err = parser.AddCommand(name, short, long, cmd)
		mbp.Must(err, "failed to add command", "name", name)
	}

	addCmd("annotate", "Annotate successive revisions of a file",
		`Build a line-history log from successive revisions of a file,
given as one file argument per revision, and print the per-line attribution
of the final revision.`, &cmdAnnotate{})

	addCmd("manifest", "Inspect and build tree manifests",
		"Inspect and build content-addressed tree manifests.", &cmdManifest{})

	addCmd("linkrev", "Query and update a link-revision cache",
		"Query and update a persistent link-revision cache.", &cmdLinkrev{})

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
