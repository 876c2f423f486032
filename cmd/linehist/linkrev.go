package main

import (
	"fmt"

	"go.linehist.dev/core/linkrev"
	mbp "go.linehist.dev/core/mainboilerplate"
	"go.linehist.dev/core/node"
)

type cmdLinkrev struct {
	Get     cmdLinkrevGet     `command:"get" description:"Print revisions recorded for a (filename, node)"`
	Append  cmdLinkrevAppend  `command:"append" description:"Record a revision for a (filename, node)"`
	LastRev cmdLinkrevLastRev `command:"lastrev" description:"Print the cache's high-water revision"`
}

type linkrevDirConfig struct {
	Dir string `long:"dir" env:"DIR" default:".linehist" description:"Directory of the link-revision cache"`
}

type cmdLinkrevGet struct {
	linkrevDirConfig

	Args struct {
		Name string `positional-arg-name:"filename" required:"yes"`
		Node string `positional-arg-name:"node" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdLinkrevGet) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var id, err = node.Parse(cmd.Args.Node)
	mbp.Must(err, "failed to parse node")

	db, err := linkrev.Open(cmd.Dir, false)
	mbp.Must(err, "failed to open link-revision cache")
	defer db.Close()

	revs, err := db.GetLinkRevs(cmd.Args.Name, id)
	mbp.Must(err, "failed to query linkrevs")

	for _, rev := range revs {
		fmt.Println(rev)
	}
	return nil
}

type cmdLinkrevAppend struct {
	linkrevDirConfig

	Args struct {
		Name string `positional-arg-name:"filename" required:"yes"`
		Node string `positional-arg-name:"node" required:"yes"`
		Rev  int64  `positional-arg-name:"revision" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdLinkrevAppend) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var id, err = node.Parse(cmd.Args.Node)
	mbp.Must(err, "failed to parse node")

	db, err := linkrev.Open(cmd.Dir, true)
	mbp.Must(err, "failed to open link-revision cache")
	defer db.Close()

	mbp.Must(db.AppendLinkRev(cmd.Args.Name, id, cmd.Args.Rev), "failed to append linkrev")

	if last, err := db.GetLastRev(); err != nil {
		return err
	} else if cmd.Args.Rev > last {
		return db.SetLastRev(cmd.Args.Rev)
	}
	return nil
}

type cmdLinkrevLastRev struct {
	linkrevDirConfig
}

func (cmd *cmdLinkrevLastRev) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var db, err = linkrev.Open(cmd.Dir, false)
	mbp.Must(err, "failed to open link-revision cache")
	defer db.Close()

	rev, err := db.GetLastRev()
	mbp.Must(err, "failed to query lastrev")

	fmt.Println(rev)
	return nil
}
