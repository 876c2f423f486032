package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"go.linehist.dev/core/codecs"
	mbp "go.linehist.dev/core/mainboilerplate"
	"go.linehist.dev/core/manifest"
	"go.linehist.dev/core/node"
)

type cmdManifest struct {
	Dump  cmdManifestDump  `command:"dump" description:"Print a stored manifest tree as YAML"`
	Build cmdManifestBuild `command:"build" description:"Build a manifest from a local directory"`
}

type manifestStoreConfig struct {
	Store string `long:"store" env:"STORE" default:".linehist/store" description:"Directory of the content store"`
	Cache int    `long:"cache" env:"CACHE" default:"256" description:"Size of the content store read cache"`
}

func (cfg manifestStoreConfig) open() manifest.Store {
	return manifest.NewCachingStore(
		manifest.NewFSStore(afero.NewOsFs(), cfg.Store, codecs.Snappy), cfg.Cache)
}

// manifestRow is the YAML rendering of one manifest file entry.
type manifestRow struct {
	Path string `yaml:"path"`
	Node string `yaml:"node"`
	Flag string `yaml:"flag,omitempty"`
}

type cmdManifestDump struct {
	manifestStoreConfig

	Args struct {
		Root string `positional-arg-name:"root-node" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdManifestDump) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var root, err = node.Parse(cmd.Args.Root)
	mbp.Must(err, "failed to parse root node")

	tree, err := manifest.OpenTree(cmd.open(), root)
	mbp.Must(err, "failed to open manifest tree")

	var rows []manifestRow
	_ = tree.Walk(func(path string, e manifest.Entry) error {
		var flag string
		if e.Flag != manifest.FlagNone {
			flag = string(rune(e.Flag))
		}
		rows = append(rows, manifestRow{Path: path, Node: e.ID.String(), Flag: flag})
		return nil
	})

	b, err := yaml.Marshal(rows)
	mbp.Must(err, "failed to render YAML")
	fmt.Print(string(b))
	return nil
}

type cmdManifestBuild struct {
	manifestStoreConfig

	Args struct {
		Dir string `positional-arg-name:"source-dir" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdManifestBuild) Execute([]string) error {
	mbp.InitLog(baseCfg.Log)

	var store = cmd.open()
	var tree = manifest.NewTree(store)
	var totalBytes uint64

	var err = filepath.Walk(cmd.Args.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(cmd.Args.Dir, path)
		if err != nil {
			return err
		}
		var flag = manifest.FlagNone
		if info.Mode()&0111 != 0 {
			flag = manifest.FlagExec
		}
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		totalBytes += uint64(len(b))
		return tree.Set(filepath.ToSlash(rel), node.SumOf(b), flag)
	})
	mbp.Must(err, "failed to walk source directory")

	out, err := tree.Finalize()
	mbp.Must(err, "failed to finalize manifest")

	log.WithFields(log.Fields{
		"files":  tree.Len(),
		"dirs":   len(out),
		"hashed": humanize.Bytes(totalBytes),
	}).Info("built manifest")

	fmt.Println(tree.Root())
	return nil
}
