package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"prefabforge/internal/assets"
	"prefabforge/internal/components"
	"prefabforge/internal/editor"
	"prefabforge/internal/export"
	"prefabforge/internal/logging"
	"prefabforge/internal/prefab"
	"prefabforge/internal/store"
)

const usage = `usage: prefabtool <command> [flags] args

commands:
  validate FILE...              parse and validate prefab files
  stats FILE                    summarize a prefab
  export [-o OUT] FILE          write the prefab as GLB
  import [-parent ID] DST SRC   merge SRC under a node of DST with fresh ids
  assets [-root DIR] FILE       load every referenced model
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "validate":
		err = validate(rest, stdout)
	case "stats":
		err = stats(rest, stdout)
	case "export":
		err = exportCmd(rest, stdout, stderr)
	case "import":
		err = importCmd(rest, stdout, stderr)
	case "assets":
		err = assetsCmd(rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(stderr, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

var errFailed = errors.New("one or more files failed")

func validate(files []string, out io.Writer) error {
	if len(files) == 0 {
		return errUsage
	}
	failed := false
	for _, f := range files {
		if _, err := store.LoadFile(f); err != nil {
			fmt.Fprintf(out, "FAIL %v\n", err)
			failed = true
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", f)
	}
	if failed {
		return errFailed
	}
	return nil
}

func stats(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	p, err := store.LoadFile(args[0])
	if err != nil {
		return err
	}
	reg := components.NewRegistry()
	nodes := prefab.Flatten(p.Root)
	types := make(map[string]int)
	models := make(map[string]bool)
	var unknown []string
	hidden, disabled, instanced := 0, 0, 0
	for _, n := range nodes {
		if n.Hidden {
			hidden++
		}
		if n.Disabled {
			disabled++
		}
		for _, c := range n.Components {
			if c == nil {
				continue
			}
			types[c.Type]++
			if _, ok := reg.Get(c.Type); !ok && types[c.Type] == 1 {
				unknown = append(unknown, c.Type)
			}
		}
		if m := n.Component(prefab.KeyModel); m != nil {
			if f := m.String("filename"); f != "" {
				models[f] = true
			}
			if m.Bool("instanced") {
				instanced++
			}
		}
	}

	fmt.Fprintf(out, "name:      %s\n", p.Name)
	fmt.Fprintf(out, "nodes:     %d (depth %d)\n", len(nodes), depth(p.Root))
	fmt.Fprintf(out, "hidden:    %d\n", hidden)
	fmt.Fprintf(out, "disabled:  %d\n", disabled)
	fmt.Fprintf(out, "instanced: %d\n", instanced)
	fmt.Fprintf(out, "models:    %d\n", len(models))
	fmt.Fprintln(out, "components:")
	for _, t := range sortedKeys(types) {
		fmt.Fprintf(out, "  %-18s %d\n", t, types[t])
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		fmt.Fprintf(out, "unknown:   %s\n", strings.Join(unknown, ", "))
	}
	return nil
}

func depth(n *prefab.GameObject) int {
	d := 0
	for _, c := range n.Children {
		if cd := depth(c); cd > d {
			d = cd
		}
	}
	return d + 1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func exportCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outPath := fs.String("o", "", "output file (default: FILE with .glb)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	in := fs.Arg(0)
	p, err := store.LoadFile(in)
	if err != nil {
		return err
	}
	if *outPath == "" {
		*outPath = strings.TrimSuffix(in, filepath.Ext(in)) + ".glb"
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := export.GLB(f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *outPath)
	return nil
}

func importCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	parent := fs.String("parent", "", "parent node id (default: root)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	dst, src := fs.Arg(0), fs.Arg(1)
	p, err := store.LoadFile(dst)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	ed := editor.New(p, nil, editor.DefaultOptions(), nil)
	if *parent == "" {
		*parent = p.Root.ID
	}
	id, err := ed.Import(in, *parent)
	if err != nil {
		return err
	}
	if err := store.SaveFile(dst, ed.Prefab()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %s as %s under %s\n", src, id, *parent)
	return nil
}

func assetsCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", "", "asset root (default: the prefab's directory)")
	workers := fs.Int("workers", 4, "concurrent loads")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	p, err := store.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if *root == "" {
		*root = filepath.Dir(fs.Arg(0))
	}

	var paths []string
	for _, n := range prefab.Flatten(p.Root) {
		if m := n.Component(prefab.KeyModel); m != nil {
			if f := m.String("filename"); f != "" {
				paths = append(paths, f)
			}
		}
	}

	mgr := assets.NewManager(assets.FileLoader{Root: *root}, logging.Nop())
	defer mgr.Close()
	err = mgr.Preload(context.Background(), paths, *workers)
	for _, path := range mgr.Paths() {
		e := mgr.Get(path)
		if e.State == assets.Ready {
			fmt.Fprintf(stdout, "ready  %-30s %s, %d parts\n", path, e.Model.Format, len(e.Model.Parts))
			continue
		}
		fmt.Fprintf(stdout, "%-6s %-30s %v\n", e.State, path, e.Err)
	}
	if err != nil {
		return errFailed
	}
	return nil
}
