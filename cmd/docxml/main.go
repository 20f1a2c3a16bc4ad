package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"annotator/internal/config"
	"annotator/internal/docxml"
	"annotator/internal/logging"
)

const usage = `Usage: docxml <command> [flags] args
  list  documents.xml                     print every localimagefile
  split [--per N] [--dir D] [--script F] [--url U] documents.xml
  merge [--marker M] [--out F] source.xml target.xml
  get   documents.xml id-suffix           print documents whose id ends with suffix`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	logger, err := logging.New(config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "list":
		err = runList(os.Stdout, args)
	case "split":
		err = runSplit(logger, args)
	case "merge":
		err = runMerge(logger, args)
	case "get":
		err = runGet(os.Stdout, args)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal(cmd+" failed", zap.Error(err))
	}
}

func runList(w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("list needs one document list")
	}
	list, err := docxml.ReadFile(args[0])
	if err != nil {
		return err
	}
	for _, p := range docxml.ImagePaths(list) {
		fmt.Fprintln(w, p)
	}
	return nil
}

func runSplit(logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	per := fs.Int("per", 1000, "documents per file")
	dir := fs.String("dir", "", "output directory")
	script := fs.String("script", "", "write an index script posting every part")
	updateURL := fs.String("url", "http://localhost:8983/solr/lire/update", "update handler for the index script")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("split needs one document list")
	}
	list, err := docxml.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	opts := docxml.SplitOptions{PerFile: *per, Dir: *dir, UpdateURL: *updateURL}
	if *script != "" {
		f, err := os.Create(*script)
		if err != nil {
			return err
		}
		defer f.Close()
		opts.Script = f
	}
	paths, err := docxml.SplitFiles(list, fs.Arg(0), opts)
	if err != nil {
		return err
	}
	logger.Info("list split", zap.Int("documents", list.Len()), zap.Int("files", len(paths)))
	return nil
}

func runMerge(logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	marker := fs.String("marker", "", "derive imgurl from the id starting at this marker")
	out := fs.String("out", "", "output file (default: overwrite target)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("merge needs a source and a target list")
	}
	src, err := docxml.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	target, err := docxml.ReadFile(fs.Arg(1))
	if err != nil {
		return err
	}
	st := docxml.Merge(src, target, *marker)
	for _, id := range st.Missing {
		logger.Warn("no source document", zap.String("id", id))
	}
	dest := *out
	if dest == "" {
		dest = fs.Arg(1)
	}
	if err := target.WriteFile(dest); err != nil {
		return err
	}
	logger.Info("lists merged", zap.Int("merged", st.Merged), zap.Int("missing", len(st.Missing)), zap.String("output", dest))
	return nil
}

func runGet(w io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("get needs a document list and an id suffix")
	}
	list, err := docxml.ReadFile(args[0])
	if err != nil {
		return err
	}
	found := docxml.FindBySuffix(list, args[1])
	if len(found) == 0 {
		return fmt.Errorf("no document id ends with %q", args[1])
	}
	return docxml.NewDocumentList(found...).Write(w)
}
