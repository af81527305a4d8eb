package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/tessera/assets"
)

var (
	author  = flag.String("author", "", "author recorded in the pack header")
	version = flag.Int64("version", 1, "version recorded in the pack header")
	out     = flag.String("o", "assets.tsp", "pack to write when building")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage:
  tesspack [flags] build DIR     pack every file under DIR
  tesspack list PACK             list the files of PACK
  tesspack extract PACK DIR      unpack PACK into DIR

flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch {
	case args[0] == "build":
		err = build(args[1], *out)
	case args[0] == "list":
		err = list(args[1])
	case args[0] == "extract" && len(args) == 3:
		err = extract(args[1], args[2])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal(args[0])
	}
}

func build(dir, dst string) error {
	builder, err := assets.NewBuilder(assets.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	err = filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		name, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		log.WithField("file", name).Debug("adding")
		return builder.Add(filepath.ToSlash(name), f)
	})
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		log.WithFields(log.Fields{"pack": dst, "bytes": n}).Info("pack written")
	}
	return err
}

func list(path string) error {
	ar, err := assets.OpenFile(path)
	if err != nil {
		return err
	}
	defer ar.Close()
	h := ar.Header()
	fmt.Printf("author %q, version %d, created %s\n", h.Author, h.Version, time.Unix(h.DateCreated, 0).Format(time.RFC3339))
	for _, e := range h.Index {
		fmt.Printf("%10d %10d  %s\n", e.Size, e.CompressedSize, e.Name)
	}
	return nil
}

func extract(path, dir string) error {
	ar, err := assets.OpenFile(path)
	if err != nil {
		return err
	}
	defer ar.Close()
	for _, name := range ar.List() {
		if err := extractOne(ar, name, dir); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(ar *assets.Archive, name, dir string) error {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	r, err := ar.Open(name)
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
