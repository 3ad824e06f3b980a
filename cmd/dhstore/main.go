// Command dhstore is the CLI adapter over the dhstore core: a thin
// layer translating subcommands into store façade calls (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/profile"
	"github.com/shirou/gopsutil/disk"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/dhstore/dhstore/dconfig"
	"github.com/dhstore/dhstore/dlog"
	"github.com/dhstore/dhstore/hash"
	"github.com/dhstore/dhstore/store"
)

var (
	app = kingpin.New("dhstore", "A content-addressed personal data store.")

	configPath = app.Flag("config", "path to a TOML config file").String()
	logLevel   = app.Flag("log-level", "warn, info, debug, or trace").Default("warn").String()
	profileCPU = app.Flag("profile", "write a pprof CPU profile to ./cpu.pprof").Bool()

	initCmd     = app.Command("init", "create a new, empty store")
	initPath    = initCmd.Arg("path", "store directory").Required().String()

	verifyCmd  = app.Command("verify", "verify object and blob integrity")
	verifyPath = verifyCmd.Arg("path", "store directory").Required().String()

	gcCmd  = app.Command("gc", "collect unreachable objects and blobs")
	gcPath = gcCmd.Arg("path", "store directory").Required().String()

	addCmd     = app.Command("add", "add a file or directory, printing its digest")
	addPath    = addCmd.Arg("path", "store directory").Required().String()
	addTarget  = addCmd.Arg("target", "file or directory to add").Required().String()

	blobAddCmd    = app.Command("blob-add", "add a single blob from a file or stdin")
	blobAddPath   = blobAddCmd.Arg("path", "store directory").Required().String()
	blobAddSource = blobAddCmd.Arg("source", "file to read, or - for stdin").Default("-").String()

	blobGetCmd  = app.Command("blob-get", "print a blob's content to stdout")
	blobGetPath = blobGetCmd.Arg("path", "store directory").Required().String()
	blobGetID   = blobGetCmd.Arg("id", "blob digest").Required().String()

	showCmd   = app.Command("show", "pretty-print an object graph")
	showPath  = showCmd.Arg("path", "store directory").Required().String()
	showID    = showCmd.Arg("id", "object digest").String()
	showDepth = showCmd.Flag("depth", "levels to print, negative for unlimited").Default("-1").Int()

	statCmd  = app.Command("stat", "print store and filesystem usage statistics")
	statPath = statCmd.Arg("path", "store directory").Required().String()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *profileCPU {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	log := dlog.NewStderr(dlog.ParseLevel(*logLevel))
	cfg, err := dconfig.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if err := run(cmd, cfg, log); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "dhstore:", err)
	os.Exit(1)
}

func run(cmd string, cfg dconfig.Config, log *dlog.Logger) error {
	switch cmd {
	case initCmd.FullCommand():
		s, err := store.Init(*initPath, cfg, log)
		if err != nil {
			return err
		}
		return s.Close()

	case verifyCmd.FullCommand():
		s, err := store.Open(*verifyPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Verify()

	case gcCmd.FullCommand():
		s, err := store.Open(*gcPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.CollectGarbage()

	case addCmd.FullCommand():
		s, err := store.Open(*addPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.Add(*addTarget)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case blobAddCmd.FullCommand():
		s, err := store.Open(*blobAddPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()

		r := os.Stdin
		if *blobAddSource != "-" {
			f, err := os.Open(*blobAddSource)
			if err != nil {
				return err
			}
			defer f.Close()
			id, err := s.AddBlob(f)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		}
		id, err := s.AddBlob(r)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case blobGetCmd.FullCommand():
		s, err := store.Open(*blobGetPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := hash.ParseStrict(*blobGetID)
		if err != nil {
			return err
		}
		data, found, err := s.GetBlob(id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("blob %s not found", id)
		}
		_, err = os.Stdout.Write(data)
		return err

	case showCmd.FullCommand():
		s, err := store.Open(*showPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		id := s.Root()
		if *showID != "" {
			id, err = hash.ParseStrict(*showID)
			if err != nil {
				return err
			}
		}
		return s.PrintObject(os.Stdout, id, *showDepth)

	case statCmd.FullCommand():
		s, err := store.Open(*statPath, cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()
		return printStats(*statPath, s)
	}

	return nil
}

func printStats(path string, s *store.Store) error {
	usage, err := disk.Usage(path)
	if err == nil {
		fmt.Printf("filesystem: %s used of %s (%.1f%%)\n",
			humanize.Bytes(usage.Used), humanize.Bytes(usage.Total), usage.UsedPercent)
	}

	objectCount, blobCount, blobBytes := s.Stats()
	fmt.Printf("objects: %d\n", objectCount)
	fmt.Printf("blobs:   %d (%s)\n", blobCount, humanize.Bytes(uint64(blobBytes)))
	fmt.Printf("root:    %s\n", s.Root())
	return nil
}
