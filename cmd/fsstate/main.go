// Command fsstate is a small driver over the fsstate core: it resolves a
// project's .fsstate.kdl (falling back to sane defaults), builds the
// reference collaborator implementations, and exposes scan/watch/dump/
// doctor subcommands for exercising the façade from a shell.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/buildgraph/fsstate/internal/buildmodel"
	"github.com/buildgraph/fsstate/internal/compilescope"
	"github.com/buildgraph/fsstate/internal/config"
	"github.com/buildgraph/fsstate/internal/debug"
	"github.com/buildgraph/fsstate/internal/fsstate"
	"github.com/buildgraph/fsstate/internal/fswatch"
	"github.com/buildgraph/fsstate/internal/osfs"
	"github.com/buildgraph/fsstate/internal/rootindex"
	"github.com/buildgraph/fsstate/internal/stampstore"
	"github.com/buildgraph/fsstate/internal/version"
)

func main() {
	app := &cli.App{
		Name:                   "fsstate",
		Usage:                  "incremental build file-system state driver",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory (defaults to the current directory)",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand,
			watchCommand,
			dumpCommand,
			doctorCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fsstate:", err)
		os.Exit(1)
	}
}

// projectFacade bundles everything a subcommand needs: the resolved
// config, the façade, and the reference collaborators wired to it.
type projectFacade struct {
	cfg        *config.Config
	state      *fsstate.FSState
	rootIndex  *rootindex.Index
	scope      *compilescope.Registry
	stamps     *stampstore.Store
	model      *buildmodel.Model
	registry   *buildmodel.Registry
	targets    map[string]fsstate.Target
	descByType map[string][]rootindex.Descriptor
}

func loadProject(root string) (*projectFacade, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}

	pf := &projectFacade{
		cfg:        cfg,
		state:      fsstate.NewFSState(osfs.FS{}, cfg.Performance.AlwaysScanFS),
		rootIndex:  rootindex.New(),
		scope:      compilescope.NewRegistry(),
		stamps:     stampstore.New(),
		model:      buildmodel.NewModel(),
		registry:   buildmodel.NewRegistry(),
		targets:    make(map[string]fsstate.Target),
		descByType: make(map[string][]rootindex.Descriptor),
	}

	for _, tc := range cfg.Targets {
		pf.registry.Register(buildmodel.TargetKind{TypeID: tc.TypeID, IsModuleBuild: tc.IsModuleBuild})

		id := tc.TypeID // one target instance per declared type, named after it
		pf.model.Add(tc.TypeID, id)
		target := buildmodel.NewTarget(tc.TypeID, id, tc.IsModuleBuild)
		pf.targets[tc.TypeID] = target

		pf.scope.SetScope(target, compilescope.Scope{Include: tc.Include, Exclude: tc.Exclude})

		for _, rc := range tc.Roots {
			dir := rc.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(absRoot, dir)
			}
			desc := pf.rootIndex.AddRoot(target, dir, rc.Generated)
			pf.descByType[tc.TypeID] = append(pf.descByType[tc.TypeID], desc)
		}
	}

	return pf, nil
}

var scanCommand = &cli.Command{
	Name:  "scan",
	Usage: "walk every configured root and mark discovered files dirty",
	Action: func(c *cli.Context) error {
		pf, err := loadProject(c.String("root"))
		if err != nil {
			return err
		}
		ctx := fsstate.NewContext(pf.scope, pf.rootIndex)

		// Roots across different targets never share a FilesDelta, so they
		// walk concurrently; FSState's own locking covers the rest (§5).
		var g errgroup.Group
		var total int64
		for typeID, target := range pf.targets {
			for _, desc := range pf.descByType[typeID] {
				target, desc := target, desc
				g.Go(func() error {
					count, err := walkAndMark(pf.state, ctx, target, desc, pf.stamps)
					if err != nil {
						return err
					}
					atomic.AddInt64(&total, int64(count))
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, target := range pf.targets {
			pf.state.MarkInitialScanPerformed(target)
		}
		fmt.Printf("scanned %d files across %d target(s)\n", total, len(pf.targets))
		return pf.save()
	},
}

// save persists the façade to the configured state path, creating its
// parent directory if necessary. The record is prefixed with a 4-byte
// format-version header (§4.5 notes that versioning is the storage layer's
// concern, not the FilesDelta record's own); loadState rejects a mismatch.
func (pf *projectFacade) save() error {
	statePath := pf.cfg.Persistence.StatePath
	if !filepath.IsAbs(statePath) {
		statePath = filepath.Join(pf.cfg.Project.Root, statePath)
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(statePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(fsstate.FormatVersion))
	if _, err := f.Write(header[:]); err != nil {
		return err
	}
	return pf.state.Save(f, pf.rootIndex)
}

// loadState opens statePath, checks its format-version header, and loads it
// into pf.state.
func (pf *projectFacade) loadState(statePath string) error {
	f, err := os.Open(statePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [4]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return fmt.Errorf("reading format-version header: %w", err)
	}
	if version := binary.BigEndian.Uint32(header[:]); version != fsstate.FormatVersion {
		return fmt.Errorf("%s was written with format version %d, this binary expects %d", statePath, version, fsstate.FormatVersion)
	}

	return pf.state.Load(f, pf.registry, pf.model, pf.rootIndex)
}

func walkAndMark(state *fsstate.FSState, ctx fsstate.CompileContext, target fsstate.Target, root rootindex.Descriptor, stamps *stampstore.Store) (int, error) {
	count := 0
	err := filepath.Walk(root.Dir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if state.MarkDirty(ctx, fsstate.RoundCurrent, path, root, stamps, true) {
			count++
		}
		return nil
	})
	return count, err
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "watch every configured root and mark changed files dirty as they occur",
	Action: func(c *cli.Context) error {
		pf, err := loadProject(c.String("root"))
		if err != nil {
			return err
		}
		ctx := fsstate.NewContext(pf.scope, pf.rootIndex)

		runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var watchers []*fswatch.Watcher
		for typeID, target := range pf.targets {
			for _, desc := range pf.descByType[typeID] {
				w, err := fswatch.New(pf.state, ctx, target, desc, pf.stamps, pf.cfg.Performance.WatchDebounceMs)
				if err != nil {
					return err
				}
				if err := w.AddDir(desc.Dir()); err != nil {
					return err
				}
				w.Start(runCtx)
				watchers = append(watchers, w)
			}
		}

		fmt.Println("watching, press ctrl-c to stop")
		<-runCtx.Done()
		for _, w := range watchers {
			_ = w.Stop()
		}
		return pf.save()
	},
}

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "print a persisted FSS record's contents",
	ArgsUsage: "<state-file>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("dump requires exactly one argument: the state file path")
		}
		pf, err := loadProject(c.String("root"))
		if err != nil {
			return err
		}

		if err := pf.loadState(c.Args().Get(0)); err != nil {
			return err
		}

		for typeID, target := range pf.targets {
			fmt.Printf("target %s (%s): work to do = %v\n", typeID, target.ID(), pf.state.HasWorkToDo(target))
		}
		return nil
	},
}

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "compare a persisted FSS record against a fresh scan and report drift",
	Action: func(c *cli.Context) error {
		pf, err := loadProject(c.String("root"))
		if err != nil {
			return err
		}

		statePath := pf.cfg.Persistence.StatePath
		if !filepath.IsAbs(statePath) {
			statePath = filepath.Join(pf.cfg.Project.Root, statePath)
		}

		if err := pf.loadState(statePath); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("no persisted state found at", statePath)
				return nil
			}
			return err
		}

		ctx := fsstate.NewContext(pf.scope, pf.rootIndex)
		drift := 0
		for typeID, target := range pf.targets {
			for _, desc := range pf.descByType[typeID] {
				err := filepath.Walk(desc.Dir(), func(path string, info os.FileInfo, err error) error {
					if err != nil || info.IsDir() {
						return err
					}
					if !pf.state.IsMarkedForRecompilation(ctx, fsstate.RoundCurrent, desc, path) {
						if _, ok := pf.stamps.Lookup(path, target); !ok {
							drift++
							fmt.Printf("drift: %s has no recorded stamp and is not marked dirty\n", path)
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
		fmt.Printf("checked %d target(s), %d drift finding(s)\n", len(pf.targets), drift)
		return nil
	},
}
