package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pitabwire/util"
	"golang.org/x/sync/errgroup"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/localization"
	"github.com/vesselworks/shipyard/targets"
	"github.com/vesselworks/shipyard/targets/testtarget"
	"github.com/vesselworks/shipyard/version"
)

type targetList []string

func (t *targetList) String() string {
	return strings.Join(*t, ",")
}

func (t *targetList) Set(value string) error {
	*t = append(*t, value)
	return nil
}

func main() {
	var targetNames targetList
	flag.Var(&targetNames, "target", "name of a configured deploy target (repeatable)")
	baseDir := flag.String("base", ".", "base directory destination keys are computed against")
	lang := flag.String("lang", "", "language for user facing messages")
	dryRun := flag.Bool("dry-run", false, "record deploys in memory instead of shipping them")
	showVersion := flag.Bool("version", false, "print build information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, hardStop := context.WithCancel(context.Background())
	defer hardStop()

	log := util.Log(ctx)

	// Missing .env files are fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv[config.Configuration]()
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	activeLang := *lang
	if activeLang == "" {
		activeLang = cfg.GetLanguage()
	}

	translator, err := localization.New(ctx,
		localization.WithDirectory(cfg.GetTranslationsDir()),
		localization.WithLanguage(activeLang),
	)
	if err != nil {
		log.WithError(err).Fatal("could not load translations")
	}

	if len(targetNames) == 0 || flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -target <name> [-target <name> ...] [-base dir] [-dry-run] file...\n", os.Args[0])
		os.Exit(2)
	}

	configured, err := config.LoadTargets(cfg.GetTargetsPath())
	if err != nil {
		log.WithError(err).Fatal("could not load targets manifest")
	}

	registry := targets.DefaultRegistry()
	var rehearsal *testtarget.Store
	if *dryRun {
		rehearsal = testtarget.NewStore()
		registry = targets.DryRunRegistry(rehearsal)
	}

	ctx, engine, err := shipyard.New(ctx, "shipyard",
		shipyard.WithConfig(&cfg),
		shipyard.WithLogger(log),
		shipyard.WithRegistry(registry),
		shipyard.WithLocalization(translator),
	)
	if err != nil {
		log.WithError(err).Fatal("could not build deploy engine")
	}
	defer engine.Stop(ctx)

	files, err := expandFiles(flag.Args())
	if err != nil {
		log.WithError(err).Fatal("could not resolve files to deploy")
	}

	cancel := shipyard.NewCancelFlag()
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(interrupts)
	go watchInterrupts(ctx, interrupts, cancel, hardStop, log)

	failed := deployAll(ctx, engine, configured, targetNames, files, *baseDir, cancel)

	if rehearsal != nil {
		for _, key := range rehearsal.Keys() {
			log.WithField("destination", key).Info(engine.Translate(ctx, "DryRunRecorded"))
		}
	}

	if failed {
		os.Exit(1)
	}
}

// watchInterrupts turns the first signal into a cooperative cancellation so
// files already in flight still report their outcome. A second signal ends
// the run hard by canceling the context.
func watchInterrupts(ctx context.Context, interrupts <-chan os.Signal, cancel *shipyard.CancelFlag, hardStop func(), log *util.LogEntry) {
	select {
	case <-ctx.Done():
		return
	case <-interrupts:
		cancel.Cancel()
		log.Warn("interrupt received, letting in-flight files finish; interrupt again to abort")
	}

	select {
	case <-ctx.Done():
	case <-interrupts:
		hardStop()
	}
}

func deployAll(
	ctx context.Context,
	engine *shipyard.Engine,
	configured []config.Target,
	targetNames []string,
	files []string,
	baseDir string,
	cancel *shipyard.CancelFlag,
) bool {
	log := util.Log(ctx)
	failed := false

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range targetNames {
		target, err := config.FindTarget(configured, name)
		if err != nil {
			log.WithError(err).Error("unknown deploy target")
			failed = true
			continue
		}

		g.Go(func() error {
			tlog := log.WithField("target", target.Name)
			tlog.Info(engine.Translate(gctx, "DeployStarted", len(files), target.Name))

			batch, deployErr := engine.Deploy(gctx, files, target, &shipyard.BatchOptions{
				BaseDir: baseDir,
				Cancel:  cancel,
				OnCompleted: func(res shipyard.Result) {
					switch {
					case res.Canceled:
						tlog.Warn(engine.Translate(gctx, "DeployFileCanceled", res.File))
					case res.Err != nil:
						tlog.WithError(res.Err).Error(engine.Translate(gctx, "DeployFileFailed", res.File))
					default:
						tlog.Info(engine.Translate(gctx, "DeployFileOk", res.File, res.Destination))
					}
				},
			})

			tlog.Info(engine.Translate(gctx, "DeployDone",
				target.Name,
				len(batch.Results())-len(batch.Failed())-len(batch.Canceled()),
				len(batch.Failed()),
				len(batch.Canceled()),
			))

			if deployErr != nil {
				return deployErr
			}
			if len(batch.Failed()) > 0 {
				return fmt.Errorf("target %q: %d files failed", target.Name, len(batch.Failed()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("deployment finished with failures")
		failed = true
	}
	return failed
}

// expandFiles resolves the positional arguments, walking any directory into
// the regular files beneath it.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		walkErr := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return files, nil
}
